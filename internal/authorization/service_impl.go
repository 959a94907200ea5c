package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/smallbiznis/sanad/internal/auth/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClaim         = "claim"
	ObjectCommunication = "communication"
	ObjectVerification  = "verification"
	ObjectCaseAI        = "case_ai"
	ObjectSettlement    = "settlement"
	ObjectEligibility   = "eligibility"
	ObjectSettings      = "settings"
)

const (
	ActionClaimView       = "claim.view"
	ActionClaimUpdate     = "claim.update"
	ActionClaimTransition = "claim.transition"
	ActionClaimNote       = "claim.note"

	ActionCommunicationCreate  = "communication.create"
	ActionCommunicationRespond = "communication.respond"

	ActionVerificationRun = "verification.run"
	ActionCaseAIRun       = "case_ai.run"

	ActionSettlementView   = "settlement.view"
	ActionSettlementCreate = "settlement.create"

	ActionEligibilityView = "eligibility.view"

	ActionSettingsView   = "settings.view"
	ActionSettingsUpdate = "settings.update"
)

// Service decides whether a staff principal may perform an action.
type Service interface {
	Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error {
	subject := strings.TrimSpace(principal.Subject)
	if subject == "" {
		return claimdomain.ErrUnauthorized
	}
	role, ok := authdomain.ParseRole(string(principal.Role))
	if !ok {
		return claimdomain.ErrForbidden
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return fmt.Errorf("%w: object and action are required", claimdomain.ErrForbidden)
	}

	sub := "staff:" + subject
	if err := s.ensureGrouping(sub, roleName(role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(sub, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", sub),
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return claimdomain.ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per staff subject, following the
// role carried by the latest token.
func (s *ServiceImpl) ensureGrouping(subject string, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func roleName(role authdomain.Role) string {
	return "role:" + string(role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	agent := roleName(authdomain.RoleAgent)
	admin := roleName(authdomain.RoleAdmin)

	policies := [][]string{
		{agent, ObjectClaim, ActionClaimView},
		{agent, ObjectClaim, ActionClaimUpdate},
		{agent, ObjectClaim, ActionClaimTransition},
		{agent, ObjectClaim, ActionClaimNote},
		{agent, ObjectCommunication, ActionCommunicationCreate},
		{agent, ObjectCommunication, ActionCommunicationRespond},
		{agent, ObjectVerification, ActionVerificationRun},
		{agent, ObjectCaseAI, ActionCaseAIRun},
		{agent, ObjectSettlement, ActionSettlementView},
		{agent, ObjectEligibility, ActionEligibilityView},
		{agent, ObjectSettings, ActionSettingsView},

		// Admin inherits every agent permission.
		{admin, ObjectSettlement, ActionSettlementCreate},
		{admin, ObjectSettings, ActionSettingsUpdate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	has, err := enforcer.HasGroupingPolicy(admin, agent)
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy(admin, agent); err != nil {
			return err
		}
	}
	return nil
}
