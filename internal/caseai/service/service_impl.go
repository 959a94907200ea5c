package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/lock"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/observability/tracing"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       config.Config
	Repo         domain.Repository
	Claims       claimdomain.Repository
	Timeline     timelinedomain.Service
	Analyzer     domain.Analyzer
	Locker       lock.Locker                `optional:"true"`
	Metrics      *metrics.Metrics           `optional:"true"`
	Capabilities *metrics.CapabilityMetrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	claims       claimdomain.Repository
	timeline     timelinedomain.Service
	analyzer     domain.Analyzer
	locker       lock.Locker
	metrics      *metrics.Metrics
	capabilities *metrics.CapabilityMetrics
	timeout      time.Duration
}

func New(p Params) domain.Service {
	timeout := p.Config.CapabilityTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("caseai.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		claims:       p.Claims,
		timeline:     p.Timeline,
		analyzer:     p.Analyzer,
		locker:       p.Locker,
		metrics:      p.Metrics,
		capabilities: p.Capabilities,
		timeout:      timeout,
	}
}

func (s *Service) Get(ctx context.Context, claimID snowflake.ID) (*domain.AiOutput, error) {
	return s.repo.FindByClaim(ctx, s.db, claimID)
}

// Run answers from the stored output when the inputs and mode are unchanged,
// otherwise calls the analyzer and merges its fields into the stored output.
func (s *Service) Run(ctx context.Context, req domain.RunRequest) (domain.Result, error) {
	mode, ok := domain.ParseMode(req.Mode)
	if !ok {
		return domain.Result{}, claimdomain.Invalid("mode", "must be one of analyze, draft, followup")
	}

	claim, err := s.claims.FindByID(ctx, s.db, req.ClaimID)
	if err != nil {
		return domain.Result{}, err
	}
	if claim == nil {
		return domain.Result{}, claimdomain.ErrNotFound
	}

	cc := domain.CaseContext{
		Mode:                mode,
		Claim:               snapshot(*claim),
		EvidenceText:        req.EvidenceText,
		AirlineResponseText: req.AirlineResponseText,
	}
	if req.Claim != nil {
		cc.Claim = *req.Claim
	}
	hash, err := inputHash(cc)
	if err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	run := func(ctx context.Context) error {
		var err error
		result, err = s.run(ctx, claim.ID, cc, hash)
		return err
	}
	if s.locker == nil {
		err = run(ctx)
	} else {
		// the lock outlives one analyzer call so a second caller sees the fresh cache entry
		err = lock.WithLock(ctx, s.locker, "caseai:"+claim.ID.String(), s.timeout+10*time.Second, run)
	}
	return result, err
}

func (s *Service) run(ctx context.Context, claimID snowflake.ID, cc domain.CaseContext, hash string) (domain.Result, error) {
	existing, err := s.repo.FindByClaim(ctx, s.db, claimID)
	if err != nil {
		return domain.Result{}, err
	}
	if existing != nil && existing.InputHash == hash && existing.Mode == cc.Mode {
		s.metrics.RecordCaseAnalysis(ctx, string(cc.Mode), true)
		return domain.Result{Fields: fieldsOf(*existing), Mode: cc.Mode, Cached: true}, nil
	}

	var raw string
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.analyzer.Analyze(ctx, cc)
		return err
	}, attribute.String("mode", string(cc.Mode)))
	if err != nil {
		s.recordFailure(ctx, claimID, cc.Mode, err)
		return domain.Result{}, fmt.Errorf("%w: %s: %v", claimdomain.ErrExternalCapability, cc.Mode.Label(), err)
	}

	fields, validStrength := normalize(raw)
	if !validStrength {
		s.log.Warn("analyzer returned an unknown case strength", zap.String("claim_id", claimID.String()))
	}

	now := s.clock.Now().UTC()
	out := domain.AiOutput{ID: s.genID.Generate(), ClaimID: claimID, CreatedAt: now}
	if existing != nil {
		out = *existing
	}
	merge(&out, fields)
	out.InputHash = hash
	out.Mode = cc.Mode
	out.UpdatedAt = now

	var event *timelinedomain.Event
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &out); err != nil {
			return fmt.Errorf("persist ai output: %w", err)
		}
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID:  claimID,
			Type:     timelinedomain.TypeAIAction,
			Message:  fmt.Sprintf("Generated %s", cc.Mode.Label()),
			Metadata: map[string]any{"mode": string(cc.Mode)},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Result{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordCaseAnalysis(ctx, string(cc.Mode), false)
	return domain.Result{Fields: fieldsOf(out), Mode: cc.Mode, Cached: false}, nil
}

func (s *Service) call(ctx context.Context, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := tracing.StartCapabilitySpan(ctx, metrics.CapabilityCaseAnalysis, attrs...)
	started := time.Now()

	err := fn(ctx)
	s.capabilities.Observe(metrics.CapabilityCaseAnalysis, time.Since(started), err)
	tracing.EndSpan(span, err)
	return err
}

func (s *Service) recordFailure(ctx context.Context, claimID snowflake.ID, mode domain.Mode, cause error) {
	s.log.Warn("case analysis failed",
		zap.String("claim_id", claimID.String()),
		zap.String("mode", string(mode)),
		zap.Error(cause),
	)

	var event *timelinedomain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claimID,
			Type:    timelinedomain.TypeAIAction,
			Message: fmt.Sprintf("Could not generate %s", mode.Label()),
			Metadata: map[string]any{
				"mode":    string(mode),
				"outcome": metrics.ClassifyOutcome(cause),
			},
		})
		return err
	})
	if err != nil {
		s.log.Error("failed to record case analysis failure", zap.String("claim_id", claimID.String()), zap.Error(err))
		return
	}
	s.timeline.Publish(ctx, event)
}

// merge overwrites only the fields the current mode produced.
func merge(out *domain.AiOutput, f domain.Fields) {
	if f.Summary != nil {
		out.Summary = f.Summary
	}
	if f.CaseStrength != nil {
		out.CaseStrength = f.CaseStrength
	}
	if f.EligibilityReasoning != nil {
		out.EligibilityReasoning = f.EligibilityReasoning
	}
	if f.ClaimDraft != nil {
		out.ClaimDraft = f.ClaimDraft
	}
	if f.NextAction != nil {
		out.NextAction = f.NextAction
	}
}

func fieldsOf(out domain.AiOutput) domain.Fields {
	return domain.Fields{
		Summary:              out.Summary,
		CaseStrength:         out.CaseStrength,
		EligibilityReasoning: out.EligibilityReasoning,
		ClaimDraft:           out.ClaimDraft,
		NextAction:           out.NextAction,
	}
}

func snapshot(c claimdomain.Claim) domain.ClaimData {
	data := domain.ClaimData{
		Airline:        c.CompanyName,
		FlightNumber:   c.ReferenceNumber,
		Date:           c.IncidentDate.UTC().Format("2006-01-02"),
		DisruptionType: c.IssueType,
	}
	if c.FlightFrom != nil {
		data.From = *c.FlightFrom
	}
	if c.FlightTo != nil {
		data.To = *c.FlightTo
	}
	if c.DelayHours != nil {
		minutes := int(math.Round(*c.DelayHours * 60))
		data.DelayMinutes = &minutes
	}
	if c.Description != "" {
		reason := c.Description
		data.ReasonText = &reason
	}
	return data
}
