package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/eligibility"
	"github.com/smallbiznis/sanad/internal/lock"
	"github.com/smallbiznis/sanad/internal/observability/metrics"
	"github.com/smallbiznis/sanad/internal/providers/blob"
	"github.com/smallbiznis/sanad/internal/providers/email"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/pkg/db"
	"github.com/smallbiznis/sanad/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCodeAttempts = 5
	codeLockTTL     = 5 * time.Second
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	Timeline     timelinedomain.Service
	Calculator   *eligibility.Calculator
	Compensation *config.CompensationConfigHolder
	Blob         blob.Store
	Email        email.Provider
	Verifier     domain.OwnershipVerifier
	Facts        domain.FlightFactsSource   `optional:"true"`
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
	timeline     timelinedomain.Service
	calculator   *eligibility.Calculator
	compensation *config.CompensationConfigHolder
	blob         blob.Store
	email        email.Provider
	verifier     domain.OwnershipVerifier
	facts        domain.FlightFactsSource
	locker       lock.Locker
	metrics      *metrics.Metrics
	capabilities *metrics.CapabilityMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("claim.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		timeline:     p.Timeline,
		calculator:   p.Calculator,
		compensation: p.Compensation,
		blob:         p.Blob,
		email:        p.Email,
		verifier:     p.Verifier,
		facts:        p.Facts,
		locker:       p.Locker,
		metrics:      p.Metrics,
		capabilities: p.Capabilities,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClaimRequest) (domain.Claim, error) {
	claim, err := s.buildClaim(req)
	if err != nil {
		return domain.Claim{}, err
	}

	quote, err := s.calculator.Quote(ctx, intakeFacts(claim))
	if err != nil {
		return domain.Claim{}, fmt.Errorf("compute eligibility: %w", err)
	}

	now := s.clock.Now().UTC()
	claim.Status = domain.StatusNew
	claim.CreatedAt = now
	claim.UpdatedAt = now
	claim.ApplyQuote(quote, now)

	var event *timelinedomain.Event
	issue := func(ctx context.Context) error {
		var err error
		event, err = s.insertWithCode(ctx, &claim, now.Year())
		return err
	}
	if s.locker != nil {
		err = lock.WithLock(ctx, s.locker, fmt.Sprintf("claim-code:%d", now.Year()), codeLockTTL, issue)
	} else {
		err = issue(ctx)
	}
	if err != nil {
		return domain.Claim{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordClaimCreated(ctx, string(claim.Category))
	s.log.Info("claim created",
		zap.String("claim_id", claim.ID.String()),
		zap.String("claim_code", claim.ClaimCode),
		zap.String("category", string(claim.Category)),
	)
	return claim, nil
}

// insertWithCode issues the next code of year inside the insert transaction and
// retries when a concurrent writer took the same sequence.
func (s *Service) insertWithCode(ctx context.Context, claim *domain.Claim, year int) (*timelinedomain.Event, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		var event *timelinedomain.Event
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := s.repo.MaxCodeSequence(ctx, tx, year)
			if err != nil {
				return err
			}
			claim.ID = s.genID.Generate()
			claim.CodeYear = year
			claim.CodeSeq = seq + 1
			claim.ClaimCode = domain.FormatClaimCode(year, seq+1)

			if err := s.repo.Insert(ctx, tx, claim); err != nil {
				return err
			}
			event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
				ClaimID: claim.ID,
				Type:    timelinedomain.TypeCreation,
				Message: fmt.Sprintf("Claim %s submitted", claim.ClaimCode),
				Metadata: map[string]any{
					"category":   string(claim.Category),
					"issue_type": claim.IssueType,
				},
			})
			return err
		})
		if err == nil {
			return event, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		lastErr = err
		s.log.Warn("claim code collision, retrying",
			zap.Int("year", year),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("%w: claim code: %v", domain.ErrConflict, lastErr)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Claim, error) {
	claim, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Claim{}, err
	}
	if claim == nil {
		return domain.Claim{}, domain.ErrNotFound
	}
	return *claim, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClaimRequest) (domain.ListClaimResponse, error) {
	filter := domain.ListFilter{
		Search: strings.TrimSpace(req.Search),
		Limit:  req.Limit(),
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListClaimResponse{}, domain.Invalid("status", "unknown status")
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.Category); raw != "" {
		category := domain.Category(strings.ToLower(raw))
		if !category.Valid() {
			return domain.ListClaimResponse{}, domain.Invalid("category", "must be flight or delivery")
		}
		filter.Category = category
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListClaimResponse{}, domain.Invalid("page_token", "malformed")
		}
		filter.Cursor = &domain.ListCursor{ID: snowflake.ID(cursor.ID), CreatedAt: cursor.CreatedAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListClaimResponse{}, err
	}

	items, pageInfo, err := pagination.BuildCursorPageInfo(items, filter.Limit, func(c *domain.Claim) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.Int64(), CreatedAt: c.CreatedAt}
	})
	if err != nil {
		return domain.ListClaimResponse{}, err
	}

	claims := make([]domain.Claim, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		claims = append(claims, *item)
	}

	resp := domain.ListClaimResponse{Claims: claims}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateClaimRequest) (domain.Claim, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Claim{}, err
	}

	changed, err := applyUpdate(&current, req)
	if err != nil {
		return domain.Claim{}, err
	}

	now := s.clock.Now().UTC()
	if changed && !current.Status.Terminal() {
		quote, err := s.liveQuote(ctx, current)
		if err != nil {
			return domain.Claim{}, err
		}
		current.ApplyQuote(quote.Quote, now)
	}

	var (
		updated domain.Claim
		event   *timelinedomain.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrNotFound
		}
		// status may have moved since the read above; it is never written from here
		current.Status = locked.Status
		current.SubmittedAt = locked.SubmittedAt
		if locked.Status.Terminal() {
			current.EligibilityStatus = locked.EligibilityStatus
			current.EstimatedSDR = locked.EstimatedSDR
			current.EstimatedLocal = locked.EstimatedLocal
			current.QuoteRate = locked.QuoteRate
			current.QuoteCurrency = locked.QuoteCurrency
			current.QuotedAt = locked.QuotedAt
		}
		current.UpdatedAt = now
		updated = current
		if err := s.repo.Update(ctx, tx, &updated); err != nil {
			return err
		}
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID:  id,
			Type:     timelinedomain.TypeNote,
			Message:  "Claim details updated",
			Metadata: map[string]any{"fields": updatedFields(req)},
		})
		return err
	})
	if err != nil {
		return domain.Claim{}, err
	}
	s.timeline.Publish(ctx, event)
	return updated, nil
}

func (s *Service) Eligibility(ctx context.Context, claimID snowflake.ID) (domain.EligibilityView, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return domain.EligibilityView{}, err
	}
	if claim.Status.Terminal() && claim.QuotedAt != nil {
		return domain.EligibilityView{ClaimID: claim.ID, Basis: domain.BasisFrozen, Quote: frozenQuote(claim)}, nil
	}
	view, err := s.liveQuote(ctx, claim)
	if err != nil {
		return domain.EligibilityView{}, err
	}
	return view, nil
}

// liveQuote prices claim at the current rate, preferring verified flight facts over intake.
func (s *Service) liveQuote(ctx context.Context, claim domain.Claim) (domain.EligibilityView, error) {
	facts := intakeFacts(claim)
	basis := domain.BasisIntake

	if s.facts != nil && claim.Category == domain.CategoryFlight {
		verified, err := s.facts.VerifiedFlightFacts(ctx, claim.ID)
		if err != nil {
			return domain.EligibilityView{}, fmt.Errorf("load verified flight facts: %w", err)
		}
		if overridden, ok := applyVerifiedFacts(facts, verified); ok {
			facts = overridden
			basis = domain.BasisVerifiedFlight
		}
	}

	quote, err := s.calculator.Quote(ctx, facts)
	if err != nil {
		return domain.EligibilityView{}, fmt.Errorf("compute eligibility: %w", err)
	}
	return domain.EligibilityView{ClaimID: claim.ID, Basis: basis, Quote: quote}, nil
}

func intakeFacts(claim domain.Claim) eligibility.Facts {
	return eligibility.Facts{IssueType: claim.IssueType, DelayHours: claim.DelayHours}
}

func applyVerifiedFacts(facts eligibility.Facts, verified *domain.FlightFacts) (eligibility.Facts, bool) {
	if verified == nil {
		return facts, false
	}
	if verified.Cancelled {
		return eligibility.Facts{IssueType: eligibility.IssueCancel}, true
	}
	if verified.DelayMinutes != nil && eligibility.NormalizeIssueType(facts.IssueType) == eligibility.IssueDelay {
		hours := float64(*verified.DelayMinutes) / 60
		return eligibility.Facts{IssueType: eligibility.IssueDelay, DelayHours: &hours}, true
	}
	return facts, false
}

func frozenQuote(claim domain.Claim) eligibility.Quote {
	return eligibility.Quote{
		Result: eligibility.Result{
			Status:         eligibility.Status(claim.EligibilityStatus),
			SDRAmount:      claim.EstimatedSDR,
			LocalAmount:    claim.EstimatedLocal,
			ConversionRate: claim.QuoteRate,
			Message:        "estimate frozen when the claim was closed",
		},
		Currency: claim.QuoteCurrency,
	}
}

func (s *Service) observeCapability(capability string, started time.Time, err error) {
	s.capabilities.Observe(capability, time.Since(started), err)
}
