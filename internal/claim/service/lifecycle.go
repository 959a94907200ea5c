package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sanad/internal/claim/domain"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Transition moves a claim along the lifecycle graph. The status write and its
// status_change event commit together.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Claim, error) {
	to, ok := domain.ParseStatus(req.To)
	if !ok {
		return domain.Claim{}, domain.Invalid("status", "unknown status")
	}

	current, err := s.Get(ctx, req.ClaimID)
	if err != nil {
		return domain.Claim{}, err
	}
	if !domain.CanTransition(current.Status, to) {
		return domain.Claim{}, invalidTransition(current.Status, to)
	}

	// closing freezes the estimate; it is priced before the transaction opens
	var closing *domain.EligibilityView
	if to.Terminal() {
		view, err := s.liveQuote(ctx, current)
		if err != nil {
			return domain.Claim{}, err
		}
		closing = &view
	}

	var (
		updated domain.Claim
		from    domain.Status
		event   *timelinedomain.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.repo.FindByIDForUpdate(ctx, tx, req.ClaimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return domain.ErrNotFound
		}
		from = claim.Status
		if !domain.CanTransition(from, to) {
			return invalidTransition(from, to)
		}

		now := s.clock.Now().UTC()
		claim.Status = to
		claim.UpdatedAt = now
		if to == domain.StatusSubmitted && claim.SubmittedAt == nil {
			claim.SubmittedAt = &now
		}
		if closing != nil {
			claim.ApplyQuote(closing.Quote, now)
		}
		if err := s.repo.Update(ctx, tx, claim); err != nil {
			return err
		}

		message := fmt.Sprintf("Status changed from %s to %s", from, to)
		if note := strings.TrimSpace(req.Note); note != "" {
			message += ": " + note
		}
		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeStatusChange,
			Message: message,
			Metadata: map[string]any{
				"from_status": string(from),
				"to_status":   string(to),
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		updated = *claim
		return nil
	})
	if err != nil {
		return domain.Claim{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordTransition(ctx, string(from), string(to))
	s.log.Info("claim status changed",
		zap.String("claim_id", updated.ID.String()),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(to)),
	)
	return updated, nil
}

// CreateSettlement closes a claim. It forces resolved from any status and fails
// with ErrConflict when the claim already has a settlement.
func (s *Service) CreateSettlement(ctx context.Context, req domain.CreateSettlementRequest) (domain.Settlement, error) {
	var errs domain.ValidationErrors
	compType := domain.CompensationType(strings.ToLower(strings.TrimSpace(req.CompensationType)))
	if !compType.Valid() {
		errs.Add("compensation_type", "must be cash, voucher or refund")
	}
	if req.CompensationAmount <= 0 {
		errs.Add("compensation_amount", "must be positive")
	}
	if req.FeePercentage < 0 || req.FeePercentage > 100 || math.IsNaN(req.FeePercentage) {
		errs.Add("fee_percentage", "must be between 0 and 100")
	}
	if err := errs.Err(); err != nil {
		return domain.Settlement{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.compensation.Get().Currency
	}

	current, err := s.Get(ctx, req.ClaimID)
	if err != nil {
		return domain.Settlement{}, err
	}
	var closing *domain.EligibilityView
	if !current.Status.Terminal() {
		view, err := s.liveQuote(ctx, current)
		if err != nil {
			return domain.Settlement{}, err
		}
		closing = &view
	}

	var (
		settlement domain.Settlement
		event      *timelinedomain.Event
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.repo.FindByIDForUpdate(ctx, tx, req.ClaimID)
		if err != nil {
			return err
		}
		if claim == nil {
			return domain.ErrNotFound
		}
		existing, err := s.repo.FindSettlement(ctx, tx, claim.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: claim %s already settled", domain.ErrConflict, claim.ClaimCode)
		}

		now := s.clock.Now().UTC()
		settlement = domain.Settlement{
			ID:                 s.genID.Generate(),
			ClaimID:            claim.ID,
			CompensationType:   compType,
			CompensationAmount: req.CompensationAmount,
			FeePercentage:      req.FeePercentage,
			NetAmount:          NetAmount(req.CompensationAmount, req.FeePercentage),
			Currency:           currency,
			ClosedAt:           now,
			CreatedAt:          now,
		}
		if err := s.repo.InsertSettlement(ctx, tx, &settlement); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("%w: claim %s already settled", domain.ErrConflict, claim.ClaimCode)
			}
			return err
		}

		from := claim.Status
		claim.Status = domain.StatusResolved
		claim.UpdatedAt = now
		if closing != nil && !from.Terminal() {
			claim.ApplyQuote(closing.Quote, now)
		}
		if err := s.repo.Update(ctx, tx, claim); err != nil {
			return err
		}

		event, err = s.timeline.Append(ctx, tx, timelinedomain.AppendRequest{
			ClaimID: claim.ID,
			Type:    timelinedomain.TypeSettlement,
			Message: fmt.Sprintf("Settlement recorded: %s %d %s, net %d after %.2f%% fee",
				compType, settlement.CompensationAmount, currency, settlement.NetAmount, settlement.FeePercentage),
			Metadata: map[string]any{
				"settlement_id": settlement.ID.String(),
				"from_status":   string(from),
				"to_status":     string(domain.StatusResolved),
			},
		})
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Settlement{}, err
	}

	s.timeline.Publish(ctx, event)
	s.metrics.RecordSettlement(ctx, string(compType))
	s.log.Info("claim settled",
		zap.String("claim_id", settlement.ClaimID.String()),
		zap.String("settlement_id", settlement.ID.String()),
	)
	return settlement, nil
}

func (s *Service) GetSettlement(ctx context.Context, claimID snowflake.ID) (*domain.Settlement, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	return s.repo.FindSettlement(ctx, s.db, claimID)
}

// NetAmount is what reaches the customer after the service fee.
func NetAmount(amount int64, feePercentage float64) int64 {
	fee := int64(math.Round(float64(amount) * feePercentage / 100))
	return amount - fee
}

func invalidTransition(from, to domain.Status) error {
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}
