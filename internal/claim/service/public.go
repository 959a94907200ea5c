package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/pkg/masking"
	"go.uber.org/zap"
)

// PhoneOwnershipVerifier treats the claim's phone number as proof of ownership.
type PhoneOwnershipVerifier struct{}

func NewPhoneOwnershipVerifier() domain.OwnershipVerifier {
	return PhoneOwnershipVerifier{}
}

func (PhoneOwnershipVerifier) Owns(claim domain.Claim, factor string) bool {
	want := normalizePhone(claim.Phone)
	return want != "" && want == normalizePhone(factor)
}

// normalizePhone keeps digits and a leading plus so formatting differences do not matter.
func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Track answers a public lookup. A wrong phone looks exactly like a missing claim.
func (s *Service) Track(ctx context.Context, req domain.TrackRequest) (domain.TrackResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ClaimCode))
	phone := strings.TrimSpace(req.Phone)

	var errs domain.ValidationErrors
	required(&errs, "claim_code", code)
	required(&errs, "phone", phone)
	if err := errs.Err(); err != nil {
		return domain.TrackResponse{}, err
	}

	claim, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.TrackResponse{}, err
	}
	if claim == nil || !s.verifier.Owns(*claim, phone) {
		return domain.TrackResponse{}, domain.ErrNotFound
	}

	events, err := s.timeline.List(ctx, claim.ID)
	if err != nil {
		return domain.TrackResponse{}, err
	}
	return domain.TrackResponse{Claim: claim.Public(), Timeline: events}, nil
}

// History lists every claim filed under a phone number once the caller proves
// ownership of one of them.
func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.Claim, error) {
	phone := strings.TrimSpace(req.Phone)
	code := strings.ToUpper(strings.TrimSpace(req.VerifyClaimCode))

	var errs domain.ValidationErrors
	validatePhone(&errs, phone)
	required(&errs, "verify_claim_code", code)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	anchor, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if anchor == nil || !s.verifier.Owns(*anchor, phone) {
		s.log.Info("claim history ownership check failed",
			zap.String("claim_code", code),
			zap.String("phone", masking.MaskPhone(phone)),
		)
		return nil, domain.ErrForbidden
	}

	items, err := s.repo.ListByPhone(ctx, s.db, anchor.Phone)
	if err != nil {
		return nil, err
	}
	claims := make([]domain.Claim, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		claims = append(claims, item.Public())
	}
	return claims, nil
}
