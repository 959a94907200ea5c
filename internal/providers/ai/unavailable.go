package ai

import (
	"context"
	"fmt"

	casedomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	"github.com/smallbiznis/sanad/internal/verification/domain"
)

var errNotConfigured = fmt.Errorf("%w: AI capability not configured", claimdomain.ErrExternalCapability)

// Unavailable stands in when no API key is configured.
type Unavailable struct{}

func (Unavailable) ExtractBoardingPass(context.Context, domain.Image) (domain.BoardingPassData, error) {
	return domain.BoardingPassData{}, errNotConfigured
}

func (Unavailable) Classify(context.Context, domain.Image) (domain.DocumentClassification, error) {
	return domain.DocumentClassification{}, errNotConfigured
}

func (Unavailable) Analyze(context.Context, casedomain.CaseContext) (string, error) {
	return "", errNotConfigured
}
