package ai

import (
	casedomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Capabilities is the set of AI-backed collaborators.
type Capabilities interface {
	domain.OCR
	domain.DocumentClassifier
	casedomain.Analyzer
}

type Result struct {
	fx.Out

	OCR        domain.OCR
	Classifier domain.DocumentClassifier
	Analyzer   casedomain.Analyzer
}

var Module = fx.Module("providers.ai",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Result {
	var caps Capabilities = Unavailable{}
	if cfg.AI.APIKey != "" {
		caps = NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	} else {
		log.Warn("AI_API_KEY not set, OCR, document classification and case analysis are unavailable")
	}
	return Result{OCR: caps, Classifier: caps, Analyzer: caps}
}
