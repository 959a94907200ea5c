package domain

import "context"

// Analyzer is the external case-analysis capability. It returns the model's
// raw response text; normalization happens in the service.
type Analyzer interface {
	Analyze(ctx context.Context, c CaseContext) (string, error)
}
