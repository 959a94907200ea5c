package eligibility

import (
	"context"

	"github.com/smallbiznis/sanad/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RateSource yields the SDR to local currency rate in effect right now.
type RateSource interface {
	ConversionRate(ctx context.Context) (float64, error)
}

// Facts are the inputs a quote is computed from.
type Facts struct {
	IssueType  string
	DelayHours *float64
}

// Quote is a Result tagged with the currency it was converted into.
type Quote struct {
	Result
	Currency string `json:"currency"`
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Rates  RateSource
	Config *config.CompensationConfigHolder
}

// Calculator reads the rate at every call so rate changes apply to the next quote.
type Calculator struct {
	log    *zap.Logger
	rates  RateSource
	config *config.CompensationConfigHolder
}

func NewCalculator(p Params) *Calculator {
	return &Calculator{
		log:    p.Log.Named("eligibility.calculator"),
		rates:  p.Rates,
		config: p.Config,
	}
}

func (c *Calculator) Quote(ctx context.Context, facts Facts) (Quote, error) {
	rate, err := c.rates.ConversionRate(ctx)
	if err != nil {
		return Quote{}, err
	}
	cfg := c.config.Get()

	res := Compute(facts.IssueType, facts.DelayHours, rate)
	if res.Status == StatusPossiblyEligible && !cfg.MissedConnectionEligible {
		res = Result{
			Status:         StatusNotEligible,
			ConversionRate: rate,
			Message:        "missed connections are not compensated under the current policy",
		}
	}

	return Quote{Result: res, Currency: cfg.Currency}, nil
}

var Module = fx.Module("eligibility",
	fx.Provide(NewCalculator),
)
