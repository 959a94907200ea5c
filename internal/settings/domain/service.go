package domain

import (
	"context"
	"errors"
)

var ErrInvalidSetting = errors.New("invalid_setting")

type Service interface {
	// ConversionRate is read on every eligibility calculation.
	ConversionRate(ctx context.Context) (float64, error)
	GetConversionRate(ctx context.Context) (ConversionRate, error)
	UpdateConversionRate(ctx context.Context, rate float64) (ConversionRate, error)
}
