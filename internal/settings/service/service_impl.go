package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Config *config.CompensationConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	config *config.CompensationConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("settings.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		config: p.Config,
	}
}

func (s *Service) ConversionRate(ctx context.Context) (float64, error) {
	current, err := s.GetConversionRate(ctx)
	if err != nil {
		return 0, err
	}
	return current.Rate, nil
}

// GetConversionRate prefers the stored override and falls back to the
// hot-reloaded compensation config.
func (s *Service) GetConversionRate(ctx context.Context) (domain.ConversionRate, error) {
	cfg := s.config.Get()
	setting, err := s.repo.Find(ctx, s.db, domain.KeyConversionRate)
	if err != nil {
		return domain.ConversionRate{}, err
	}
	if setting != nil {
		rate, err := strconv.ParseFloat(setting.Value, 64)
		if err == nil && validRate(rate) {
			updatedAt := setting.UpdatedAt
			return domain.ConversionRate{Rate: rate, Currency: cfg.Currency, Source: domain.RateFromOverride, UpdatedAt: &updatedAt}, nil
		}
		s.log.Warn("ignoring malformed conversion rate override", zap.String("value", setting.Value))
	}
	return domain.ConversionRate{Rate: cfg.ConversionRate, Currency: cfg.Currency, Source: domain.RateFromConfig}, nil
}

func (s *Service) UpdateConversionRate(ctx context.Context, rate float64) (domain.ConversionRate, error) {
	if !validRate(rate) {
		return domain.ConversionRate{}, fmt.Errorf("%w: conversion rate must be positive", domain.ErrInvalidSetting)
	}

	now := s.clock.Now().UTC()
	setting := domain.Setting{
		Key:       domain.KeyConversionRate,
		Value:     strconv.FormatFloat(rate, 'f', -1, 64),
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, &setting); err != nil {
		return domain.ConversionRate{}, err
	}
	s.log.Info("conversion rate updated", zap.Float64("rate", rate))
	return domain.ConversionRate{Rate: rate, Currency: s.config.Get().Currency, Source: domain.RateFromOverride, UpdatedAt: &now}, nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}
