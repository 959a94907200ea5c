package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/settings/domain"
	"github.com/smallbiznis/sanad/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Setting{}))

	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		Repo:   repository.Provide(),
		Config: config.NewStaticCompensationConfigHolder(config.DefaultCompensationConfig()),
	}).(*Service)
	return svc, db, clk
}

func TestConversionRateDefaultsToConfig(t *testing.T) {
	svc, _, _ := setupService(t)

	current, err := svc.GetConversionRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.1, current.Rate)
	assert.Equal(t, "SAR", current.Currency)
	assert.Equal(t, domain.RateFromConfig, current.Source)
}

func TestUpdateConversionRateOverrides(t *testing.T) {
	svc, _, clk := setupService(t)
	ctx := context.Background()

	_, err := svc.UpdateConversionRate(ctx, 5.25)
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, err = svc.UpdateConversionRate(ctx, 5.4)
	require.NoError(t, err)

	rate, err := svc.ConversionRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.4, rate)

	current, err := svc.GetConversionRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RateFromOverride, current.Source)
}

func TestUpdateConversionRateRejectsNonPositive(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.UpdateConversionRate(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSetting)
	_, err = svc.UpdateConversionRate(context.Background(), -2)
	assert.ErrorIs(t, err, domain.ErrInvalidSetting)
}

func TestMalformedOverrideFallsBack(t *testing.T) {
	svc, db, _ := setupService(t)
	require.NoError(t, db.Create(&domain.Setting{Key: domain.KeyConversionRate, Value: "abc", UpdatedAt: time.Now()}).Error)

	rate, err := svc.ConversionRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.1, rate)
}
