package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.FlightVerification{}, &domain.DocumentCheck{}))
	return db
}

func pendingVerification(id, claimID snowflake.ID, flight string, at time.Time) *domain.FlightVerification {
	return &domain.FlightVerification{
		ID:                 id,
		ClaimID:            claimID,
		FlightNumber:       &flight,
		VerificationStatus: domain.StatusPending,
		FlightStatus:       domain.FlightUnknown,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
}

func TestInsertOverwritesRowCreatedByAnotherWriter(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := Provide()
	claimID := snowflake.ID(42)
	first := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Second)

	// both uploads saw no row and raced to create one
	winner := pendingVerification(100, claimID, "XA123", first)
	require.NoError(t, repo.Insert(ctx, db, winner))

	late := pendingVerification(200, claimID, "XA456", second)
	require.NoError(t, repo.Insert(ctx, db, late))
	assert.Equal(t, snowflake.ID(100), late.ID)
	assert.True(t, late.CreatedAt.Equal(first))

	var count int64
	require.NoError(t, db.Model(&domain.FlightVerification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByClaim(ctx, db, claimID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snowflake.ID(100), stored.ID)
	require.NotNil(t, stored.FlightNumber)
	assert.Equal(t, "XA456", *stored.FlightNumber)
	assert.True(t, stored.UpdatedAt.Equal(second))
}

func TestFindByClaimMissing(t *testing.T) {
	db := setupDB(t)

	v, err := Provide().FindByClaim(context.Background(), db, snowflake.ID(7))
	require.NoError(t, err)
	assert.Nil(t, v)
}
