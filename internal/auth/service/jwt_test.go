package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/sanad/internal/auth/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(secret, issuer string, clk clock.Clock) domain.Service {
	return New(Params{
		Config: config.Config{AuthJWTSecret: secret, AuthJWTIssuer: issuer},
		Log:    zap.NewNop(),
		Clock:  clk,
	})
}

func TestIssueAndVerify(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	svc := newService("s3cret", "sanad", clk)
	ctx := context.Background()

	token, err := svc.Issue(ctx, domain.Principal{Subject: "staff-1", Name: "Huda", Role: domain.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	p, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", p.Subject)
	assert.Equal(t, "Huda", p.Name)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.True(t, p.ExpiresAt.Equal(clk.Now().Add(time.Hour)))

	clk.Advance(2 * time.Hour)
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyRejects(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	svc := newService("s3cret", "sanad", clk)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	other := newService("other", "sanad", clk)
	foreign, err := other.Issue(ctx, domain.Principal{Subject: "x", Role: domain.RoleAgent}, time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, foreign)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	wrongIssuer := newService("s3cret", "elsewhere", clk)
	token, err := wrongIssuer.Issue(ctx, domain.Principal{Subject: "x", Role: domain.RoleAgent}, time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, staffClaims{
		Role: "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			Issuer:    "sanad",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	signed, err := unknownRole.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = svc.Verify(ctx, signed)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, staffClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			Issuer:    "sanad",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, unsigned)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestIssueValidatesPrincipal(t *testing.T) {
	svc := newService("s3cret", "", clock.NewFakeClock(time.Now()))
	_, err := svc.Issue(context.Background(), domain.Principal{Role: domain.RoleAgent}, time.Hour)
	assert.Error(t, err)
	_, err = svc.Issue(context.Background(), domain.Principal{Subject: "x", Role: "owner"}, time.Hour)
	assert.Error(t, err)
}

func TestVerifyWithoutSecret(t *testing.T) {
	svc := newService("", "", clock.NewFakeClock(time.Now()))
	_, err := svc.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
