package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/sanad/internal/auth/domain"
	"github.com/smallbiznis/sanad/internal/clock"
	"github.com/smallbiznis/sanad/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const leeway = 30 * time.Second

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Clock  clock.Clock
}

// Service verifies HS256 staff tokens signed with the shared secret.
type Service struct {
	secret []byte
	issuer string
	log    *zap.Logger
	clock  clock.Clock
}

func New(p Params) domain.Service {
	log := p.Log.Named("auth.service")
	if strings.TrimSpace(p.Config.AuthJWTSecret) == "" {
		log.Warn("AUTH_JWT_SECRET not set, staff endpoints reject every request")
	}
	return &Service{
		secret: []byte(p.Config.AuthJWTSecret),
		issuer: p.Config.AuthJWTIssuer,
		log:    log,
		clock:  p.Clock,
	}
}

type staffClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) Verify(_ context.Context, rawToken string) (domain.Principal, error) {
	if len(s.secret) == 0 {
		return domain.Principal{}, domain.ErrNotConfigured
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Principal{}, domain.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(rawToken, &staffClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*staffClaims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Principal{}, fmt.Errorf("%w: subject is required", domain.ErrInvalidToken)
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidToken, claims.Role)
	}

	return domain.Principal{
		Subject:   claims.Subject,
		Name:      claims.Name,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (s *Service) Issue(_ context.Context, p domain.Principal, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrNotConfigured
	}
	if strings.TrimSpace(p.Subject) == "" {
		return "", errors.New("subject is required")
	}
	if _, ok := domain.ParseRole(string(p.Role)); !ok {
		return "", fmt.Errorf("unknown role %q", p.Role)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	now := s.clock.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, staffClaims{
		Name: p.Name,
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}
