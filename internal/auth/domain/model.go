package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingToken  = errors.New("missing_token")
	ErrInvalidToken  = errors.New("invalid_token")
	ErrNotConfigured = errors.New("auth_not_configured")
)

type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAgent, RoleAdmin:
		return r, true
	}
	return "", false
}

// Principal is an authenticated staff member.
type Principal struct {
	Subject   string
	Name      string
	Role      Role
	ExpiresAt time.Time
}

type Service interface {
	// Verify parses a bearer token and returns its staff principal.
	Verify(ctx context.Context, rawToken string) (Principal, error)
	// Issue signs a token for p, valid for ttl.
	Issue(ctx context.Context, p Principal, ttl time.Duration) (string, error)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
