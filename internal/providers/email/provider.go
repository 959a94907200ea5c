package email

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("email_not_configured")

type Provider interface {
	Send(ctx context.Context, to []string, subject string, body string) error
	Configured() bool
}

// NoOpProvider is used when no SMTP relay is configured; messages are only recorded.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(context.Context, []string, string, string) error {
	return ErrNotConfigured
}

func (p *NoOpProvider) Configured() bool { return false }
