package pdf

import (
	"context"
	"errors"

	"go.uber.org/fx"
)

var ErrNotSettled = errors.New("claim_not_settled")

type Provider interface {
	SettlementStatement(ctx context.Context, data StatementData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
