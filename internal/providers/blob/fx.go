package blob

import (
	"github.com/smallbiznis/sanad/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.blob",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) (Store, error) {
	return NewLocalStore(cfg.BlobRoot, cfg.UploadMaxBytes)
}
