package flightstatus

import (
	"github.com/smallbiznis/sanad/internal/config"
	"github.com/smallbiznis/sanad/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.flightstatus",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) domain.FlightStatusProvider {
	if cfg.FlightStatus.AeroDataBoxAPIKey == "" {
		log.Warn("AERODATABOX_API_KEY not set, flight verification uses mock data")
		return NewMock()
	}
	return NewAeroDataBox(cfg.FlightStatus.AeroDataBoxAPIKey, cfg.FlightStatus.AeroDataBoxHost)
}
