package events

import (
	"context"

	"github.com/smallbiznis/sanad/internal/config"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns no publisher when Kafka is not configured; the
// timeline then skips streaming.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (timelinedomain.Publisher, error) {
	if !cfg.Kafka.Enabled() {
		log.Info("kafka not configured, timeline events are not streamed")
		return nil, nil
	}
	pub, err := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TimelineTopic)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}
