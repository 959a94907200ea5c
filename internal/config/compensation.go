package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CompensationConfig is the file-backed part of the eligibility settings.
type CompensationConfig struct {
	ConversionRate           float64 `mapstructure:"conversionRate"`
	Currency                 string  `mapstructure:"currency"`
	MissedConnectionEligible bool    `mapstructure:"missedConnectionEligible"`
}

func DefaultCompensationConfig() CompensationConfig {
	return CompensationConfig{
		ConversionRate:           5.1,
		Currency:                 "SAR",
		MissedConnectionEligible: true,
	}
}

type CompensationConfigHolder struct {
	current atomic.Value // holds CompensationConfig
}

// NewStaticCompensationConfigHolder returns a holder that never reloads.
func NewStaticCompensationConfigHolder(cfg CompensationConfig) *CompensationConfigHolder {
	holder := &CompensationConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewCompensationConfigHolder(log *zap.Logger) (*CompensationConfigHolder, error) {
	log = log.Named("config.compensation")
	v := viper.New()

	v.SetConfigName("compensation")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/sanad")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SANAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCompensationConfig()
	v.SetDefault("compensation.conversionRate", defaults.ConversionRate)
	v.SetDefault("compensation.currency", defaults.Currency)
	v.SetDefault("compensation.missedConnectionEligible", defaults.MissedConnectionEligible)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg CompensationConfig
	if err := v.UnmarshalKey("compensation", &cfg); err != nil {
		return nil, err
	}
	if err := validateCompensationConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCompensationConfigHolder(cfg)
	if !fileFound {
		log.Info("compensation config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CompensationConfig
		if err := v.UnmarshalKey("compensation", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateCompensationConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name), zap.Float64("conversion_rate", updated.ConversionRate))
	})

	return holder, nil
}

func (h *CompensationConfigHolder) Get() CompensationConfig {
	return h.current.Load().(CompensationConfig)
}

func validateCompensationConfig(cfg CompensationConfig) error {
	if cfg.ConversionRate <= 0 {
		return errors.New("compensation.conversionRate must be positive")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("compensation.currency cannot be empty")
	}
	return nil
}
