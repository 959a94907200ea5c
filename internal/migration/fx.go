package migration

import (
	"strings"

	"github.com/smallbiznis/sanad/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			log.Info("migrations skipped", zap.Bool("migrate_on_start", false))
			return nil
		}

		dbType := strings.ToLower(strings.TrimSpace(cfg.DBType))
		if dbType != "" && dbType != "postgres" {
			log.Info("running auto migrate", zap.String("db_type", dbType))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
