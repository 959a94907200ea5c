package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	caseaidomain "github.com/smallbiznis/sanad/internal/caseai/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	settingsdomain "github.com/smallbiznis/sanad/internal/settings/domain"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	verificationdomain "github.com/smallbiznis/sanad/internal/verification/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.
	return nil
}

// Models lists every table owned by the application.
func Models() []any {
	return []any{
		&claimdomain.Claim{},
		&claimdomain.Attachment{},
		&claimdomain.Communication{},
		&claimdomain.Settlement{},
		&timelinedomain.Event{},
		&settingsdomain.Setting{},
		&verificationdomain.FlightVerification{},
		&verificationdomain.DocumentCheck{},
		&caseaidomain.AiOutput{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for mysql and
// sqlite, which the SQL migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
