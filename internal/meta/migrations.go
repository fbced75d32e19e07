package meta

import (
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var (
	migratorOnce sync.Once
	migrator     *migrate.Migrate
	migratorErr  error
)

func getMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	migratorOnce.Do(func() {
		sqlDB, err := db.DB()
		if err != nil {
			migratorErr = err
			return
		}
		driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
		if err != nil {
			migratorErr = err
			return
		}
		source, err := iofs.New(migrationFiles, "migrations")
		if err != nil {
			migratorErr = err
			return
		}
		migrator, migratorErr = migrate.NewWithInstance("iofs", source, "postgres", driver)
	})
	return migrator, migratorErr
}

// RunMigrations applies every pending versioned migration. This is the
// production path; AutoMigrate (connect.go) remains available for
// local/dev bootstrap and tests, following the
// teacher's AutoMigrateAndSeed convenience.
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	m, err := getMigrator(db)
	if err != nil {
		return fmt.Errorf("meta: build migrator: %w", err)
	}
	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Info("no pending migrations")
			return nil
		}
		return fmt.Errorf("meta: run migrations: %w", err)
	}
	logger.Info("migrations completed")
	return nil
}
