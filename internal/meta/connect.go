package meta

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens a Postgres connection pool for the Meta store,
// following the teacher's database.Connect pool-tuning shape.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("meta: empty DSN")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	return db, nil
}

// AutoMigrate creates/updates the apps and uploads tables directly
// from the Go structs. Kept for local/dev bootstrap alongside the
// versioned migrations in RunMigrations, following the teacher's
// AutoMigrateAndSeed convenience.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&App{}, &Upload{})
}
