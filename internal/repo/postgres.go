// Package repo provides the gorm-backed persistence layer for snapshots
// and threshold settings.
package repo

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/equipsight/equipsight-engine/internal/models"
)

// Open connects to Postgres and prepares the connection pool.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the storage schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AnalysisSnapshot{},
		&models.ThresholdSettings{},
	)
}

// lockOwner serialises snapshot writes for one owner inside the current
// transaction. Postgres gets a transaction-scoped advisory lock; other
// dialects (the sqlite test database) rely on their single-writer
// transaction semantics.
func lockOwner(tx *gorm.DB, ownerID fmt.Stringer) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", ownerID.String()).Error
}
