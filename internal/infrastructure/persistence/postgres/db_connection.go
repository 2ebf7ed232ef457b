// Package postgres provides the gorm-backed implementation of the repository
// interfaces. Production runs on PostgreSQL; tests open the same repositories
// over the sqlite driver.
package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/intelpipe/internal/config"
	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// NewDBConnection opens the PostgreSQL connection pool and migrates the
// pipeline schema. TranslateError is required: duplicate-key races must
// surface as gorm.ErrDuplicatedKey so repositories can translate them to
// duplicate_conflict.
func NewDBConnection(cfg *config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistenceFailed, "opening database connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistenceFailed, "accessing connection pool")
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info(context.Background(), "database connected", logger.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	})
	return db, nil
}

// Migrate creates or updates the pipeline tables, including the unique
// indexes that back dedup and alert idempotency.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.ThreatRecord{},
		&models.RiskScore{},
		&models.BaselineMetric{},
		&models.Alert{},
	)
	if err != nil {
		return errors.Wrap(err, errors.CodePersistenceFailed, "migrating schema")
	}
	return nil
}

// translate maps gorm errors to the pipeline's coded errors. A duplicate-key
// violation is a dedup outcome, everything else a persistence failure.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrap(err, errors.CodeDuplicateConflict, "%s hit unique constraint", op)
	}
	return errors.Wrap(err, errors.CodePersistenceFailed, "%s", op)
}
