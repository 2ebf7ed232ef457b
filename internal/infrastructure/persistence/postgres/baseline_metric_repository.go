package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
)

// BaselineMetricRepository is the gorm implementation of the baseline store.
// Writes go through an atomic ON CONFLICT upsert keyed by name, so
// overlapping detection runs cannot duplicate rows or lose updates.
type BaselineMetricRepository struct {
	db *gorm.DB
}

// NewBaselineMetricRepository creates a new BaselineMetricRepository.
func NewBaselineMetricRepository(db *gorm.DB) repository.BaselineMetricRepository {
	return &BaselineMetricRepository{db: db}
}

// Upsert creates or replaces the metric row with the given name.
func (r *BaselineMetricRepository) Upsert(ctx context.Context, metric *models.BaselineMetric) error {
	metric.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"threat_type", "window_days", "baseline_value", "current_value",
			"spike_threshold", "calculated_at", "updated_at",
		}),
	}).Create(metric).Error
	return translate(err, "upserting baseline metric")
}

// FindByName returns the metric row, or (nil, nil) when none exists.
func (r *BaselineMetricRepository) FindByName(ctx context.Context, name string) (*models.BaselineMetric, error) {
	var metric models.BaselineMetric
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&metric).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err, "finding baseline metric")
	}
	return &metric, nil
}
