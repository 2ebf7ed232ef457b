package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
)

// AlertRepository is the gorm implementation of the alert store. The unique
// index on trigger_key is the storage-level half of alert idempotency.
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) repository.AlertRepository {
	return &AlertRepository{db: db}
}

// Insert persists an alert. Inserting a trigger key that already exists
// surfaces as duplicate_conflict, which the emitter treats as already
// alerted.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	return translate(r.db.WithContext(ctx).Create(alert).Error, "inserting alert")
}

// ExistsForTrigger reports whether an alert already exists for the trigger.
func (r *AlertRepository) ExistsForTrigger(ctx context.Context, triggerKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("trigger_key = ?", triggerKey).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "checking alert trigger")
	}
	return count > 0, nil
}
