package repository

import (
	"context"

	"github.com/turtacn/intelpipe/internal/domain/models"
)

// AlertRepository persists alerts. The unique index on trigger_key backs the
// idempotency guarantee: Insert surfaces a duplicate trigger as a
// duplicate_conflict coded error, which the emitter treats as already
// alerted.
type AlertRepository interface {
	// Insert persists a new alert.
	Insert(ctx context.Context, alert *models.Alert) error

	// ExistsForTrigger reports whether an alert already exists for the
	// trigger key.
	ExistsForTrigger(ctx context.Context, triggerKey string) (bool, error)
}
