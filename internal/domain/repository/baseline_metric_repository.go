package repository

import (
	"context"

	"github.com/turtacn/intelpipe/internal/domain/models"
)

// BaselineMetricRepository persists spike-detection baselines. Upsert is
// keyed by metric name and must be atomic at the storage boundary so that
// overlapping runs cannot produce lost updates or duplicate rows.
type BaselineMetricRepository interface {
	// Upsert creates or replaces the metric row with the given name.
	Upsert(ctx context.Context, metric *models.BaselineMetric) error

	// FindByName returns the metric with the given name, or (nil, nil) when
	// none exists.
	FindByName(ctx context.Context, name string) (*models.BaselineMetric, error)
}
