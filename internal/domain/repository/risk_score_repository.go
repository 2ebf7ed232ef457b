package repository

import (
	"context"

	"github.com/turtacn/intelpipe/internal/domain/models"
)

// RiskScoreRepository persists scoring results. Scores are append-only; one
// new row per record per scoring run.
type RiskScoreRepository interface {
	// Insert appends a new score row.
	Insert(ctx context.Context, score *models.RiskScore) error

	// ListForRecord returns all scores for a record, newest first.
	ListForRecord(ctx context.Context, threatRecordID string) ([]models.RiskScore, error)
}
