package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
)

// RiskScoreRepository is the gorm implementation of the append-only score
// store.
type RiskScoreRepository struct {
	db *gorm.DB
}

// NewRiskScoreRepository creates a new RiskScoreRepository.
func NewRiskScoreRepository(db *gorm.DB) repository.RiskScoreRepository {
	return &RiskScoreRepository{db: db}
}

// Insert appends a new score row. Prior scores are never touched.
func (r *RiskScoreRepository) Insert(ctx context.Context, score *models.RiskScore) error {
	return translate(r.db.WithContext(ctx).Create(score).Error, "inserting risk score")
}

// ListForRecord returns the scoring history for a record, newest first.
func (r *RiskScoreRepository) ListForRecord(ctx context.Context, threatRecordID string) ([]models.RiskScore, error) {
	var scores []models.RiskScore
	err := r.db.WithContext(ctx).
		Where("threat_record_id = ?", threatRecordID).
		Order("computed_at DESC").
		Find(&scores).Error
	if err != nil {
		return nil, translate(err, "listing risk scores")
	}
	return scores, nil
}
