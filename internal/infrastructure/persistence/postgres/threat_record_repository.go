package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
)

// ThreatRecordRepository is the gorm implementation of the threat record
// store. The unique index on content_hash is the final dedup authority.
type ThreatRecordRepository struct {
	db *gorm.DB
}

// NewThreatRecordRepository creates a new ThreatRecordRepository.
func NewThreatRecordRepository(db *gorm.DB) repository.ThreatRecordRepository {
	return &ThreatRecordRepository{db: db}
}

// FindByContentHash returns the record for the hash, or (nil, nil) when none
// exists. Not-found is not an error here.
func (r *ThreatRecordRepository) FindByContentHash(ctx context.Context, hash string) (*models.ThreatRecord, error) {
	var record models.ThreatRecord
	err := r.db.WithContext(ctx).Where("content_hash = ?", hash).First(&record).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err, "finding threat record by content hash")
	}
	return &record, nil
}

// Insert persists a new record. A concurrent duplicate insert surfaces as a
// duplicate_conflict coded error.
func (r *ThreatRecordRepository) Insert(ctx context.Context, record *models.ThreatRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error, "inserting threat record")
}

// TouchLastSeen advances last_seen for a repeat sighting. The guard in the
// WHERE clause keeps last_seen monotonically non-decreasing even when
// observations arrive out of order.
func (r *ThreatRecordRepository) TouchLastSeen(ctx context.Context, hash string, seenAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.ThreatRecord{}).
		Where("content_hash = ? AND last_seen < ?", hash, seenAt).
		Update("last_seen", seenAt).Error
	return translate(err, "updating last_seen")
}

// DiscoveredSince returns records discovered at or after the given time,
// oldest first.
func (r *ThreatRecordRepository) DiscoveredSince(ctx context.Context, since time.Time) ([]models.ThreatRecord, error) {
	var records []models.ThreatRecord
	err := r.db.WithContext(ctx).
		Where("discovered_at >= ?", since).
		Order("discovered_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, "querying records by discovery time")
	}
	return records, nil
}

// CountFirstSeenBetween counts records first seen in [from, to), optionally
// filtered by threat type.
func (r *ThreatRecordRepository) CountFirstSeenBetween(ctx context.Context, threatType string, from, to time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.ThreatRecord{}).
		Where("first_seen >= ? AND first_seen < ?", from, to)
	if threatType != "" {
		q = q.Where("type = ?", threatType)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err, "counting records in window")
	}
	return count, nil
}
