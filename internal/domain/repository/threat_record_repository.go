// Package repository defines the persistence collaborator interfaces for the
// pipeline aggregates. Implementations live under internal/infrastructure.
package repository

import (
	"context"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
)

// ThreatRecordRepository persists canonical threat records. The storage layer
// enforces the unique index on content_hash; Insert must surface a racing
// duplicate as a duplicate_conflict coded error so the caller can treat it as
// "duplicate observed".
type ThreatRecordRepository interface {
	// FindByContentHash returns the record with the given content hash, or
	// (nil, nil) when none exists.
	FindByContentHash(ctx context.Context, hash string) (*models.ThreatRecord, error)

	// Insert persists a new record.
	Insert(ctx context.Context, record *models.ThreatRecord) error

	// TouchLastSeen advances last_seen for the record with the given content
	// hash. last_seen is monotonically non-decreasing: an older observation
	// never rewinds it.
	TouchLastSeen(ctx context.Context, hash string, seenAt time.Time) error

	// DiscoveredSince returns records discovered at or after the given time.
	DiscoveredSince(ctx context.Context, since time.Time) ([]models.ThreatRecord, error)

	// CountFirstSeenBetween counts records first seen in [from, to), optionally
	// filtered by threat type (empty string matches all types).
	CountFirstSeenBetween(ctx context.Context, threatType string, from, to time.Time) (int64, error)
}
