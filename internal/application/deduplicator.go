package application

import (
	"context"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/infrastructure/dedupcache"
	"github.com/turtacn/intelpipe/pkg/errors"
)

// Deduplicator resolves content identity against the persisted store. The
// in-process cache only short-circuits hot repeats; the unique index on
// content_hash is the authoritative guard, and an insert racing a concurrent
// duplicate is absorbed as "duplicate observed".
type Deduplicator struct {
	records repository.ThreatRecordRepository
	cache   *dedupcache.Cache
}

// NewDeduplicator creates a deduplicator. The cache may be nil.
func NewDeduplicator(records repository.ThreatRecordRepository, cache *dedupcache.Cache) *Deduplicator {
	return &Deduplicator{records: records, cache: cache}
}

// Observe persists a first sighting or records a repeat one. It returns true
// when the record was inserted, false when an existing record absorbed the
// observation (last_seen advanced). Only persistence failures propagate.
func (d *Deduplicator) Observe(ctx context.Context, record *models.ThreatRecord, observedAt time.Time) (bool, error) {
	if d.cache != nil && d.cache.Seen(record.ContentHash) {
		return false, d.touch(ctx, record.ContentHash, observedAt)
	}

	existing, err := d.records.FindByContentHash(ctx, record.ContentHash)
	if err != nil {
		return false, err
	}
	if existing != nil {
		d.mark(record.ContentHash)
		return false, d.touch(ctx, record.ContentHash, observedAt)
	}

	if err := d.records.Insert(ctx, record); err != nil {
		if errors.IsDuplicateConflict(err) {
			// Lost the insert race; the concurrent writer owns the row.
			d.mark(record.ContentHash)
			return false, d.touch(ctx, record.ContentHash, observedAt)
		}
		return false, err
	}

	d.mark(record.ContentHash)
	return true, nil
}

func (d *Deduplicator) touch(ctx context.Context, hash string, observedAt time.Time) error {
	return d.records.TouchLastSeen(ctx, hash, observedAt)
}

func (d *Deduplicator) mark(hash string) {
	if d.cache != nil {
		d.cache.Mark(hash)
	}
}
