package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/service"
	"github.com/turtacn/intelpipe/internal/infrastructure/feeds"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// IngestionService runs the fetch→normalize→dedup→persist cycle over the
// registered feed sources. Failures are isolated per source: a fetch or
// decode failure skips that source for the cycle and is retried on the next
// schedule. Only a persistence failure aborts the whole run.
type IngestionService struct {
	sources       []models.FeedSource
	fetcher       feeds.Fetcher
	normalizer    *service.Normalizer
	dedup         *Deduplicator
	metrics       *monitoring.Metrics
	logger        logger.Logger
	maxConcurrent int

	mu          sync.Mutex
	lastRun     *RunSummary
	lastFetched map[string]time.Time
}

// NewIngestionService creates the ingestion stage over the given source
// registry.
func NewIngestionService(
	sources []models.FeedSource,
	fetcher feeds.Fetcher,
	normalizer *service.Normalizer,
	dedup *Deduplicator,
	metrics *monitoring.Metrics,
	log logger.Logger,
	maxConcurrent int,
) *IngestionService {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &IngestionService{
		sources:       sources,
		fetcher:       fetcher,
		normalizer:    normalizer,
		dedup:         dedup,
		metrics:       metrics,
		logger:        log.WithComponent("ingestion"),
		maxConcurrent: maxConcurrent,
		lastFetched:   make(map[string]time.Time),
	}
}

// Stage implements StageRunner.
func (s *IngestionService) Stage() constants.Stage {
	return constants.StageIngestion
}

// LastRun returns the most recent run summary, or nil before the first run.
func (s *IngestionService) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Run executes one ingestion cycle. Sources are fetched concurrently with a
// bounded limit; relative order between sources is irrelevant because
// identity is content-derived. Re-running over unchanged upstream data is
// idempotent: dedup absorbs every repeat. force ingests sources even when
// their poll interval has not elapsed.
func (s *IngestionService) Run(ctx context.Context, force bool) (*RunSummary, error) {
	start := time.Now().UTC()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, constants.ContextKeyRunID, runID)

	s.logger.Info(ctx, "ingestion run started", logger.Fields{"sources": len(s.sources), "forced": force})

	results := make([]SourceResult, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, src := range s.sources {
		i, src := i, src
		if !src.Enabled {
			results[i] = SourceResult{SourceID: src.ID, Skipped: true, SkipReason: "disabled"}
			continue
		}
		if !force && !s.due(src, start) {
			results[i] = SourceResult{SourceID: src.ID, Skipped: true, SkipReason: "not due"}
			continue
		}
		g.Go(func() error {
			res, fatal := s.ingestSource(gctx, src, start)
			results[i] = res
			return fatal
		})
	}

	fatal := g.Wait()

	summary := &RunSummary{
		Stage:      constants.StageIngestion,
		RunID:      runID,
		StartedAt:  start,
		FinishedAt: time.Now().UTC(),
		Sources:    results,
	}
	for _, res := range results {
		summary.Inserted += res.Inserted
		summary.Duplicates += res.Duplicates
		summary.Errors += res.Errors
	}

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	if fatal != nil {
		s.metrics.RecordRun(string(constants.StageIngestion), "aborted", summary.FinishedAt.Sub(start))
		s.logger.Error(ctx, "ingestion run aborted", fatal, logger.Fields{"inserted": summary.Inserted})
		return summary, fatal
	}

	s.metrics.RecordRun(string(constants.StageIngestion), "ok", summary.FinishedAt.Sub(start))
	s.logger.Info(ctx, "ingestion run finished", logger.Fields{
		"inserted":   summary.Inserted,
		"duplicates": summary.Duplicates,
		"errors":     summary.Errors,
	})
	return summary, nil
}

// ingestSource processes one source strictly sequentially:
// fetch→decode→normalize→dedup→persist. The returned error is non-nil only
// for persistence failures, which abort the run.
func (s *IngestionService) ingestSource(ctx context.Context, src models.FeedSource, now time.Time) (SourceResult, error) {
	res := SourceResult{SourceID: src.ID}

	payload, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		res.Errors++
		res.Failure = err.Error()
		s.metrics.RecordIngestion(src.ID, "error")
		s.logger.Warn(ctx, "feed fetch failed, skipping source for this cycle", logger.Fields{
			"source": src.ID,
			"error":  err.Error(),
		})
		return res, nil
	}
	s.markFetched(src.ID, now)

	decoder, err := feeds.DecoderFor(src.Format)
	if err != nil {
		// Config validation rejects unknown formats, so this indicates a
		// registry built outside the loader.
		res.Errors++
		res.Failure = err.Error()
		s.metrics.RecordIngestion(src.ID, "error")
		return res, nil
	}

	items, err := decoder(payload)
	if err != nil {
		res.Errors++
		res.Failure = err.Error()
		s.metrics.RecordIngestion(src.ID, "error")
		s.logger.Warn(ctx, "feed payload decode failed", logger.Fields{"source": src.ID, "error": err.Error()})
		return res, nil
	}

	for _, item := range items {
		record, err := s.normalizer.Normalize(src.ID, item, now)
		if err != nil {
			res.Errors++
			s.metrics.RecordIngestion(src.ID, "error")
			continue
		}

		inserted, err := s.dedup.Observe(ctx, record, now)
		if err != nil {
			if errors.IsPersistenceFailure(err) {
				res.Failure = err.Error()
				return res, err
			}
			res.Errors++
			s.metrics.RecordIngestion(src.ID, "error")
			continue
		}
		if inserted {
			res.Inserted++
			s.metrics.RecordIngestion(src.ID, "inserted")
		} else {
			res.Duplicates++
			s.metrics.RecordIngestion(src.ID, "duplicate")
		}
	}

	return res, nil
}

func (s *IngestionService) due(src models.FeedSource, now time.Time) bool {
	if src.PollInterval <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastFetched[src.ID]
	return !ok || now.Sub(last) >= src.PollInterval
}

func (s *IngestionService) markFetched(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetched[id] = now
}
