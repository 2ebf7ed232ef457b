package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/domain/service"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// scoreAlertThreshold is the strict lower bound a score must exceed to raise
// an alert.
const scoreAlertThreshold = 70

// ScoringService computes risk scores for recently discovered records.
// Records are scored independently; each run appends one new score per record
// and never overwrites history.
type ScoringService struct {
	records    repository.ThreatRecordRepository
	scores     repository.RiskScoreRepository
	engine     *service.RiskEngine
	emitter    *AlertEmitter
	windowDays int
	metrics    *monitoring.Metrics
	logger     logger.Logger

	mu      sync.Mutex
	lastRun *RunSummary
}

// NewScoringService creates the scoring stage.
func NewScoringService(
	records repository.ThreatRecordRepository,
	scores repository.RiskScoreRepository,
	engine *service.RiskEngine,
	emitter *AlertEmitter,
	windowDays int,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *ScoringService {
	if windowDays <= 0 {
		windowDays = constants.DefaultScoringWindowDays
	}
	return &ScoringService{
		records:    records,
		scores:     scores,
		engine:     engine,
		emitter:    emitter,
		windowDays: windowDays,
		metrics:    metrics,
		logger:     log.WithComponent("scoring"),
	}
}

// Stage implements StageRunner.
func (s *ScoringService) Stage() constants.Stage {
	return constants.StageScoring
}

// LastRun returns the most recent run summary, or nil before the first run.
func (s *ScoringService) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Run scores every record discovered within the trailing window. A record
// with a malformed discovery timestamp is skipped this run and retried next
// cycle; a persistence failure aborts the run.
func (s *ScoringService) Run(ctx context.Context, force bool) (*RunSummary, error) {
	now := time.Now().UTC()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, constants.ContextKeyRunID, runID)

	summary := &RunSummary{
		Stage:     constants.StageScoring,
		RunID:     runID,
		StartedAt: now,
	}

	since := now.AddDate(0, 0, -s.windowDays)
	records, err := s.records.DiscoveredSince(ctx, since)
	if err != nil {
		return s.finish(ctx, summary, err)
	}

	for i := range records {
		record := &records[i]
		if record.DiscoveredAt.IsZero() {
			summary.Errors++
			continue
		}

		assessment := s.engine.ComputeRisk(record, now)
		score := service.NewRiskScore(record, assessment, uuid.NewString(), now)
		if err := s.scores.Insert(ctx, score); err != nil {
			return s.finish(ctx, summary, err)
		}
		summary.Scored++

		if score.Score > scoreAlertThreshold {
			created, err := s.emitter.EmitForScore(ctx, record, score)
			if err != nil {
				return s.finish(ctx, summary, err)
			}
			if created {
				summary.Alerts++
			}
		}
	}

	return s.finish(ctx, summary, nil)
}

func (s *ScoringService) finish(ctx context.Context, summary *RunSummary, err error) (*RunSummary, error) {
	summary.FinishedAt = time.Now().UTC()

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	duration := summary.FinishedAt.Sub(summary.StartedAt)
	if err != nil {
		s.metrics.RecordRun(string(constants.StageScoring), "aborted", duration)
		s.logger.Error(ctx, "scoring run aborted", err, logger.Fields{"scored": summary.Scored})
		return summary, err
	}
	s.metrics.RecordRun(string(constants.StageScoring), "ok", duration)
	s.logger.Info(ctx, "scoring run finished", logger.Fields{
		"scored": summary.Scored,
		"alerts": summary.Alerts,
		"errors": summary.Errors,
	})
	return summary, nil
}
