package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/intelpipe/internal/config"
	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// SpikeService recalculates volume baselines and flags anomalous spikes.
//
// The baseline is deliberately a coarse daily rate, not a true moving
// average: count of matching records first seen strictly before the trailing
// 24h window, divided by the window length in days. Replacing it with a real
// rolling average would shift alert behavior on bursty history.
type SpikeService struct {
	records   repository.ThreatRecordRepository
	baselines repository.BaselineMetricRepository
	emitter   *AlertEmitter
	configs   []config.SpikeMetricConfig
	metrics   *monitoring.Metrics
	logger    logger.Logger

	mu      sync.Mutex
	lastRun *RunSummary
}

// NewSpikeService creates the spike-detection stage. An empty metric list
// falls back to a single all-types volume metric.
func NewSpikeService(
	records repository.ThreatRecordRepository,
	baselines repository.BaselineMetricRepository,
	emitter *AlertEmitter,
	configs []config.SpikeMetricConfig,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *SpikeService {
	if len(configs) == 0 {
		configs = []config.SpikeMetricConfig{{
			Name:           "ingest_volume",
			WindowDays:     constants.DefaultSpikeWindowDays,
			SpikeThreshold: constants.DefaultSpikeThreshold,
		}}
	}
	return &SpikeService{
		records:   records,
		baselines: baselines,
		emitter:   emitter,
		configs:   configs,
		metrics:   metrics,
		logger:    log.WithComponent("spikes"),
	}
}

// Stage implements StageRunner.
func (s *SpikeService) Stage() constants.Stage {
	return constants.StageSpikes
}

// LastRun returns the most recent run summary, or nil before the first run.
func (s *SpikeService) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Run recalculates every configured metric and upserts its row by name; the
// atomic upsert keeps overlapping runs from duplicating rows. A spike fires
// when the last-24h count exceeds baseline x threshold.
func (s *SpikeService) Run(ctx context.Context, force bool) (*RunSummary, error) {
	now := time.Now().UTC()
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, constants.ContextKeyRunID, runID)

	summary := &RunSummary{
		Stage:     constants.StageSpikes,
		RunID:     runID,
		StartedAt: now,
	}

	for _, cfg := range s.configs {
		metric, err := s.evaluate(ctx, cfg, now)
		if err != nil {
			return s.finish(ctx, summary, err)
		}

		if metric.IsSpike() {
			summary.Spikes++
			s.metrics.RecordSpike(metric.Name)
			created, err := s.emitter.EmitForSpike(ctx, metric, now)
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

// evaluate computes one metric and persists it through the atomic upsert.
func (s *SpikeService) evaluate(ctx context.Context, cfg config.SpikeMetricConfig, now time.Time) (*models.BaselineMetric, error) {
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = constants.DefaultSpikeWindowDays
	}
	threshold := cfg.SpikeThreshold
	if threshold <= 0 {
		threshold = constants.DefaultSpikeThreshold
	}

	currentFrom := now.Add(-24 * time.Hour)
	baselineFrom := currentFrom.AddDate(0, 0, -windowDays)

	baselineCount, err := s.records.CountFirstSeenBetween(ctx, cfg.ThreatType, baselineFrom, currentFrom)
	if err != nil {
		return nil, err
	}
	currentCount, err := s.records.CountFirstSeenBetween(ctx, cfg.ThreatType, currentFrom, now)
	if err != nil {
		return nil, err
	}

	metric := &models.BaselineMetric{
		Name:           cfg.Name,
		ThreatType:     cfg.ThreatType,
		WindowDays:     windowDays,
		BaselineValue:  float64(baselineCount) / float64(windowDays),
		CurrentValue:   float64(currentCount),
		SpikeThreshold: threshold,
		CalculatedAt:   now,
	}

	if err := s.baselines.Upsert(ctx, metric); err != nil {
		return nil, err
	}
	return metric, nil
}

func (s *SpikeService) finish(ctx context.Context, summary *RunSummary, err error) (*RunSummary, error) {
	summary.FinishedAt = time.Now().UTC()

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	duration := summary.FinishedAt.Sub(summary.StartedAt)
	if err != nil {
		s.metrics.RecordRun(string(constants.StageSpikes), "aborted", duration)
		s.logger.Error(ctx, "spike detection run aborted", err)
		return summary, err
	}
	s.metrics.RecordRun(string(constants.StageSpikes), "ok", duration)
	s.logger.Info(ctx, "spike detection run finished", logger.Fields{
		"spikes": summary.Spikes,
		"alerts": summary.Alerts,
	})
	return summary, nil
}
