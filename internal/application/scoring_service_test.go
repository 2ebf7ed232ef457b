package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/intelpipe/internal/application"
	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/domain/service"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

func newScoring(env *testEnv, records repository.ThreatRecordRepository) *application.ScoringService {
	return application.NewScoringService(
		records,
		env.scores,
		service.NewRiskEngine(nil),
		env.emitter,
		7,
		env.metrics,
		env.logger,
	)
}

func TestScoringRunScoresWindowAndAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// A fresh critical record scores 80, above the alert threshold.
	critical := storedRecord("hash-critical", now.Add(-time.Hour))
	critical.Severity = constants.SeverityCritical
	critical.Title = "suspicious infrastructure cluster"
	env.insertRecord(t, critical)

	// A fresh medium record scores 40 and raises nothing.
	quiet := storedRecord("hash-quiet", now.Add(-2*time.Hour))
	quiet.Title = "low confidence sighting"
	env.insertRecord(t, quiet)

	// Outside the trailing window: never scored.
	stale := storedRecord("hash-stale", now.AddDate(0, 0, -30))
	env.insertRecord(t, stale)

	svc := newScoring(env, env.records)
	summary, err := svc.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scored)
	assert.Equal(t, 1, summary.Alerts)
	assert.Equal(t, constants.StageScoring, svc.Stage())
	assert.Equal(t, summary, svc.LastRun())

	scores, err := env.scores.ListForRecord(ctx, critical.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 80, scores[0].Score)
	assert.Equal(t, constants.SeverityHigh, scores[0].Severity)
	assert.Equal(t, service.EngineVersion, scores[0].EngineVersion)
	assert.Contains(t, scores[0].Reasoning, "final 80 (high)")

	var alerts []models.Alert
	require.NoError(t, env.db.Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Equal(t, critical.ID, alerts[0].ThreatRecordID)
	assert.Equal(t, constants.AlertTriggerScore, alerts[0].TriggerType)
}

func TestScoringRunAppendsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	record := storedRecord("hash-history", now.Add(-time.Hour))
	env.insertRecord(t, record)

	svc := newScoring(env, env.records)
	_, err := svc.Run(ctx, false)
	require.NoError(t, err)
	_, err = svc.Run(ctx, false)
	require.NoError(t, err)

	// Each run appends; nothing is overwritten.
	scores, err := env.scores.ListForRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
	assert.Equal(t, scores[0].Score, scores[1].Score)
}

func TestScoringSkipsMalformedDiscoveryTimestamp(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	good := *storedRecord("hash-good", now.Add(-time.Hour))
	broken := *storedRecord("hash-broken", now.Add(-time.Hour))
	broken.DiscoveredAt = time.Time{}

	repo := new(mockThreatRecordRepo)
	repo.On("DiscoveredSince", mock.Anything, mock.Anything).
		Return([]models.ThreatRecord{broken, good}, nil)

	svc := newScoring(env, repo)
	summary, err := svc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scored)
	assert.Equal(t, 1, summary.Errors)
}

func TestScoringAbortsOnStoreFailure(t *testing.T) {
	env := newTestEnv(t)

	repo := new(mockThreatRecordRepo)
	repo.On("DiscoveredSince", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.CodePersistenceFailed, "store down"))

	svc := newScoring(env, repo)
	summary, err := svc.Run(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.IsPersistenceFailure(err))
	assert.Equal(t, 0, summary.Scored)
}
