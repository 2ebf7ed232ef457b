package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/intelpipe/internal/application"
	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/infrastructure/events"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// testEnv wires the application services over sqlite-backed repositories, a
// fresh metrics registry and a noop publisher.
type testEnv struct {
	db        *gorm.DB
	records   repository.ThreatRecordRepository
	scores    repository.RiskScoreRepository
	baselines repository.BaselineMetricRepository
	alerts    repository.AlertRepository
	metrics   *monitoring.Metrics
	emitter   *application.AlertEmitter
	logger    logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(db))

	log := logger.NewNop()
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	alerts := postgres.NewAlertRepository(db)

	return &testEnv{
		db:        db,
		records:   postgres.NewThreatRecordRepository(db),
		scores:    postgres.NewRiskScoreRepository(db),
		baselines: postgres.NewBaselineMetricRepository(db),
		alerts:    alerts,
		metrics:   metrics,
		emitter:   application.NewAlertEmitter(alerts, events.NoopPublisher{}, metrics, log),
		logger:    log,
	}
}

func (e *testEnv) insertRecord(t *testing.T, record *models.ThreatRecord) {
	t.Helper()
	require.NoError(t, e.records.Insert(context.Background(), record))
}

func storedRecord(hash string, seen time.Time) *models.ThreatRecord {
	return &models.ThreatRecord{
		ID:           uuid.NewString(),
		Source:       "feed-a",
		Title:        "record " + hash,
		Type:         constants.ThreatTypeMalware,
		Severity:     constants.SeverityMedium,
		Indicators:   models.IndicatorList{{Type: "IPv4", Value: "1.2.3.4"}},
		Tags:         models.StringList{},
		ContentHash:  hash,
		FirstSeen:    seen,
		LastSeen:     seen,
		DiscoveredAt: seen,
	}
}

// fakeFetcher serves canned payloads keyed by source ID and injects failures.
type fakeFetcher struct {
	payloads map[string][]byte
	failures map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, source models.FeedSource) ([]byte, error) {
	f.mu.Lock()
	f.calls[source.ID]++
	f.mu.Unlock()
	if err, ok := f.failures[source.ID]; ok {
		return nil, err
	}
	return f.payloads[source.ID], nil
}

func (f *fakeFetcher) callCount(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sourceID]
}

// mockThreatRecordRepo is a testify mock for paths the sqlite-backed
// repositories cannot produce on demand (insert races, store outages).
type mockThreatRecordRepo struct {
	mock.Mock
}

func (m *mockThreatRecordRepo) FindByContentHash(ctx context.Context, hash string) (*models.ThreatRecord, error) {
	args := m.Called(ctx, hash)
	if rec, ok := args.Get(0).(*models.ThreatRecord); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreatRecordRepo) Insert(ctx context.Context, record *models.ThreatRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockThreatRecordRepo) TouchLastSeen(ctx context.Context, hash string, seenAt time.Time) error {
	return m.Called(ctx, hash, seenAt).Error(0)
}

func (m *mockThreatRecordRepo) DiscoveredSince(ctx context.Context, since time.Time) ([]models.ThreatRecord, error) {
	args := m.Called(ctx, since)
	if recs, ok := args.Get(0).([]models.ThreatRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockThreatRecordRepo) CountFirstSeenBetween(ctx context.Context, threatType string, from, to time.Time) (int64, error) {
	args := m.Called(ctx, threatType, from, to)
	return args.Get(0).(int64), args.Error(1)
}
