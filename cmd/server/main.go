package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/intelpipe/internal/application"
	"github.com/turtacn/intelpipe/internal/config"
	"github.com/turtacn/intelpipe/internal/domain/service"
	"github.com/turtacn/intelpipe/internal/infrastructure/dedupcache"
	"github.com/turtacn/intelpipe/internal/infrastructure/events"
	"github.com/turtacn/intelpipe/internal/infrastructure/feeds"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/internal/infrastructure/persistence/postgres"
	ipredis "github.com/turtacn/intelpipe/internal/infrastructure/redis"
	httpiface "github.com/turtacn/intelpipe/internal/interfaces/http"
	"github.com/turtacn/intelpipe/internal/interfaces/http/handlers"
	"github.com/turtacn/intelpipe/internal/scheduler"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/logger"
)

func main() {
	// Logger for startup
	startupLogger, _ := logger.NewZapLogger("info")

	// Load config
	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	ctx := context.Background()

	// Initialize tracing
	tracer, err := monitoring.NewTracer(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracer", err)
	}
	defer tracer.Shutdown(ctx)

	// Initialize database
	db, err := postgres.NewDBConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to connect to database", err)
	}

	// Initialize metrics
	metrics := monitoring.NewMetrics()

	// Initialize event stream
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(&cfg.Kafka, appLogger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Initialize repositories
	recordRepo := postgres.NewThreatRecordRepository(db)
	scoreRepo := postgres.NewRiskScoreRepository(db)
	baselineRepo := postgres.NewBaselineMetricRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	// Initialize pipeline services
	normalizer := service.NewNormalizer(cfg.Pipeline.DomainKeywords)
	engine := service.NewRiskEngine(cfg.Pipeline.DomainKeywords)
	dedup := application.NewDeduplicator(recordRepo, dedupcache.New(cfg.Pipeline.DedupCacheTTL))
	fetcher := feeds.NewHTTPFetcher(cfg.Pipeline.FetchTimeout, appLogger)
	emitter := application.NewAlertEmitter(alertRepo, publisher, metrics, appLogger)

	ingestion := application.NewIngestionService(
		cfg.FeedSources(), fetcher, normalizer, dedup, metrics, appLogger, cfg.Pipeline.MaxConcurrentFeeds)
	scoring := application.NewScoringService(
		recordRepo, scoreRepo, engine, emitter, cfg.Pipeline.ScoringWindowDays, metrics, appLogger)
	spikes := application.NewSpikeService(
		recordRepo, baselineRepo, emitter, cfg.Spikes.Metrics, metrics, appLogger)

	// Build per-stage run locks; redis-backed when redis is configured so
	// overlapping deployments stay serialized per stage.
	lockFor := func(stage constants.Stage) scheduler.RunLock {
		return &scheduler.LocalLock{}
	}
	if cfg.Redis.Enabled {
		rdb, err := ipredis.NewClient(&cfg.Redis, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to connect to redis", err)
		}
		defer rdb.Close()
		lockFor = func(stage constants.Stage) scheduler.RunLock {
			return ipredis.NewRunLock(rdb, string(stage), cfg.Pipeline.RunLockTTL)
		}
	}

	// Initialize scheduler
	sched := scheduler.New(cfg.Pipeline.RunLockTTL, appLogger).WithTracer(tracer)
	if err := sched.Register(ingestion, cfg.Pipeline.IngestionInterval, lockFor(constants.StageIngestion)); err != nil {
		appLogger.Fatal(ctx, "Failed to schedule ingestion", err)
	}
	if err := sched.Register(scoring, cfg.Pipeline.ScoringInterval, lockFor(constants.StageScoring)); err != nil {
		appLogger.Fatal(ctx, "Failed to schedule scoring", err)
	}
	if err := sched.Register(spikes, cfg.Pipeline.SpikeInterval, lockFor(constants.StageSpikes)); err != nil {
		appLogger.Fatal(ctx, "Failed to schedule spike detection", err)
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP operator surface
	router := httpiface.NewRouter(cfg, appLogger,
		handlers.NewAdminHandler(sched),
		handlers.NewHealthHandler(db),
	)
	go func() {
		if err := router.Start(); err != nil {
			appLogger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	// Watch the config file for reloadable settings
	config.Watch(appLogger, func(updated *config.Config) {
		appLogger.Info(ctx, "configuration change detected; restart to apply scheduling changes")
	})

	appLogger.Info(ctx, "intelpipe started", logger.Fields{"feeds": len(cfg.Feeds)})

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "HTTP shutdown failed", err)
	}
}
