package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/repository"
	"github.com/turtacn/intelpipe/internal/infrastructure/events"
	"github.com/turtacn/intelpipe/internal/infrastructure/monitoring"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// AlertEmitter creates alerts from qualifying risk scores and spike signals.
// Idempotency is enforced twice: a check-before-insert on the trigger key,
// and the unique index on trigger_key for the race the check cannot close.
type AlertEmitter struct {
	alerts  repository.AlertRepository
	events  events.Publisher
	metrics *monitoring.Metrics
	logger  logger.Logger
}

// NewAlertEmitter creates an emitter. The publisher may be a NoopPublisher.
func NewAlertEmitter(alerts repository.AlertRepository, publisher events.Publisher, metrics *monitoring.Metrics, log logger.Logger) *AlertEmitter {
	return &AlertEmitter{
		alerts:  alerts,
		events:  publisher,
		metrics: metrics,
		logger:  log.WithComponent("alerts"),
	}
}

// EmitForScore creates one alert for a qualifying risk score. Severity is
// copied from the score; title and message derive from its reasoning trail.
// Returns false when an alert for this score already exists.
func (e *AlertEmitter) EmitForScore(ctx context.Context, record *models.ThreatRecord, score *models.RiskScore) (bool, error) {
	alert := &models.Alert{
		ID:             uuid.NewString(),
		TriggerKey:     models.ScoreTriggerKey(score.ID),
		TriggerType:    constants.AlertTriggerScore,
		RiskScoreID:    score.ID,
		ThreatRecordID: record.ID,
		Severity:       score.Severity,
		Title:          fmt.Sprintf("%s risk: %s", score.Severity, record.Title),
		Message:        score.Reasoning,
		Status:         constants.AlertStatusCreated,
	}
	return e.emit(ctx, alert, constants.EventAlertCreated)
}

// EmitForSpike creates one alert for a spike condition. The trigger key is
// day-scoped, so a sustained spike alerts at most once per metric per day.
func (e *AlertEmitter) EmitForSpike(ctx context.Context, metric *models.BaselineMetric, now time.Time) (bool, error) {
	alert := &models.Alert{
		ID:          uuid.NewString(),
		TriggerKey:  models.SpikeTriggerKey(metric.Name, now),
		TriggerType: constants.AlertTriggerSpike,
		MetricName:  metric.Name,
		Severity:    constants.SeverityHigh,
		Title:       fmt.Sprintf("volume spike: %s", metric.Name),
		Message: fmt.Sprintf("current volume %.0f exceeds baseline %.2f by more than x%.2f",
			metric.CurrentValue, metric.BaselineValue, metric.SpikeThreshold),
		Status: constants.AlertStatusCreated,
	}
	return e.emit(ctx, alert, constants.EventSpikeDetected)
}

func (e *AlertEmitter) emit(ctx context.Context, alert *models.Alert, eventType constants.EventType) (bool, error) {
	exists, err := e.alerts.ExistsForTrigger(ctx, alert.TriggerKey)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := e.alerts.Insert(ctx, alert); err != nil {
		if errors.IsDuplicateConflict(err) {
			// A concurrent run alerted the same trigger first.
			return false, nil
		}
		return false, err
	}

	e.metrics.RecordAlert(string(alert.TriggerType), string(alert.Severity))
	e.events.Publish(ctx, eventType, alert)
	e.logger.Info(ctx, "alert created", logger.Fields{
		"trigger":  alert.TriggerKey,
		"severity": alert.Severity,
	})
	return true, nil
}
