// Package events publishes pipeline events (alert creations, spike signals)
// to a Kafka topic. The stream is an audit trail for downstream consumers;
// human-facing delivery stays outside the pipeline.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/intelpipe/internal/config"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// Publisher emits pipeline events. Implementations must be safe to call with
// a nil payload consumer absent; failures are logged, never propagated into
// the pipeline run.
type Publisher interface {
	Publish(ctx context.Context, eventType constants.EventType, payload interface{})
	Close() error
}

// Event is the wire envelope.
type Event struct {
	Type      constants.EventType `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Payload   interface{}         `json:"payload"`
}

// KafkaPublisher is the Kafka-backed Publisher.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger logger.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers and topic.
func NewKafkaPublisher(cfg *config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AlertTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Second,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: log.WithComponent("events"),
	}
}

// Publish sends one event, fire-and-forget. A broker failure is logged and
// dropped: the alert row in the store is the source of truth, the stream is
// best-effort.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType constants.EventType, payload interface{}) {
	body, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		p.logger.Error(ctx, "failed to marshal event", err, logger.Fields{"event_type": eventType})
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: body,
	}); err != nil {
		p.logger.Error(ctx, "failed to publish event", err, logger.Fields{"event_type": eventType})
	}
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards all events. Used when Kafka is disabled and in
// tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType constants.EventType, payload interface{}) {
}

func (NoopPublisher) Close() error { return nil }
