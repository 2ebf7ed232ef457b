package models

import (
	"time"

	"github.com/turtacn/intelpipe/pkg/constants"
)

// Alert is one actionable notification created from a qualifying risk score
// or a spike signal. TriggerKey is the idempotency key: a unique index on it
// guarantees at most one alert per trigger across repeated runs. Delivery and
// acknowledgement are external to the pipeline.
type Alert struct {
	ID             string                     `gorm:"primaryKey;size:36" json:"id"`
	TriggerKey     string                     `gorm:"size:191;uniqueIndex;not null" json:"trigger_key"`
	TriggerType    constants.AlertTriggerType `gorm:"size:16" json:"trigger_type"`
	RiskScoreID    string                     `gorm:"size:36;index" json:"risk_score_id,omitempty"`
	ThreatRecordID string                     `gorm:"size:36;index" json:"threat_record_id,omitempty"`
	MetricName     string                     `gorm:"size:128" json:"metric_name,omitempty"`
	Severity       constants.Severity         `gorm:"size:16" json:"severity"`
	Title          string                     `gorm:"size:512" json:"title"`
	Message        string                     `gorm:"type:text" json:"message"`
	Status         constants.AlertStatus      `gorm:"size:16" json:"status"`
	Read           bool                       `json:"read"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// TableName sets the table name for gorm.
func (Alert) TableName() string {
	return "alerts"
}

// ScoreTriggerKey builds the idempotency key for a risk-score alert.
func ScoreTriggerKey(riskScoreID string) string {
	return "score:" + riskScoreID
}

// SpikeTriggerKey builds the idempotency key for a spike alert. One spike
// condition alerts at most once per metric per day.
func SpikeTriggerKey(metricName string, day time.Time) string {
	return "spike:" + metricName + ":" + day.UTC().Format("2006-01-02")
}
