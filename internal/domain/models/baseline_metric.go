package models

import "time"

// BaselineMetric is a named rolling volume baseline used for spike detection.
// Rows are upserted by name every detection run and never duplicated. The
// spike condition is CurrentValue > BaselineValue * SpikeThreshold.
type BaselineMetric struct {
	Name           string    `gorm:"primaryKey;size:128" json:"name"`
	ThreatType     string    `gorm:"size:32" json:"threat_type"`
	WindowDays     int       `json:"window_days"`
	BaselineValue  float64   `json:"baseline_value"`
	CurrentValue   float64   `json:"current_value"`
	SpikeThreshold float64   `json:"spike_threshold"`
	CalculatedAt   time.Time `json:"calculated_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName sets the table name for gorm.
func (BaselineMetric) TableName() string {
	return "baseline_metrics"
}

// IsSpike reports whether the current measurement exceeds the baseline by
// more than the configured multiplicative threshold.
func (m *BaselineMetric) IsSpike() bool {
	return m.CurrentValue > m.BaselineValue*m.SpikeThreshold
}
