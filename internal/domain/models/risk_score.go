package models

import (
	"time"

	"github.com/turtacn/intelpipe/pkg/constants"
)

// RiskScore is one explainable scoring result for a threat record. Scores are
// append-only: each scoring run adds a new row, history is never overwritten.
// ExpiresAt marks staleness for downstream consumers; it does not trigger
// deletion.
type RiskScore struct {
	ID             string             `gorm:"primaryKey;size:36" json:"id"`
	ThreatRecordID string             `gorm:"size:36;index;not null" json:"threat_record_id"`
	Score          int                `json:"score"`
	Severity       constants.Severity `gorm:"size:16" json:"severity"`
	RulesFired     StringList         `gorm:"type:text" json:"rules_fired"`
	Reasoning      string             `gorm:"type:text" json:"reasoning"`
	EngineVersion  string             `gorm:"size:16" json:"engine_version"`
	ComputedAt     time.Time          `gorm:"index" json:"computed_at"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// TableName sets the table name for gorm.
func (RiskScore) TableName() string {
	return "risk_scores"
}
