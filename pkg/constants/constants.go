// Package constants defines system-wide constants for the intelpipe service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Threat Type Constants
// ================================================================================

// ThreatType classifies a threat record by its primary indicator.
type ThreatType string

const (
	ThreatTypeMalware      ThreatType = "malware"
	ThreatTypeIP           ThreatType = "ip"
	ThreatTypeDomain       ThreatType = "domain"
	ThreatTypeHash         ThreatType = "hash"
	ThreatTypeActor        ThreatType = "actor"
	ThreatTypeMaliciousURL ThreatType = "malicious_url"
)

// ================================================================================
// Severity Constants
// ================================================================================

// Severity is the normalized severity bucket for records, scores and alerts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityForScore maps a final risk score to its severity bucket.
// The thresholds are fixed: critical >=85, high >=70, medium >=40, else low.
func SeverityForScore(score int) Severity {
	switch {
	case score >= 85:
		return SeverityCritical
	case score >= 70:
		return SeverityHigh
	case score >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ================================================================================
// Feed Format Constants
// ================================================================================

// FeedFormat tags the payload shape of an upstream feed. Every format must be
// bound to a decoder at configuration-load time; an unknown tag is a
// configuration error, never a runtime fetch failure.
type FeedFormat string

const (
	FeedFormatOTX     FeedFormat = "otx"
	FeedFormatURLhaus FeedFormat = "urlhaus"
	FeedFormatGeneric FeedFormat = "generic"
)

// ================================================================================
// Alert Constants
// ================================================================================

// AlertStatus tracks the alert lifecycle. Acknowledgement is performed by an
// external consumer, never by the pipeline itself.
type AlertStatus string

const (
	AlertStatusCreated      AlertStatus = "created"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// AlertTriggerType names what caused an alert.
type AlertTriggerType string

const (
	AlertTriggerScore AlertTriggerType = "risk_score"
	AlertTriggerSpike AlertTriggerType = "spike"
)

// ================================================================================
// Pipeline Stage Constants
// ================================================================================

// Stage identifies one scheduled pipeline stage. Runs of the same stage never
// overlap; runs of different stages may.
type Stage string

const (
	StageIngestion Stage = "ingestion"
	StageScoring   Stage = "scoring"
	StageSpikes    Stage = "spikes"
)

// Stages lists all schedulable stages.
func Stages() []Stage {
	return []Stage{StageIngestion, StageScoring, StageSpikes}
}

// ================================================================================
// Event Type Constants
// ================================================================================

// EventType names a message published on the alert event stream.
type EventType string

const (
	EventAlertCreated  EventType = "alert.created"
	EventSpikeDetected EventType = "spike.detected"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyRunID     ContextKey = "run_id"
)

// ================================================================================
// Defaults
// ================================================================================

const (
	// DefaultFetchTimeout bounds a single upstream feed request.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultScoringWindowDays is the trailing discovery window scored per run.
	DefaultScoringWindowDays = 7

	// DefaultSpikeWindowDays is the baseline window for spike metrics.
	DefaultSpikeWindowDays = 7

	// DefaultSpikeThreshold is the multiplicative spike threshold.
	DefaultSpikeThreshold = 1.5

	// DefaultScoreTTL marks how long a computed risk score stays fresh.
	DefaultScoreTTL = 24 * time.Hour

	// DefaultRunLockTTL bounds how long a stage run lock may be held.
	DefaultRunLockTTL = 30 * time.Minute
)
