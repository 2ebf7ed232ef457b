// Package application coordinates the pipeline stages: ingestion, risk
// scoring and spike detection. Services here own orchestration and counters;
// the pure transformations live in internal/domain/service and all I/O goes
// through the repository and infrastructure interfaces.
package application

import (
	"context"
	"time"

	"github.com/turtacn/intelpipe/pkg/constants"
)

// SourceResult holds the per-source counters of one ingestion run.
type SourceResult struct {
	SourceID   string `json:"source_id"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	Failure    string `json:"failure,omitempty"`
}

// RunSummary aggregates the outcome of one stage run.
type RunSummary struct {
	Stage      constants.Stage `json:"stage"`
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`

	Sources    []SourceResult `json:"sources,omitempty"`
	Inserted   int            `json:"inserted"`
	Duplicates int            `json:"duplicates"`
	Errors     int            `json:"errors"`

	Scored int `json:"scored,omitempty"`
	Spikes int `json:"spikes,omitempty"`
	Alerts int `json:"alerts,omitempty"`
}

// StageRunner is one schedulable pipeline stage. Run executes a full cycle;
// force bypasses per-source due checks but never the stage run lock.
type StageRunner interface {
	Stage() constants.Stage
	Run(ctx context.Context, force bool) (*RunSummary, error)
	LastRun() *RunSummary
}
