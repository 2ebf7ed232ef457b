package models

import (
	"time"

	"github.com/turtacn/intelpipe/pkg/constants"
)

// FeedSource describes one registered upstream feed. The registry is static
// configuration; descriptors are validated at load time.
type FeedSource struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Endpoint     string               `json:"endpoint"`
	Format       constants.FeedFormat `json:"format"`
	PollInterval time.Duration        `json:"poll_interval"`
	Enabled      bool                 `json:"enabled"`
	APIKey       string               `json:"-"`
}

// FeedItem is one decoded payload item from an upstream feed, in the shape
// the normalizer consumes. Decoders map each source-specific payload into
// this intermediate form; nothing here is persisted directly.
type FeedItem struct {
	SourceID    string
	SourceURL   string
	Title       string
	Description string
	Severity    string
	Indicators  []Indicator
	Tags        []string
	CreatedAt   *time.Time
}
