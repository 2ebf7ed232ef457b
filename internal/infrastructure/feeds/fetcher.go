// Package feeds implements the upstream side of the pipeline: HTTP retrieval
// of raw feed payloads and per-format decoding into feed items.
package feeds

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

// maxPayloadBytes caps a single feed response. Anything larger is a
// misbehaving upstream, not intel.
const maxPayloadBytes = 32 << 20

// Fetcher retrieves the raw payload for one feed source.
type Fetcher interface {
	Fetch(ctx context.Context, source models.FeedSource) ([]byte, error)
}

// HTTPFetcher is the production Fetcher. Every request is bounded by the
// configured timeout; a request that exceeds it fails the source for the
// cycle instead of hanging the run.
type HTTPFetcher struct {
	client *http.Client
	logger logger.Logger
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration, log logger.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: log.WithComponent("fetcher"),
	}
}

// Fetch issues a read-only GET against the source endpoint. Network errors,
// timeouts and non-2xx statuses all surface as fetch_failed coded errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, source models.FeedSource) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "building request for feed %s", source.ID)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "intelpipe/1.0")
	if source.APIKey != "" {
		req.Header.Set("X-API-KEY", source.APIKey)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "fetching feed %s", source.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.CodeFetchFailed, "feed %s returned status %d", source.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "reading feed %s body", source.ID)
	}

	f.logger.Debug(ctx, "feed fetched", logger.Fields{
		"feed":     source.ID,
		"bytes":    len(body),
		"duration": time.Since(start).String(),
	})
	return body, nil
}
