package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/errors"
	"github.com/turtacn/intelpipe/pkg/logger"
)

func TestHTTPFetcherSendsAPIKey(t *testing.T) {
	var gotKey, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, logger.NewNop())
	body, err := f.Fetch(context.Background(), models.FeedSource{
		ID:       "feed-a",
		Endpoint: srv.URL,
		APIKey:   "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"ok": true}`), body)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPFetcherRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, logger.NewNop())
	_, err := f.Fetch(context.Background(), models.FeedSource{ID: "feed-a", Endpoint: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
}

func TestHTTPFetcherTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(50*time.Millisecond, logger.NewNop())
	_, err := f.Fetch(context.Background(), models.FeedSource{ID: "feed-slow", Endpoint: srv.URL})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
}

func TestHTTPFetcherUnreachableEndpoint(t *testing.T) {
	f := NewHTTPFetcher(time.Second, logger.NewNop())
	_, err := f.Fetch(context.Background(), models.FeedSource{
		ID:       "feed-gone",
		Endpoint: "http://127.0.0.1:1/feed",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
}
