package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

func TestDecoderForUnknownFormat(t *testing.T) {
	_, err := DecoderFor(constants.FeedFormat("stix"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
}

func TestDecodeOTX(t *testing.T) {
	payload := []byte(`{
		"results": [
			{
				"id": "pulse-1",
				"name": "Emotet resurgence",
				"description": "new maldoc wave",
				"created": "2026-07-15T08:30:00",
				"adversary": "TA542",
				"tags": ["emotet", "malware"],
				"references": ["https://example.com/report"],
				"indicators": [
					{"type": "IPv4", "indicator": "1.2.3.4"},
					{"type": "domain", "indicator": "evil.example"}
				]
			},
			{
				"id": "pulse-2",
				"name": "Unattributed scanner",
				"created": "not-a-time",
				"indicators": []
			}
		]
	}`)

	items, err := decodeOTX(payload)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "pulse-1", first.SourceID)
	assert.Equal(t, "Emotet resurgence", first.Title)
	assert.Equal(t, "https://example.com/report", first.SourceURL)
	assert.Equal(t, "high", first.Severity)
	require.Len(t, first.Indicators, 2)
	assert.Equal(t, "1.2.3.4", first.Indicators[0].Value)
	require.NotNil(t, first.CreatedAt)
	assert.Equal(t, time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC), *first.CreatedAt)

	// No adversary means no severity claim, and a bad timestamp is dropped
	// rather than failing the whole payload.
	second := items[1]
	assert.Empty(t, second.Severity)
	assert.Nil(t, second.CreatedAt)
}

func TestDecodeURLhaus(t *testing.T) {
	payload := []byte(`{
		"query_status": "ok",
		"urls": [
			{
				"id": "12345",
				"url": "http://bad.example/payload.exe",
				"url_status": "online",
				"threat": "malware_download",
				"date_added": "2026-07-20 10:00:00 UTC",
				"tags": ["exe", "TrickBot"],
				"urlhaus_reference": "https://urlhaus.abuse.ch/url/12345/"
			},
			{
				"id": "12346",
				"url": "http://gone.example/x",
				"url_status": "offline",
				"threat": "malware_download"
			}
		]
	}`)

	items, err := decodeURLhaus(payload)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "high", items[0].Severity)
	assert.Equal(t, "http://bad.example/payload.exe", items[0].Title)
	assert.Equal(t, "URLhaus malware_download", items[0].Description)
	require.Len(t, items[0].Indicators, 1)
	assert.Equal(t, "URL", items[0].Indicators[0].Type)

	assert.Equal(t, "medium", items[1].Severity)
}

func TestDecodeURLhausRejectsFailedQuery(t *testing.T) {
	_, err := decodeURLhaus([]byte(`{"query_status": "no_results", "urls": []}`))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeFetchFailed))
}

func TestDecodeGeneric(t *testing.T) {
	payload := []byte(`[
		{
			"id": "g-1",
			"title": "Phishing kit observed",
			"description": "cred harvester",
			"severity": "low",
			"source_url": "https://intel.example/g-1",
			"tags": ["phishing"],
			"indicators": [{"type": "URL", "value": "http://phish.example/login"}],
			"created_at": "2026-07-01T00:00:00Z"
		}
	]`)

	items, err := decodeGeneric(payload)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Phishing kit observed", items[0].Title)
	assert.Equal(t, "low", items[0].Severity)
	require.NotNil(t, items[0].CreatedAt)
}

func TestDecodeMalformedPayload(t *testing.T) {
	for name, dec := range decoders {
		_, err := dec([]byte("{not json"))
		assert.Error(t, err, "format %s", name)
	}
}

func TestParseFeedTimeLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"2026-07-15T08:30:00Z":       time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC),
		"2026-07-15T08:30:00.123456": time.Date(2026, 7, 15, 8, 30, 0, 123456000, time.UTC),
		"2026-07-15 08:30:00":        time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		got := parseFeedTime(raw)
		require.NotNil(t, got, "layout %q", raw)
		assert.True(t, want.Equal(*got), "layout %q", raw)
	}

	assert.Nil(t, parseFeedTime(""))
	assert.Nil(t, parseFeedTime("yesterday"))
}
