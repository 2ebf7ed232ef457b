package feeds

import (
	"encoding/json"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

// Decoder maps one raw payload into feed items. Each feed format tag is bound
// to exactly one decoder.
type Decoder func(payload []byte) ([]models.FeedItem, error)

var decoders = map[constants.FeedFormat]Decoder{
	constants.FeedFormatOTX:     decodeOTX,
	constants.FeedFormatURLhaus: decodeURLhaus,
	constants.FeedFormatGeneric: decodeGeneric,
}

// DecoderFor returns the decoder bound to the format tag. An unrecognized
// tag is a configuration error; config validation rejects it before any
// fetch happens, so hitting this at runtime means the registry was built
// outside the config loader.
func DecoderFor(format constants.FeedFormat) (Decoder, error) {
	dec, ok := decoders[format]
	if !ok {
		return nil, errors.New(errors.CodeInvalidConfig, "no decoder for feed format %q", format)
	}
	return dec, nil
}

// otxEnvelope is the AlienVault OTX pulse list shape.
type otxEnvelope struct {
	Results []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Created     string   `json:"created"`
		Adversary   string   `json:"adversary"`
		Tags        []string `json:"tags"`
		References  []string `json:"references"`
		Indicators  []struct {
			Type      string `json:"type"`
			Indicator string `json:"indicator"`
		} `json:"indicators"`
	} `json:"results"`
}

func decodeOTX(payload []byte) ([]models.FeedItem, error) {
	var env otxEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "decoding otx payload")
	}

	items := make([]models.FeedItem, 0, len(env.Results))
	for _, pulse := range env.Results {
		item := models.FeedItem{
			SourceID:    pulse.ID,
			Title:       pulse.Name,
			Description: pulse.Description,
			Tags:        pulse.Tags,
			CreatedAt:   parseFeedTime(pulse.Created),
		}
		if len(pulse.References) > 0 {
			item.SourceURL = pulse.References[0]
		}
		// OTX pulses carry no native severity; adversary attribution is the
		// strongest signal they expose.
		if pulse.Adversary != "" {
			item.Severity = "high"
		}
		for _, ind := range pulse.Indicators {
			item.Indicators = append(item.Indicators, models.Indicator{Type: ind.Type, Value: ind.Indicator})
		}
		items = append(items, item)
	}
	return items, nil
}

// urlhausEnvelope is the abuse.ch URLhaus recent-URLs shape.
type urlhausEnvelope struct {
	QueryStatus string `json:"query_status"`
	URLs        []struct {
		ID        string   `json:"id"`
		URL       string   `json:"url"`
		URLStatus string   `json:"url_status"`
		Threat    string   `json:"threat"`
		DateAdded string   `json:"date_added"`
		Tags      []string `json:"tags"`
		Reference string   `json:"urlhaus_reference"`
	} `json:"urls"`
}

func decodeURLhaus(payload []byte) ([]models.FeedItem, error) {
	var env urlhausEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "decoding urlhaus payload")
	}
	if env.QueryStatus != "" && env.QueryStatus != "ok" {
		return nil, errors.New(errors.CodeFetchFailed, "urlhaus query status %q", env.QueryStatus)
	}

	items := make([]models.FeedItem, 0, len(env.URLs))
	for _, u := range env.URLs {
		severity := "medium"
		if u.URLStatus == "online" {
			severity = "high"
		}
		items = append(items, models.FeedItem{
			SourceID:    u.ID,
			SourceURL:   u.Reference,
			Title:       u.URL,
			Description: "URLhaus " + u.Threat,
			Severity:    severity,
			Indicators:  []models.Indicator{{Type: "URL", Value: u.URL}},
			Tags:        u.Tags,
			CreatedAt:   parseFeedTime(u.DateAdded),
		})
	}
	return items, nil
}

// genericItem is intelpipe's own flat JSON feed shape.
type genericItem struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Severity    string             `json:"severity"`
	SourceURL   string             `json:"source_url"`
	Tags        []string           `json:"tags"`
	Indicators  []models.Indicator `json:"indicators"`
	CreatedAt   string             `json:"created_at"`
}

func decodeGeneric(payload []byte) ([]models.FeedItem, error) {
	var raw []genericItem
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeFetchFailed, "decoding generic payload")
	}

	items := make([]models.FeedItem, 0, len(raw))
	for _, g := range raw {
		items = append(items, models.FeedItem{
			SourceID:    g.ID,
			SourceURL:   g.SourceURL,
			Title:       g.Title,
			Description: g.Description,
			Severity:    g.Severity,
			Indicators:  g.Indicators,
			Tags:        g.Tags,
			CreatedAt:   parseFeedTime(g.CreatedAt),
		})
	}
	return items, nil
}

var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 UTC",
	"2006-01-02 15:04:05",
}

// parseFeedTime tries the known upstream timestamp layouts. Unparseable or
// empty values return nil; the normalizer then defaults to "now".
func parseFeedTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
