// Package service holds the pure domain services of the pipeline: payload
// normalization and risk scoring. Nothing in this package performs I/O.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/constants"
	"github.com/turtacn/intelpipe/pkg/errors"
)

// severityTable maps source-native classifications to the normalized buckets.
// Lookups are case-insensitive. Anything unmapped resolves to medium; that
// default lives here and nowhere else, so it cannot vary by call site.
var severityTable = map[string]constants.Severity{
	"critical":      constants.SeverityCritical,
	"crit":          constants.SeverityCritical,
	"high":          constants.SeverityHigh,
	"severe":        constants.SeverityHigh,
	"medium":        constants.SeverityMedium,
	"moderate":      constants.SeverityMedium,
	"low":           constants.SeverityLow,
	"minor":         constants.SeverityLow,
	"info":          constants.SeverityInfo,
	"informational": constants.SeverityInfo,
	"none":          constants.SeverityInfo,
}

// DefaultKeywords is the domain-relevance allow-list shared by tag filtering
// and the scoring keyword bonus.
var DefaultKeywords = []string{
	"ransomware",
	"phishing",
	"apt",
	"botnet",
	"c2",
	"trojan",
	"stealer",
	"exploit",
	"cve",
	"malware",
	"backdoor",
	"wiper",
}

// Normalizer maps decoded feed items into canonical threat records. It is a
// pure transformation; persistence and dedup happen downstream.
type Normalizer struct {
	keywords []string
}

// NewNormalizer creates a normalizer. An empty keyword list falls back to
// DefaultKeywords.
func NewNormalizer(keywords []string) *Normalizer {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &Normalizer{keywords: keywords}
}

// Normalize converts one feed item from the named source into a ThreatRecord,
// including its content hash. Title is the only required field; every other
// absence is tolerated with defaults. Missing timestamps default to now.
func (n *Normalizer) Normalize(source string, item models.FeedItem, now time.Time) (*models.ThreatRecord, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil, errors.New(errors.CodeNormalizationFailed, "feed item from %s has no title", source)
	}

	observed := now
	if item.CreatedAt != nil && !item.CreatedAt.IsZero() {
		observed = *item.CreatedAt
	}

	indicators := make(models.IndicatorList, 0, len(item.Indicators))
	for _, ind := range item.Indicators {
		if strings.TrimSpace(ind.Value) == "" {
			continue
		}
		indicators = append(indicators, models.Indicator{Type: ind.Type, Value: ind.Value})
	}

	record := &models.ThreatRecord{
		ID:           uuid.NewString(),
		Source:       source,
		SourceID:     item.SourceID,
		SourceURL:    item.SourceURL,
		Title:        title,
		Description:  item.Description,
		Type:         inferThreatType(indicators),
		Severity:     NormalizeSeverity(item.Severity),
		Indicators:   indicators,
		Tags:         n.filterTags(item.Tags),
		FirstSeen:    observed,
		LastSeen:     observed,
		DiscoveredAt: observed,
	}
	record.ContentHash = ContentHash(record.Title, record.Description, record.Indicators)

	return record, nil
}

// NormalizeSeverity maps a source-native severity tag through the fixed
// table. Unmapped or missing values resolve to medium.
func NormalizeSeverity(raw string) constants.Severity {
	if sev, ok := severityTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return sev
	}
	return constants.SeverityMedium
}

// inferThreatType derives the record type from the first indicator through a
// fixed precedence table. Records without indicators default to malware.
func inferThreatType(indicators models.IndicatorList) constants.ThreatType {
	if len(indicators) == 0 {
		return constants.ThreatTypeMalware
	}
	t := strings.ToLower(indicators[0].Type)
	switch {
	case strings.HasPrefix(t, "ip"):
		return constants.ThreatTypeIP
	case strings.Contains(t, "domain") || strings.Contains(t, "hostname"):
		return constants.ThreatTypeDomain
	case strings.Contains(t, "hash") || t == "md5" || t == "sha1" || t == "sha256":
		return constants.ThreatTypeHash
	case strings.Contains(t, "url") || strings.Contains(t, "uri"):
		return constants.ThreatTypeMaliciousURL
	default:
		return constants.ThreatTypeMalware
	}
}

// filterTags keeps the tags matching the domain keyword allow-list. When no
// tag matches, the original set passes through unmodified: signal is never
// discarded down to an empty set.
func (n *Normalizer) filterTags(tags []string) models.StringList {
	if len(tags) == 0 {
		return models.StringList{}
	}
	relevant := make(models.StringList, 0, len(tags))
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, kw := range n.keywords {
			if strings.Contains(lower, kw) {
				relevant = append(relevant, tag)
				break
			}
		}
	}
	if len(relevant) == 0 {
		return models.StringList(tags)
	}
	return relevant
}

// ContentHash computes the dedup identity digest: sha256 over a fixed-order
// serialization of title, description and indicators. Field order and
// indicator order are part of the identity, and the unit separators keep
// adjacent fields from colliding.
func ContentHash(title, description string, indicators models.IndicatorList) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0x1f})
	h.Write([]byte(description))
	for _, ind := range indicators {
		h.Write([]byte{0x1e})
		h.Write([]byte(ind.Type))
		h.Write([]byte{0x1f})
		h.Write([]byte(ind.Value))
	}
	return hex.EncodeToString(h.Sum(nil))
}
