package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/pkg/constants"
)

// EngineVersion is stamped on every computed score. Bump it whenever a rule
// or constant changes so historical scores stay attributable.
const EngineVersion = "1.0.0"

// Rule names, in pipeline order.
const (
	RuleSeverityBase      = "severity_base"
	RuleKeywordRelevance  = "keyword_relevance"
	RuleRecencyDecay      = "recency_decay"
	RuleIndicatorRichness = "indicator_richness"
)

// severityBase is the fixed starting score per normalized severity.
var severityBase = map[constants.Severity]float64{
	constants.SeverityCritical: 80,
	constants.SeverityHigh:     60,
	constants.SeverityMedium:   40,
	constants.SeverityLow:      20,
	constants.SeverityInfo:     5,
}

// RiskAssessment is the output of one scoring pass over one record.
type RiskAssessment struct {
	Score      int
	Severity   constants.Severity
	RulesFired []string
	Reasoning  string
}

// RiskEngine computes explainable risk scores through a fixed rule pipeline.
// ComputeRisk is pure and deterministic: identical inputs produce bit-identical
// output, including the reasoning string, so every score is auditable after
// the fact. Iteration never touches unordered collections.
type RiskEngine struct {
	keywords []string
}

// NewRiskEngine creates an engine. An empty keyword list falls back to
// DefaultKeywords.
func NewRiskEngine(keywords []string) *RiskEngine {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &RiskEngine{keywords: keywords}
}

// ComputeRisk scores one record at the given evaluation time. Rules apply in
// fixed order: severity base, keyword bonus, recency decay, indicator
// richness, then clamp to [0,100] and round.
func (e *RiskEngine) ComputeRisk(record *models.ThreatRecord, now time.Time) RiskAssessment {
	var (
		rules    []string
		reasons  []string
		total    float64
		baseline = severityBase[constants.SeverityMedium]
	)

	base, ok := severityBase[record.Severity]
	if !ok {
		base = baseline
	}
	total = base
	rules = append(rules, RuleSeverityBase)
	reasons = append(reasons, fmt.Sprintf("severity %s: +%.0f", record.Severity, base))

	if kw := e.matchKeyword(record); kw != "" {
		total += 20
		rules = append(rules, RuleKeywordRelevance)
		reasons = append(reasons, fmt.Sprintf("keyword %q: +20", kw))
	}

	ageDays := now.Sub(record.DiscoveredAt).Hours() / 24
	if ageDays > 30 {
		decay := 1 - (ageDays-30)/180
		if decay < 0.5 {
			decay = 0.5
		}
		penalty := total * (1 - decay)
		rules = append(rules, RuleRecencyDecay)
		reasons = append(reasons, fmt.Sprintf("age %.0fd decay x%.2f: -%.1f", ageDays, decay, penalty))
		total *= decay
	}

	if len(record.Indicators) > 5 {
		total += 10
		rules = append(rules, RuleIndicatorRichness)
		reasons = append(reasons, fmt.Sprintf("%d indicators: +10", len(record.Indicators)))
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	score := int(math.Round(total))
	severity := constants.SeverityForScore(score)
	reasons = append(reasons, fmt.Sprintf("final %d (%s)", score, severity))

	return RiskAssessment{
		Score:      score,
		Severity:   severity,
		RulesFired: rules,
		Reasoning:  strings.Join(reasons, "; "),
	}
}

// matchKeyword returns the first configured keyword found in the record's
// title, description or tags. Keywords are checked in configuration order and
// tags in stored order, so the match is deterministic.
func (e *RiskEngine) matchKeyword(record *models.ThreatRecord) string {
	title := strings.ToLower(record.Title)
	desc := strings.ToLower(record.Description)
	for _, kw := range e.keywords {
		if strings.Contains(title, kw) || strings.Contains(desc, kw) {
			return kw
		}
		for _, tag := range record.Tags {
			if strings.Contains(strings.ToLower(tag), kw) {
				return kw
			}
		}
	}
	return ""
}

// NewRiskScore materializes an assessment as a persistable score row for the
// given record.
func NewRiskScore(record *models.ThreatRecord, a RiskAssessment, id string, now time.Time) *models.RiskScore {
	return &models.RiskScore{
		ID:             id,
		ThreatRecordID: record.ID,
		Score:          a.Score,
		Severity:       a.Severity,
		RulesFired:     models.StringList(a.RulesFired),
		Reasoning:      a.Reasoning,
		EngineVersion:  EngineVersion,
		ComputedAt:     now,
		ExpiresAt:      now.Add(constants.DefaultScoreTTL),
	}
}
