package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/intelpipe/internal/domain/models"
	"github.com/turtacn/intelpipe/internal/domain/service"
	"github.com/turtacn/intelpipe/pkg/constants"
)

func testRecord(severity constants.Severity, discoveredAt time.Time) *models.ThreatRecord {
	return &models.ThreatRecord{
		ID:           "rec-1",
		Title:        "Suspicious infrastructure",
		Description:  "observed command and control traffic",
		Severity:     severity,
		Indicators:   models.IndicatorList{{Type: "IPv4", Value: "1.2.3.4"}},
		Tags:         models.StringList{},
		DiscoveredAt: discoveredAt,
	}
}

func TestComputeRiskSeverityBase(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		severity constants.Severity
		score    int
		bucket   constants.Severity
	}{
		{constants.SeverityCritical, 80, constants.SeverityHigh},
		{constants.SeverityHigh, 60, constants.SeverityMedium},
		{constants.SeverityMedium, 40, constants.SeverityMedium},
		{constants.SeverityLow, 20, constants.SeverityLow},
		{constants.SeverityInfo, 5, constants.SeverityLow},
	}

	for _, tc := range cases {
		a := engine.ComputeRisk(testRecord(tc.severity, now), now)
		assert.Equal(t, tc.score, a.Score, "severity %s", tc.severity)
		assert.Equal(t, tc.bucket, a.Severity, "severity %s", tc.severity)
		assert.Contains(t, a.RulesFired, service.RuleSeverityBase)
	}
}

func TestComputeRiskKeywordBonus(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	record := testRecord(constants.SeverityCritical, now)
	record.Description = "ransomware payload distribution"

	a := engine.ComputeRisk(record, now)
	require.Contains(t, a.RulesFired, service.RuleKeywordRelevance)
	assert.Equal(t, 100, a.Score)
	assert.Equal(t, constants.SeverityCritical, a.Severity)
}

func TestComputeRiskRecencyDecay(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// 90 days old: decay = 1 - 60/180 = 2/3, high base 60 -> 40.
	record := testRecord(constants.SeverityHigh, now.Add(-90*24*time.Hour))
	a := engine.ComputeRisk(record, now)
	assert.Equal(t, 40, a.Score)
	assert.Contains(t, a.RulesFired, service.RuleRecencyDecay)

	// Beyond 210 days the decay floors at 0.5.
	ancient := testRecord(constants.SeverityHigh, now.Add(-400*24*time.Hour))
	a = engine.ComputeRisk(ancient, now)
	assert.Equal(t, 30, a.Score)

	// Records inside the 30-day grace window decay not at all.
	fresh := testRecord(constants.SeverityHigh, now.Add(-29*24*time.Hour))
	a = engine.ComputeRisk(fresh, now)
	assert.Equal(t, 60, a.Score)
	assert.NotContains(t, a.RulesFired, service.RuleRecencyDecay)
}

func TestComputeRiskRecencyMonotonicity(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	prev := 101
	for age := 31; age <= 400; age += 7 {
		record := testRecord(constants.SeverityCritical, now.Add(-time.Duration(age)*24*time.Hour))
		a := engine.ComputeRisk(record, now)
		assert.LessOrEqual(t, a.Score, prev, "age %dd must not outscore newer record", age)
		prev = a.Score
	}
}

func TestComputeRiskIndicatorRichness(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	record := testRecord(constants.SeverityMedium, now)
	for i := 0; i < 6; i++ {
		record.Indicators = append(record.Indicators, models.Indicator{Type: "domain", Value: "evil.example"})
	}

	a := engine.ComputeRisk(record, now)
	assert.Equal(t, 50, a.Score)
	assert.Contains(t, a.RulesFired, service.RuleIndicatorRichness)
}

func TestComputeRiskBounds(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	severities := []constants.Severity{
		constants.SeverityCritical, constants.SeverityHigh, constants.SeverityMedium,
		constants.SeverityLow, constants.SeverityInfo,
	}
	for _, sev := range severities {
		for age := 0; age <= 500; age += 13 {
			record := testRecord(sev, now.Add(-time.Duration(age)*24*time.Hour))
			record.Description = "apt ransomware botnet"
			for i := 0; i < 10; i++ {
				record.Indicators = append(record.Indicators, models.Indicator{Type: "URL", Value: "http://evil.example"})
			}
			a := engine.ComputeRisk(record, now)
			assert.GreaterOrEqual(t, a.Score, 0)
			assert.LessOrEqual(t, a.Score, 100)
			assert.Equal(t, constants.SeverityForScore(a.Score), a.Severity)
		}
	}
}

func TestComputeRiskDeterminism(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	record := testRecord(constants.SeverityCritical, now.Add(-120*24*time.Hour))
	record.Tags = models.StringList{"apt28", "phishing-kit", "infra"}

	first := engine.ComputeRisk(record, now)
	for i := 0; i < 50; i++ {
		again := engine.ComputeRisk(record, now)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Severity, again.Severity)
		assert.Equal(t, first.RulesFired, again.RulesFired)
		assert.Equal(t, first.Reasoning, again.Reasoning)
	}
}

func TestSeverityBucketsAreConsistent(t *testing.T) {
	for score := 0; score <= 100; score++ {
		sev := constants.SeverityForScore(score)
		switch {
		case score >= 85:
			assert.Equal(t, constants.SeverityCritical, sev)
		case score >= 70:
			assert.Equal(t, constants.SeverityHigh, sev)
		case score >= 40:
			assert.Equal(t, constants.SeverityMedium, sev)
		default:
			assert.Equal(t, constants.SeverityLow, sev)
		}
	}
}

func TestNewRiskScoreStampsEngineMetadata(t *testing.T) {
	engine := service.NewRiskEngine(nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	record := testRecord(constants.SeverityHigh, now)

	a := engine.ComputeRisk(record, now)
	score := service.NewRiskScore(record, a, "score-1", now)

	assert.Equal(t, record.ID, score.ThreatRecordID)
	assert.Equal(t, service.EngineVersion, score.EngineVersion)
	assert.Equal(t, now, score.ComputedAt)
	assert.True(t, score.ExpiresAt.After(now))
	assert.Equal(t, a.Reasoning, score.Reasoning)
}
