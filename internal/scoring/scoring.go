// Package scoring turns backend scan findings into the risk numbers shown on
// the dashboard and scan list.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/BetterCallFirewall/scanportal/internal/models"
)

type Severity string

const (
	Critical   Severity = "critical"
	High       Severity = "high"
	Medium     Severity = "medium"
	Low        Severity = "low"
	Suggestion Severity = "suggestion"
	Unknown    Severity = "unknown"
)

// ParseSeverity normalises a backend severity string. Matching is case-insensitive.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case Critical:
		return Critical
	case High:
		return High
	case Medium:
		return Medium
	case Low:
		return Low
	case Suggestion:
		return Suggestion
	default:
		return Unknown
	}
}

var weights = map[Severity]float64{
	Critical:   10,
	High:       7,
	Medium:     4,
	Low:        1,
	Suggestion: 0,
	Unknown:    0,
}

// Weight returns the score contribution of a single finding of severity s.
func Weight(s Severity) float64 {
	return weights[s]
}

// MaxScore caps the summed weights.
const MaxScore = 100

type Level string

const (
	LevelCritical Level = "Critical"
	LevelHigh     Level = "High"
	LevelMedium   Level = "Medium"
	LevelLow      Level = "Low"
	LevelNone     Level = "None"
)

var levelColors = map[Level]string{
	LevelCritical: "red",
	LevelHigh:     "orange",
	LevelMedium:   "yellow",
	LevelLow:      "green",
	LevelNone:     "gray",
}

// RiskScore is the aggregate risk of one scan.
type RiskScore struct {
	Score float64 `json:"score"`
	Level Level   `json:"level"`
	Color string  `json:"color"`
}

// LevelFor maps a score to its level.
func LevelFor(score float64) Level {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 40:
		return LevelHigh
	case score >= 15:
		return LevelMedium
	case score > 0:
		return LevelLow
	default:
		return LevelNone
	}
}

// CalculateRiskScore sums severity weights over findings, capped at MaxScore.
func CalculateRiskScore(findings []models.Finding) RiskScore {
	var score float64
	for _, f := range findings {
		score += Weight(ParseSeverity(f.Severity))
	}
	score = math.Min(score, MaxScore)

	level := LevelFor(score)
	return RiskScore{Score: score, Level: level, Color: levelColors[level]}
}

// SeverityCounts tallies findings by severity.
type SeverityCounts struct {
	Critical   int `json:"critical"`
	High       int `json:"high"`
	Medium     int `json:"medium"`
	Low        int `json:"low"`
	Suggestion int `json:"suggestion"`
	Unknown    int `json:"unknown"`
	Total      int `json:"total"`
}

func Tally(findings []models.Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch ParseSeverity(f.Severity) {
		case Critical:
			c.Critical++
		case High:
			c.High++
		case Medium:
			c.Medium++
		case Low:
			c.Low++
		case Suggestion:
			c.Suggestion++
		default:
			c.Unknown++
		}
		c.Total++
	}
	return c
}

// AllFindings merges contextual findings, static findings and risks. Each list
// is taken from the top level of the report when present, otherwise from the
// nested scanData.
func AllFindings(r *models.ScanReport) []models.Finding {
	if r == nil {
		return nil
	}
	contextual, static, risks := r.ContextualFindings, r.StaticFindings, r.Risks
	if r.ScanData != nil {
		if len(contextual) == 0 {
			contextual = r.ScanData.ContextualFindings
		}
		if len(static) == 0 {
			static = r.ScanData.StaticFindings
		}
		if len(risks) == 0 {
			risks = r.ScanData.Risks
		}
	}

	all := make([]models.Finding, 0, len(contextual)+len(static)+len(risks))
	all = append(all, contextual...)
	all = append(all, static...)
	all = append(all, risks...)
	return all
}

// ScanMetrics is the latest-scan panel.
type ScanMetrics struct {
	ScanID     int64          `json:"scanId,omitempty"`
	Score      float64        `json:"score"`
	Level      Level          `json:"level"`
	Color      string         `json:"color"`
	Counts     SeverityCounts `json:"counts"`
	TotalRisks int            `json:"totalRisks"`
}

func LatestScanMetrics(r *models.ScanReport) ScanMetrics {
	findings := AllFindings(r)
	risk := CalculateRiskScore(findings)
	counts := Tally(findings)
	return ScanMetrics{
		ScanID:     r.ScanID,
		Score:      round1(risk.Score),
		Level:      risk.Level,
		Color:      risk.Color,
		Counts:     counts,
		TotalRisks: counts.Total,
	}
}

// DashboardMetrics aggregates a whole scan history.
type DashboardMetrics struct {
	Compromised   int     `json:"compromised"`
	AvgRiskScore  float64 `json:"avgRiskScore"`
	Connectivity  int     `json:"connectivity"`
	HighRiskCount int     `json:"highRiskCount"`
}

// Dashboard computes history-wide metrics. A scan is compromised when it has at
// least one critical finding; high-risk counts critical and high findings.
func Dashboard(history []models.ScanReport) DashboardMetrics {
	if len(history) == 0 {
		return DashboardMetrics{Connectivity: 100}
	}

	var m DashboardMetrics
	var total float64
	for i := range history {
		findings := AllFindings(&history[i])
		total += CalculateRiskScore(findings).Score

		counts := Tally(findings)
		if counts.Critical > 0 {
			m.Compromised++
		}
		m.HighRiskCount += counts.Critical + counts.High
	}

	avg := total / float64(len(history))
	m.AvgRiskScore = round1(avg)
	m.Connectivity = int(math.Round(100 - math.Min(avg, MaxScore)))
	return m
}

// FindingCount is the number shown next to a scan: the backend's totalRisks,
// then the merged finding count, then risks_count.
func FindingCount(r *models.ScanReport) int {
	if r.TotalRisks > 0 {
		return r.TotalRisks
	}
	if n := len(AllFindings(r)); n > 0 {
		return n
	}
	return r.RisksCount
}

// SortNewestFirst orders scans by completion time, newest first. Scans without
// a parseable time sort last; ties keep their backend order.
func SortNewestFirst(history []models.ScanReport) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CompletedAt().After(history[j].CompletedAt())
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
