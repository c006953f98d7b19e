// Package hotspot combines git churn with cyclomatic complexity to surface
// files that are both frequently changed and hard to reason about.
package hotspot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Sumatoshi-tech/codefang/internal/analyzers/complexity"
	"github.com/Sumatoshi-tech/codefang/internal/core"
)

// Config controls the lookback window and the percentile gates a file must
// clear on both churn and complexity to be reported.
type Config struct {
	Days                    int
	MinChurnPercentile      float64
	MinComplexityPercentile float64
}

// DefaultConfig matches the thresholds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{Days: 90, MinChurnPercentile: 50, MinComplexityPercentile: 50}
}

// Severity classifies a Hotspot by its combined score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// classifySeverity matches the fixed score bands: score is the product of
// two [0,1] percentile ratios, so it is dense near the low end — thresholds
// are tuned accordingly rather than evenly spaced.
func classifySeverity(score float64) Severity {
	switch {
	case score >= 0.81:
		return SeverityCritical
	case score >= 0.64:
		return SeverityHigh
	case score >= 0.36:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

// Hotspot is a single file ranked by combined churn and complexity.
type Hotspot struct {
	File                string   `json:"file"`
	Score               float64  `json:"score"`
	Severity            Severity `json:"severity"`
	ChurnPercentile     float64  `json:"churn_percentile"`
	ComplexityPercentile float64 `json:"complexity_percentile"`
	Commits             int      `json:"commits"`
	AvgComplexity       float64  `json:"avg_complexity"`
}

// Summary aggregates hotspots by severity.
type Summary struct {
	TotalHotspots int `json:"total_hotspots"`
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
}

// Analysis is the full hotspot output for a run.
type Analysis struct {
	Hotspots []Hotspot `json:"hotspots"`
	Summary  Summary   `json:"summary"`
}

type fileChurn struct {
	commits int
	score   float64
}

type fileComplexity struct {
	totalCyclomatic int
	avgCyclomatic   float64
}

// Analyzer ranks files by combining churn (commit frequency and line
// volume) with complexity (total cyclomatic complexity).
type Analyzer struct {
	config     Config
	complexity *complexity.Analyzer
}

// NewAnalyzer builds an Analyzer with default thresholds.
func NewAnalyzer() (*Analyzer, error) {
	ca, err := complexity.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build complexity sub-analyzer: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), complexity: ca}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "hotspot" }

// RequiresGit implements core.Analyzer: churn data has no meaning without history.
func (a *Analyzer) RequiresGit() bool { return true }

// Configure implements core.Analyzer.
func (a *Analyzer) Configure(cfg any) error {
	if c, ok := cfg.(Config); ok {
		a.config = c

		return nil
	}

	if c, ok := cfg.(*Config); ok && c != nil {
		a.config = *c

		return nil
	}

	return core.InvalidArgumentError("hotspot: unexpected config type")
}

// Analyze implements core.Analyzer: it collects per-file churn from git
// history, per-file complexity from the Complexity analyzer, combines both
// into percentile ranks, and reports files clearing both percentile gates.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	churn, err := a.collectChurn(ctx, actx)
	if err != nil {
		return nil, err
	}

	complexityByFile, err := a.collectComplexity(ctx, actx)
	if err != nil {
		return nil, err
	}

	hotspots := combine(churn, complexityByFile, a.config)

	sort.Slice(hotspots, func(i, j int) bool { return hotspots[i].Score > hotspots[j].Score })

	return Analysis{Hotspots: hotspots, Summary: buildSummary(hotspots)}, nil
}

// collectChurn mirrors original_source's collect_churn_data: each commit's
// file-level additions/deletions contribute churn_score += 1.0 +
// (add+del)/100.0, and commit counts accumulate per file.
func (a *Analyzer) collectChurn(ctx context.Context, actx *core.AnalysisContext) (map[string]fileChurn, error) {
	repo, err := actx.OpenGit()
	if err != nil {
		return nil, err
	}

	if repo == nil {
		return map[string]fileChurn{}, nil
	}
	defer repo.Free()

	since := time.Now().AddDate(0, 0, -a.config.Days)

	commits, err := repo.LogWithStats(&since)
	if err != nil {
		return nil, core.GitError(err.Error())
	}

	out := make(map[string]fileChurn)

	for _, c := range commits {
		for _, f := range c.Files {
			entry := out[f.Path]
			entry.commits++
			entry.score += 1.0 + float64(f.Additions+f.Deletions)/100.0
			out[f.Path] = entry
		}
	}

	return out, nil
}

func (a *Analyzer) collectComplexity(ctx context.Context, actx *core.AnalysisContext) (map[string]fileComplexity, error) {
	result, err := a.complexity.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(complexity.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("hotspot: unexpected complexity result type")
	}

	out := make(map[string]fileComplexity, len(analysis.Files))

	for _, f := range analysis.Files {
		out[f.Path] = fileComplexity{totalCyclomatic: f.TotalCyclomatic, avgCyclomatic: f.AvgCyclomatic}
	}

	return out, nil
}

// combine scores every file present in either churn or complexity data,
// using percentileRank of churn score and total cyclomatic complexity
// against the full population, then filters by the configured percentile
// gates. score = churn_pct/100 * complexity_pct/100.
func combine(churn map[string]fileChurn, comp map[string]fileComplexity, cfg Config) []Hotspot {
	files := make(map[string]bool)
	for f := range churn {
		files[f] = true
	}

	for f := range comp {
		files[f] = true
	}

	churnScores := make([]float64, 0, len(files))
	complexityScores := make([]float64, 0, len(files))

	for f := range files {
		churnScores = append(churnScores, churn[f].score)
		complexityScores = append(complexityScores, float64(comp[f].totalCyclomatic))
	}

	var hotspots []Hotspot

	for f := range files {
		churnPct := percentileRank(churnScores, churn[f].score)
		complexityPct := percentileRank(complexityScores, float64(comp[f].totalCyclomatic))

		if churnPct < cfg.MinChurnPercentile || complexityPct < cfg.MinComplexityPercentile {
			continue
		}

		score := (churnPct / 100.0) * (complexityPct / 100.0)

		hotspots = append(hotspots, Hotspot{
			File:                 f,
			Score:                score,
			Severity:             classifySeverity(score),
			ChurnPercentile:      churnPct,
			ComplexityPercentile: complexityPct,
			Commits:              churn[f].commits,
			AvgComplexity:        comp[f].avgCyclomatic,
		})
	}

	return hotspots
}

// percentileRank returns the percentile rank of value within values:
// 100 * (count_below + 0.5*count_equal) / n.
func percentileRank(values []float64, value float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	below, equal := 0, 0

	for _, v := range values {
		switch {
		case v < value:
			below++
		case v == value:
			equal++
		}
	}

	return 100.0 * (float64(below) + 0.5*float64(equal)) / float64(n)
}

func buildSummary(hotspots []Hotspot) Summary {
	summary := Summary{TotalHotspots: len(hotspots)}

	for _, h := range hotspots {
		switch h.Severity {
		case SeverityCritical:
			summary.CriticalCount++
		case SeverityHigh:
			summary.HighCount++
		}
	}

	return summary
}
