// Package score rolls up Complexity, SATD and dead-code into a single 0-100
// per-file health score and an overall project grade, optionally raising a
// threshold-violation error when the project falls under a configured floor.
package score

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/codefang/internal/analyzers/complexity"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/deadcode"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/satd"
	"github.com/Sumatoshi-tech/codefang/internal/core"
)

// Config weights each sub-score's contribution to the overall mean, and
// optionally enforces a minimum overall score.
type Config struct {
	ComplexityWeight float64
	SATDWeight       float64
	DeadCodeWeight   float64
	// FailUnder, when > 0, raises core.ThresholdViolationError if the
	// project's overall score falls under it.
	FailUnder float64
}

// DefaultConfig matches the weights used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{ComplexityWeight: 1.0, SATDWeight: 0.8, DeadCodeWeight: 0.6}
}

// FileScore is one file's component sub-scores and weighted overall.
type FileScore struct {
	Path       string  `json:"path"`
	Components map[string]float64 `json:"components"`
	Overall    float64 `json:"overall"`
	Grade      string  `json:"grade"`
}

// Summary aggregates grades and the project-level overall score.
type Summary struct {
	TotalFiles    int            `json:"total_files"`
	OverallScore  float64        `json:"overall_score"`
	OverallGrade  string         `json:"overall_grade"`
	ByGrade       map[string]int `json:"by_grade"`
}

// Analysis is the complete Score output for a run.
type Analysis struct {
	Files   []FileScore `json:"files"`
	Summary Summary     `json:"summary"`
}

// Analyzer composes Complexity, SATD and dead-code into a single weighted
// health score per file and for the project overall.
type Analyzer struct {
	config     Config
	complexity *complexity.Analyzer
	satd       *satd.Analyzer
	deadcode   *deadcode.Analyzer
}

// NewAnalyzer builds an Analyzer, wiring fresh instances of every
// sub-analyzer it composes.
func NewAnalyzer() (*Analyzer, error) {
	ca, err := complexity.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build complexity sub-analyzer: %w", err)
	}

	sa, err := satd.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build satd sub-analyzer: %w", err)
	}

	da, err := deadcode.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build deadcode sub-analyzer: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), complexity: ca, satd: sa, deadcode: da}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "score" }

// RequiresGit implements core.Analyzer.
func (a *Analyzer) RequiresGit() bool { return false }

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

	return core.InvalidArgumentError("score: unexpected config type")
}

// Analyze implements core.Analyzer: it runs Complexity, SATD and dead-code
// once each, maps each to a 0-100 sub-score per file via a piecewise
// function, and takes the configured weighted mean. A FailUnder threshold
// raises core.ThresholdViolationError rather than failing the run outright,
// matching every other analyzer's never-panic contract.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	complexityScores, err := a.complexityScores(ctx, actx)
	if err != nil {
		return nil, err
	}

	satdScores, err := a.satdScores(ctx, actx)
	if err != nil {
		return nil, err
	}

	deadcodeScores, err := a.deadcodeScores(ctx, actx)
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	for f := range complexityScores {
		files[f] = true
	}

	for f := range satdScores {
		files[f] = true
	}

	for f := range deadcodeScores {
		files[f] = true
	}

	var results []FileScore

	for f := range files {
		satdScore, ok := satdScores[f]
		if !ok {
			satdScore = 100 // no SATD items in this file
		}

		deadcodeScore, ok := deadcodeScores[f]
		if !ok {
			deadcodeScore = 100 // no unreferenced functions in this file
		}

		results = append(results, a.combine(f, complexityScores[f], satdScore, deadcodeScore))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Overall < results[j].Overall })

	summary := buildSummary(results)

	analysis := Analysis{Files: results, Summary: summary}

	if a.config.FailUnder > 0 && summary.OverallScore < a.config.FailUnder {
		return analysis, core.ThresholdViolationError(
			fmt.Sprintf("overall score %.1f is under the configured floor of %.1f", summary.OverallScore, a.config.FailUnder),
			summary.OverallScore,
		)
	}

	return analysis, nil
}

func (a *Analyzer) combine(path string, complexityScore, satdScore, deadcodeScore float64) FileScore {
	components := map[string]float64{
		"complexity": complexityScore,
		"satd":       satdScore,
		"deadcode":   deadcodeScore,
	}

	totalWeight := a.config.ComplexityWeight + a.config.SATDWeight + a.config.DeadCodeWeight

	overall := 0.0
	if totalWeight > 0 {
		overall = (complexityScore*a.config.ComplexityWeight +
			satdScore*a.config.SATDWeight +
			deadcodeScore*a.config.DeadCodeWeight) / totalWeight
	}

	return FileScore{Path: path, Components: components, Overall: overall, Grade: grade(overall)}
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// complexityScores maps each file's mean cyclomatic complexity to a 0-100
// score via a piecewise function: full points below 5, linearly down to 0 at
// 30 and above.
func (a *Analyzer) complexityScores(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, error) {
	result, err := a.complexity.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(complexity.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("score: unexpected complexity result type")
	}

	out := make(map[string]float64, len(analysis.Files))
	for _, f := range analysis.Files {
		out[f.Path] = piecewise(f.AvgCyclomatic, 5, 30)
	}

	return out, nil
}

// satdScores maps each file's weighted SATD sum to a 0-100 score: full
// points at zero, linearly down to 0 at a weighted sum of 20.
func (a *Analyzer) satdScores(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, error) {
	result, err := a.satd.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(satd.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("score: unexpected satd result type")
	}

	weightByFile := make(map[string]float64)
	for _, item := range analysis.Items {
		weightByFile[item.File] += item.Weight
	}

	out := make(map[string]float64, len(weightByFile))
	for path, weight := range weightByFile {
		out[path] = piecewise(weight, 0, 20)
	}

	return out, nil
}

// deadcodeScores maps each file's unreferenced-function count to a 0-100
// score: full points at zero, linearly down to 0 at 10 unreferenced
// functions in one file.
func (a *Analyzer) deadcodeScores(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, error) {
	result, err := a.deadcode.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(deadcode.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("score: unexpected deadcode result type")
	}

	countByFile := make(map[string]int)
	for _, fn := range analysis.Unreferenced {
		countByFile[fn.File]++
	}

	out := make(map[string]float64, len(countByFile))
	for path, count := range countByFile {
		out[path] = piecewise(float64(count), 0, 10)
	}

	return out, nil
}

// piecewise returns 100 at or below good, 0 at or above bad, and a linear
// interpolation between.
func piecewise(value, good, bad float64) float64 {
	if value <= good {
		return 100
	}

	if value >= bad {
		return 0
	}

	return 100 * (1 - (value-good)/(bad-good))
}

func buildSummary(results []FileScore) Summary {
	summary := Summary{TotalFiles: len(results), ByGrade: make(map[string]int)}

	var sum float64

	for _, r := range results {
		sum += r.Overall
		summary.ByGrade[r.Grade]++
	}

	if len(results) > 0 {
		summary.OverallScore = sum / float64(len(results))
	}

	summary.OverallGrade = grade(summary.OverallScore)

	return summary
}
