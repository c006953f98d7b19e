// Package complexity computes per-function cyclomatic and cognitive
// complexity and aggregates them into file- and project-level summaries.
package complexity

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// Config holds the warn/error thresholds used to classify function severity.
// Thresholds are advisory; Analyze itself never rejects a function for
// exceeding them, and Flags and Score use their own fixed bands instead.
type Config struct {
	CyclomaticWarn  int
	CyclomaticError int
	CognitiveWarn   int
	CognitiveError  int
	MaxNesting      int
}

// DefaultConfig returns the thresholds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		CyclomaticWarn:  10,
		CyclomaticError: 20,
		CognitiveWarn:   15,
		CognitiveError:  30,
		MaxNesting:      5,
	}
}

// FunctionResult holds complexity metrics for a single function.
type FunctionResult struct {
	Name       string `json:"name"`
	File       string `json:"file"`
	StartLine  uint   `json:"start_line"`
	EndLine    uint   `json:"end_line"`
	Cyclomatic int    `json:"cyclomatic"`
	Cognitive  int    `json:"cognitive"`
	MaxNesting int    `json:"max_nesting"`
	Lines      int    `json:"lines"`
}

// FileResult holds per-file aggregated complexity.
type FileResult struct {
	Path            string           `json:"path"`
	Language        string           `json:"language"`
	Functions       []FunctionResult `json:"functions"`
	TotalCyclomatic int              `json:"total_cyclomatic"`
	TotalCognitive  int              `json:"total_cognitive"`
	AvgCyclomatic   float64          `json:"avg_cyclomatic"`
	AvgCognitive    float64          `json:"avg_cognitive"`
}

// Summary aggregates complexity across every analyzed function.
type Summary struct {
	TotalFiles     int     `json:"total_files"`
	TotalFunctions int     `json:"total_functions"`
	SumCyclomatic  int     `json:"sum_cyclomatic"`
	SumCognitive   int     `json:"sum_cognitive"`
	MeanCyclomatic float64 `json:"mean_cyclomatic"`
	MeanCognitive  float64 `json:"mean_cognitive"`
	MaxCyclomatic  int     `json:"max_cyclomatic"`
	MaxCognitive   int     `json:"max_cognitive"`
	P50Cyclomatic  int     `json:"p50_cyclomatic"`
	P90Cyclomatic  int     `json:"p90_cyclomatic"`
	P95Cyclomatic  int     `json:"p95_cyclomatic"`
	P50Cognitive   int     `json:"p50_cognitive"`
	P90Cognitive   int     `json:"p90_cognitive"`
	P95Cognitive   int     `json:"p95_cognitive"`
}

// Analysis is the complete complexity output for a run.
type Analysis struct {
	Files   []FileResult `json:"files"`
	Summary Summary      `json:"summary"`
}

// Analyzer computes cyclomatic and cognitive complexity over every source
// file in a FileSet.
type Analyzer struct {
	config Config
	parser *parser.Parser
}

// NewAnalyzer builds an Analyzer with default thresholds.
func NewAnalyzer() (*Analyzer, error) {
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), parser: p}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "complexity" }

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

	return core.InvalidArgumentError("complexity: unexpected config type")
}

// Analyze implements core.Analyzer: it parses every file in actx.Files,
// extracts function-level metrics, and rolls them up into a Summary.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	analysis := Analysis{}

	var allCyclomatic, allCognitive []int

	for i, path := range actx.Files.Files() {
		actx.ReportProgress(i, actx.Files.Len())

		fileResult, err := a.analyzeFile(ctx, actx, path)
		if err != nil {
			continue // unparseable files are skipped, not fatal
		}

		analysis.Files = append(analysis.Files, fileResult)

		for _, fn := range fileResult.Functions {
			allCyclomatic = append(allCyclomatic, fn.Cyclomatic)
			allCognitive = append(allCognitive, fn.Cognitive)
		}
	}

	actx.ReportProgress(actx.Files.Len(), actx.Files.Len())

	analysis.Summary = buildSummary(analysis.Files, allCyclomatic, allCognitive)

	return analysis, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, actx *core.AnalysisContext, path string) (FileResult, error) {
	if !a.parser.IsSupported(path) {
		return FileResult{}, core.UnsupportedLanguageError(path)
	}

	content, err := actx.ReadFile(ctx, path)
	if err != nil {
		return FileResult{}, err
	}

	parsed, err := a.parser.Parse(ctx, path, content)
	if err != nil {
		return FileResult{}, err
	}

	result := FileResult{
		Path:     path,
		Language: parsed.Language,
	}

	for _, fn := range parsed.Functions {
		metrics := analyzeFunction(fn)
		metrics.File = path
		result.Functions = append(result.Functions, metrics)
		result.TotalCyclomatic += metrics.Cyclomatic
		result.TotalCognitive += metrics.Cognitive
	}

	if n := len(result.Functions); n > 0 {
		result.AvgCyclomatic = float64(result.TotalCyclomatic) / float64(n)
		result.AvgCognitive = float64(result.TotalCognitive) / float64(n)
	}

	return result, nil
}

// analyzeFunction computes the Cyclomatic, Cognitive, MaxNesting and Lines
// metrics for a single function node, per the fixed algorithm: cyclomatic is
// 1 plus every decision node plus every short-circuit operator; cognitive is
// the depth-weighted recursive descent in cognitive_complexity.go; lines is
// end_line - start_line + 1.
func analyzeFunction(fn *node.Node) FunctionResult {
	result := FunctionResult{
		Name:       functionName(fn),
		Cyclomatic: 1 + countDecisionPoints(fn),
		Cognitive:  calculateCognitiveComplexity(fn),
		MaxNesting: calculateMaxNesting(fn, 0),
	}

	if fn.Pos != nil {
		result.StartLine = fn.Pos.StartLine
		result.EndLine = fn.Pos.EndLine

		if fn.Pos.EndLine >= fn.Pos.StartLine {
			result.Lines = int(fn.Pos.EndLine-fn.Pos.StartLine) + 1
		}
	}

	return result
}

func functionName(fn *node.Node) string {
	if fn.Props != nil {
		if name := fn.Props["name"]; name != "" {
			return name
		}
	}

	for _, child := range fn.Children {
		if child != nil && child.HasAnyRole(node.RoleName) && child.Token != "" {
			return child.Token
		}
	}

	return "anonymous"
}

// decisionTypes are the UAST node types counted as cyclomatic decision points.
var decisionTypes = map[node.Type]bool{
	node.UASTIf:     true,
	node.UASTLoop:   true,
	node.UASTSwitch: true,
	node.UASTCase:   true,
	node.UASTTry:    true,
	node.UASTCatch:  true,
	node.UASTMatch:  true,
}

func countDecisionPoints(root *node.Node) int {
	count := 0

	root.VisitPreOrder(func(n *node.Node) {
		if n == root {
			return
		}

		if decisionTypes[n.Type] {
			count++
		}

		if n.Type == node.UASTBinaryOp && isShortCircuitOp(n.Token) {
			count++
		}
	})

	return count
}

func isShortCircuitOp(token string) bool {
	switch token {
	case "&&", "||", "and", "or":
		return true
	default:
		return false
	}
}

func calculateMaxNesting(root *node.Node, depth int) int {
	maxDepth := depth

	for _, child := range root.Children {
		if child == nil {
			continue
		}

		next := depth
		if nestingTypes[child.Type] {
			next = depth + 1
		}

		if d := calculateMaxNesting(child, next); d > maxDepth {
			maxDepth = d
		}
	}

	return maxDepth
}

func buildSummary(files []FileResult, cyclomatic, cognitive []int) Summary {
	summary := Summary{TotalFiles: len(files), TotalFunctions: len(cyclomatic)}

	if summary.TotalFunctions == 0 {
		return summary
	}

	sumCyc, maxCyc := sumAndMax(cyclomatic)
	sumCog, maxCog := sumAndMax(cognitive)

	summary.SumCyclomatic = sumCyc
	summary.SumCognitive = sumCog
	summary.MaxCyclomatic = maxCyc
	summary.MaxCognitive = maxCog
	summary.MeanCyclomatic = float64(sumCyc) / float64(summary.TotalFunctions)
	summary.MeanCognitive = float64(sumCog) / float64(summary.TotalFunctions)

	sortedCyc := sortedCopy(cyclomatic)
	sortedCog := sortedCopy(cognitive)

	summary.P50Cyclomatic = percentile(sortedCyc, 50)
	summary.P90Cyclomatic = percentile(sortedCyc, 90)
	summary.P95Cyclomatic = percentile(sortedCyc, 95)
	summary.P50Cognitive = percentile(sortedCog, 50)
	summary.P90Cognitive = percentile(sortedCog, 90)
	summary.P95Cognitive = percentile(sortedCog, 95)

	return summary
}

func sumAndMax(values []int) (sum, max int) {
	for _, v := range values {
		sum += v

		if v > max {
			max = v
		}
	}

	return sum, max
}

func sortedCopy(values []int) []int {
	out := make([]int, len(values))
	copy(out, values)
	sort.Ints(out)

	return out
}

// percentile returns the nearest-rank percentile p of sorted (ascending)
// values: idx = p*n/100, clamped to n-1. An empty slice yields 0.
func percentile(sorted []int, p int) int {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	idx := p * n / 100
	if idx >= n {
		idx = n - 1
	}

	return sorted[idx]
}
