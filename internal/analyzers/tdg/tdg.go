// Package tdg computes a per-file Technical Debt Gradient: a 0-100 health
// score built from seven text/structure heuristics plus, when git history is
// available, hotspot and temporal-coupling risk.
package tdg

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/codefang/internal/analyzers/complexity"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/duplicates"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/hotspot"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/ownership"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/satd"
	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// Component point caps. They sum to 110, the theoretical max a file's raw
// total can reach before normalization.
const (
	capStructural        = 15.0
	capSemantic          = 15.0
	capDuplication       = 15.0
	capCoupling          = 15.0
	capDocumentation     = 10.0
	capConsistency       = 10.0
	capEntropy           = 10.0
	capHotspot           = 10.0
	capTemporalCoupling  = 10.0
	theoreticalMax       = 110.0
	maxIdentifierEntropy = 4.5 // empirical cap, a little under log2(26 letters) ~ 4.7
)

// Config holds history windows for the history-backed components. Analyze
// does not read these fields: the hotspot and ownership sub-analyzers run
// with their own defaults, and when git history is unavailable Hotspot and
// TemporalCoupling award full points.
type Config struct {
	HotspotDays    int
	CouplingDays   int
	MinSharedCouple int
}

// DefaultConfig matches the thresholds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{HotspotDays: 90, CouplingDays: 180, MinSharedCouple: 3}
}

// Result is one file's Technical Debt Gradient.
type Result struct {
	Path             string  `json:"path"`
	Structural       float64 `json:"structural"`
	Semantic         float64 `json:"semantic"`
	Duplication      float64 `json:"duplication"`
	Coupling         float64 `json:"coupling"`
	Documentation    float64 `json:"documentation"`
	Consistency      float64 `json:"consistency"`
	Entropy          float64 `json:"entropy"`
	Hotspot          float64 `json:"hotspot"`
	TemporalCoupling float64 `json:"temporal_coupling"`
	Total            float64 `json:"total"`
	Grade            string  `json:"grade"`
	CriticalDefect   bool    `json:"critical_defect"`
}

// Summary aggregates TDG grades across the run.
type Summary struct {
	TotalFiles int            `json:"total_files"`
	MeanTotal  float64        `json:"mean_total"`
	ByGrade    map[string]int `json:"by_grade"`
}

// Analysis is the complete TDG output for a run.
type Analysis struct {
	Files   []Result `json:"files"`
	Summary Summary  `json:"summary"`
}

// Analyzer computes the Technical Debt Gradient per file by combining its
// own text heuristics with the Complexity, SATD, Duplicates, Hotspot and
// Ownership sub-analyzers.
type Analyzer struct {
	config     Config
	parser     *parser.Parser
	complexity *complexity.Analyzer
	satd       *satd.Analyzer
	duplicates *duplicates.Analyzer
	hotspot    *hotspot.Analyzer
	ownership  *ownership.Analyzer
}

// NewAnalyzer builds an Analyzer, wiring fresh instances of every
// sub-analyzer it composes.
func NewAnalyzer() (*Analyzer, error) {
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}

	ca, err := complexity.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build complexity sub-analyzer: %w", err)
	}

	sa, err := satd.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build satd sub-analyzer: %w", err)
	}

	da, err := duplicates.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build duplicates sub-analyzer: %w", err)
	}

	ha, err := hotspot.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build hotspot sub-analyzer: %w", err)
	}

	oa, err := ownership.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build ownership sub-analyzer: %w", err)
	}

	return &Analyzer{
		config: DefaultConfig(), parser: p,
		complexity: ca, satd: sa, duplicates: da, hotspot: ha, ownership: oa,
	}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "tdg" }

// RequiresGit implements core.Analyzer: TDG runs without git, but its
// Hotspot/TemporalCoupling components only contribute risk when available.
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

	return core.InvalidArgumentError("tdg: unexpected config type")
}

// Analyze implements core.Analyzer: it runs every sub-analyzer once, indexes
// their per-file outputs, then scores each file against the seven
// components plus the two history-backed ones.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	complexityByFile, err := a.runComplexity(ctx, actx)
	if err != nil {
		return nil, err
	}

	satdByFile, err := a.runSATD(ctx, actx)
	if err != nil {
		return nil, err
	}

	dupByFile, err := a.runDuplicates(ctx, actx)
	if err != nil {
		return nil, err
	}

	hotspotByFile, hasHistory := a.runHotspot(ctx, actx)
	couplingByFile, hasCoupling := a.runOwnership(ctx, actx)

	var results []Result

	for i, path := range actx.Files.Files() {
		actx.ReportProgress(i, actx.Files.Len())

		if !a.parser.IsSupported(path) {
			continue
		}

		content, err := actx.ReadFile(ctx, path)
		if err != nil {
			continue
		}

		parsed, err := a.parser.Parse(ctx, path, content)
		if err != nil {
			continue
		}

		results = append(results, a.score(path, string(content), parsed, fileInputs{
			avgCyclomatic: complexityByFile[path],
			satdWeight:    satdByFile[path],
			dupCount:      dupByFile[path],
			hotspotScore:  hotspotByFile[path],
			hasHistory:    hasHistory,
			couplingScore: couplingByFile[path],
			hasCoupling:   hasCoupling,
		}))
	}

	actx.ReportProgress(actx.Files.Len(), actx.Files.Len())

	sort.Slice(results, func(i, j int) bool { return results[i].Total < results[j].Total })

	return Analysis{Files: results, Summary: buildSummary(results)}, nil
}

type fileInputs struct {
	avgCyclomatic float64
	satdWeight    float64
	dupCount      int
	hotspotScore  float64
	hasHistory    bool
	couplingScore float64
	hasCoupling   bool
}

// score computes one file's Result. Every component but the critical-defect
// override is a weighted-cap*(1-risk) term; risk is always clamped to
// [0,1] so no component can go negative or exceed its cap.
func (a *Analyzer) score(path, content string, parsed *parser.ParseResult, in fileInputs) Result {
	result := Result{Path: path}

	result.Structural = capStructural * (1 - clamp01(in.avgCyclomatic/20.0))
	result.Semantic = capSemantic * (1 - clamp01(in.satdWeight/10.0))
	result.Duplication = capDuplication * (1 - clamp01(float64(in.dupCount)/5.0))

	if in.hasCoupling {
		result.Coupling = capCoupling * (1 - clamp01(in.couplingScore))
	} else {
		result.Coupling = capCoupling
	}

	result.Documentation = capDocumentation * clamp01(commentDensity(content)*5.0)
	result.Consistency = capConsistency * namingConsistency(parsed.Functions)
	result.Entropy = capEntropy * (1 - clamp01(identifierEntropy(parsed.Functions)/maxIdentifierEntropy))

	if in.hasHistory {
		result.Hotspot = capHotspot * (1 - clamp01(in.hotspotScore))
	} else {
		result.Hotspot = capHotspot
	}

	if in.hasCoupling {
		result.TemporalCoupling = capTemporalCoupling * (1 - clamp01(in.couplingScore))
	} else {
		result.TemporalCoupling = capTemporalCoupling
	}

	raw := result.Structural + result.Semantic + result.Duplication + result.Coupling +
		result.Documentation + result.Consistency + result.Entropy +
		result.Hotspot + result.TemporalCoupling

	total := raw
	if raw > 100 {
		total = raw * 100 / theoreticalMax
	}

	if hasCriticalDefect(path, parsed.Functions) {
		result.CriticalDefect = true
		total = 0
	}

	result.Total = total
	result.Grade = grade(total)

	return result
}

func grade(total float64) string {
	switch {
	case total >= 90:
		return "A"
	case total >= 80:
		return "B"
	case total >= 70:
		return "C"
	case total >= 60:
		return "D"
	default:
		return "F"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// commentDensity is the fraction of non-blank lines that are comment-only,
// recognizing the line-comment markers of every language the Parser layer
// supports.
func commentDensity(content string) float64 {
	lines := strings.Split(content, "\n")

	nonBlank, comments := 0, 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		nonBlank++

		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
			comments++
		}
	}

	if nonBlank == 0 {
		return 0
	}

	return float64(comments) / float64(nonBlank)
}

// namingConsistency returns the fraction of function names that follow the
// file's dominant casing convention (camelCase/PascalCase vs snake_case).
func namingConsistency(functions []*node.Node) float64 {
	if len(functions) == 0 {
		return 1
	}

	camel, snake := 0, 0

	names := make([]string, 0, len(functions))

	for _, fn := range functions {
		name := functionName(fn)
		names = append(names, name)

		if strings.Contains(name, "_") {
			snake++
		} else {
			camel++
		}
	}

	dominant := camel
	if snake > camel {
		dominant = snake
	}

	return float64(dominant) / float64(len(names))
}

// identifierEntropy is the mean Shannon entropy (bits/character) of every
// function name in the file, a cheap proxy for "are these names drawn from a
// disciplined, limited vocabulary or from noise".
func identifierEntropy(functions []*node.Node) float64 {
	if len(functions) == 0 {
		return 0
	}

	var total float64

	for _, fn := range functions {
		total += shannonEntropy(functionName(fn))
	}

	return total / float64(len(functions))
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)

	for _, r := range s {
		counts[unicode.ToLower(r)]++
	}

	n := float64(len(s))

	var entropy float64

	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// hasCriticalDefect flags unguarded panic/unwrap-style calls outside test
// code: the language-agnostic generalization of original_source's
// Rust-specific "unwrap()/panic! outside #[cfg(test)]" override. Test files
// are recognized by filename convention, the idiomatic Go (and most
// ecosystems') equivalent of a #[cfg(test)] module boundary.
func hasCriticalDefect(path string, functions []*node.Node) bool {
	if isTestFile(path) {
		return false
	}

	for _, fn := range functions {
		found := false

		fn.VisitPreOrder(func(n *node.Node) {
			if found || (!n.HasAnyType(node.UASTCall) && !n.HasAnyRole(node.RoleCall)) {
				return
			}

			if isUnguardedPanicCall(calleeName(n)) {
				found = true
			}
		})

		if found {
			return true
		}
	}

	return false
}

func isUnguardedPanicCall(name string) bool {
	return name == "panic" || strings.HasSuffix(name, ".unwrap") || strings.HasSuffix(name, ".expect") ||
		name == "unwrap" || name == "expect"
}

func isTestFile(path string) bool {
	base := filepath.Base(path)

	return strings.Contains(base, "_test.") || strings.HasPrefix(base, "test_") || strings.Contains(path, "/test/")
}

func calleeName(call *node.Node) string {
	if call.Props != nil {
		if name := call.Props["name"]; name != "" {
			return name
		}
	}

	var last string

	for _, child := range call.Children {
		if child == nil {
			continue
		}

		if (child.HasAnyRole(node.RoleName) || child.HasAnyType(node.UASTIdentifier)) && child.Token != "" {
			last = child.Token
		}
	}

	return last
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

func (a *Analyzer) runComplexity(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, error) {
	result, err := a.complexity.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(complexity.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("tdg: unexpected complexity result type")
	}

	out := make(map[string]float64, len(analysis.Files))
	for _, f := range analysis.Files {
		out[f.Path] = f.AvgCyclomatic
	}

	return out, nil
}

func (a *Analyzer) runSATD(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, error) {
	result, err := a.satd.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(satd.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("tdg: unexpected satd result type")
	}

	out := make(map[string]float64)
	for _, item := range analysis.Items {
		out[item.File] += item.Weight
	}

	return out, nil
}

func (a *Analyzer) runDuplicates(ctx context.Context, actx *core.AnalysisContext) (map[string]int, error) {
	result, err := a.duplicates.Analyze(ctx, actx)
	if err != nil {
		return nil, err
	}

	analysis, ok := result.(duplicates.Analysis)
	if !ok {
		return nil, core.InvalidArgumentError("tdg: unexpected duplicates result type")
	}

	out := make(map[string]int)
	for _, pair := range analysis.Pairs {
		out[pair.FileA]++
		out[pair.FileB]++
	}

	return out, nil
}

// runHotspot returns per-file hotspot score plus whether history was
// available at all (no git => every file gets full Hotspot points).
func (a *Analyzer) runHotspot(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, bool) {
	repo, err := actx.OpenGit()
	if err != nil || repo == nil {
		return nil, false
	}
	repo.Free()

	result, err := a.hotspot.Analyze(ctx, actx)
	if err != nil {
		return nil, false
	}

	analysis, ok := result.(hotspot.Analysis)
	if !ok {
		return nil, false
	}

	out := make(map[string]float64, len(analysis.Hotspots))
	for _, h := range analysis.Hotspots {
		out[h.File] = h.Score
	}

	return out, true
}

// runOwnership returns, per file, its strongest temporal-coupling score
// (used for both Coupling and TemporalCoupling), plus whether history was
// available.
func (a *Analyzer) runOwnership(ctx context.Context, actx *core.AnalysisContext) (map[string]float64, bool) {
	repo, err := actx.OpenGit()
	if err != nil || repo == nil {
		return nil, false
	}
	repo.Free()

	result, err := a.ownership.Analyze(ctx, actx)
	if err != nil {
		return nil, false
	}

	analysis, ok := result.(ownership.Analysis)
	if !ok {
		return nil, false
	}

	out := make(map[string]float64)

	for _, c := range analysis.Couples {
		if c.Coupling > out[c.FileA] {
			out[c.FileA] = c.Coupling
		}

		if c.Coupling > out[c.FileB] {
			out[c.FileB] = c.Coupling
		}
	}

	return out, true
}

func buildSummary(results []Result) Summary {
	summary := Summary{TotalFiles: len(results), ByGrade: make(map[string]int)}

	var sum float64

	for _, r := range results {
		sum += r.Total
		summary.ByGrade[r.Grade]++
	}

	if len(results) > 0 {
		summary.MeanTotal = sum / float64(len(results))
	}

	return summary
}
