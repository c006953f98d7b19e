// Package smells builds a same-repository import graph and flags three
// structural smells over it: import cycles, hub files (many files depend on
// them), and unstable files (they depend on many others).
package smells

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/toposort"
)

// Config controls the fan-in/fan-out thresholds a file must clear to be
// flagged as a hub or as unstable.
type Config struct {
	MinHubFanIn       int
	MinUnstableFanOut int
}

// DefaultConfig matches the thresholds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{MinHubFanIn: 10, MinUnstableFanOut: 15}
}

// Kind classifies a single Smell.
type Kind string

const (
	KindCycle    Kind = "cycle"
	KindHub      Kind = "hub"
	KindUnstable Kind = "unstable_dependency"
)

// Smell is a single flagged structural issue.
type Smell struct {
	Kind  Kind     `json:"kind"`
	File  string   `json:"file"`
	Score int      `json:"score"` // fan-in for hub, fan-out for unstable, cycle length for cycle
	Cycle []string `json:"cycle,omitempty"`
}

// Summary aggregates smells by kind.
type Summary struct {
	TotalSmells   int `json:"total_smells"`
	CycleCount    int `json:"cycle_count"`
	HubCount      int `json:"hub_count"`
	UnstableCount int `json:"unstable_count"`
}

// Analysis is the full structural-smell output for a run.
type Analysis struct {
	Smells  []Smell `json:"smells"`
	Summary Summary `json:"summary"`
}

// Analyzer builds a file-level import graph and flags structural smells.
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
func (a *Analyzer) Name() string { return "smells" }

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

	return core.InvalidArgumentError("smells: unexpected config type")
}

// Analyze implements core.Analyzer: it parses every file's imports, resolves
// each import string to a file in the set on a best-effort basis (matching
// the import's final path segment against each candidate file's name
// without extension), and reports cycle/hub/unstable smells over the
// resulting graph.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	graph := toposort.NewGraph()
	fanOut := make(map[string]int)

	index := buildNameIndex(actx.Files.Files())

	for i, filePath := range actx.Files.Files() {
		actx.ReportProgress(i, actx.Files.Len())
		graph.AddNode(filePath)

		if !a.parser.IsSupported(filePath) {
			continue
		}

		content, err := actx.ReadFile(ctx, filePath)
		if err != nil {
			continue
		}

		parsed, err := a.parser.Parse(ctx, filePath, content)
		if err != nil {
			continue
		}

		for _, imp := range parsed.Imports {
			target, ok := resolveImport(imp, filePath, index)
			if !ok || target == filePath {
				continue
			}

			graph.AddEdge(filePath, target)
			fanOut[filePath]++
		}
	}

	actx.ReportProgress(actx.Files.Len(), actx.Files.Len())

	smells := a.findSmells(graph, actx.Files.Files(), fanOut)

	return Analysis{Smells: smells, Summary: buildSummary(smells)}, nil
}

func (a *Analyzer) findSmells(graph *toposort.Graph, files []string, fanOut map[string]int) []Smell {
	var smells []Smell

	seenCycles := make(map[string]bool)

	for _, f := range files {
		if cycle := graph.FindCycle(f); len(cycle) > 1 {
			key := cycleKey(cycle)
			if seenCycles[key] {
				continue
			}

			seenCycles[key] = true
			smells = append(smells, Smell{Kind: KindCycle, File: f, Score: len(cycle), Cycle: cycle})
		}

		if fanIn := len(graph.FindParents(f)); fanIn >= a.config.MinHubFanIn {
			smells = append(smells, Smell{Kind: KindHub, File: f, Score: fanIn})
		}

		if fanOut[f] >= a.config.MinUnstableFanOut {
			smells = append(smells, Smell{Kind: KindUnstable, File: f, Score: fanOut[f]})
		}
	}

	sort.Slice(smells, func(i, j int) bool { return smells[i].Score > smells[j].Score })

	return smells
}

func buildSummary(smells []Smell) Summary {
	summary := Summary{TotalSmells: len(smells)}

	for _, s := range smells {
		switch s.Kind {
		case KindCycle:
			summary.CycleCount++
		case KindHub:
			summary.HubCount++
		case KindUnstable:
			summary.UnstableCount++
		}
	}

	return summary
}

func cycleKey(cycle []string) string {
	sorted := append([]string(nil), cycle...)
	sort.Strings(sorted)

	return strings.Join(sorted, "\x1f")
}

// buildNameIndex maps a file's base name without extension to every file
// path sharing that base name, for best-effort import resolution.
func buildNameIndex(files []string) map[string][]string {
	index := make(map[string][]string)

	for _, f := range files {
		base := path.Base(f)
		if dot := strings.LastIndex(base, "."); dot >= 0 {
			base = base[:dot]
		}

		index[base] = append(index[base], f)
	}

	return index
}

// resolveImport matches an import string's final path segment against the
// name index, preferring a candidate in the same directory as from when
// several files share a base name.
func resolveImport(imp, from string, index map[string][]string) (string, bool) {
	segment := imp

	if slash := strings.LastIndexAny(imp, "/\\."); slash >= 0 {
		segment = imp[slash+1:]
	}

	candidates, ok := index[segment]
	if !ok || len(candidates) == 0 {
		return "", false
	}

	dir := path.Dir(from)

	for _, c := range candidates {
		if path.Dir(c) == dir && c != from {
			return c, true
		}
	}

	for _, c := range candidates {
		if c != from {
			return c, true
		}
	}

	return "", false
}
