// Package deadcode flags top-level functions that nothing in the scanned
// tree appears to call: no recorded call reference, no entry-point naming
// convention, and (for languages the UAST layer marks) no export.
package deadcode

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// Config holds the entry-point naming conventions exempt from dead-code
// flagging regardless of reference count.
type Config struct {
	// EntryPointNames are exact function names never flagged (main, init, ...).
	EntryPointNames []string
	// EntryPointPrefixes are name prefixes never flagged (Test, Benchmark, ...).
	EntryPointPrefixes []string
}

// DefaultConfig returns the conventions used when no configuration is
// supplied: Go/most-language entry points plus common test-framework
// function-naming conventions.
func DefaultConfig() Config {
	return Config{
		EntryPointNames:    []string{"main", "init"},
		EntryPointPrefixes: []string{"Test", "Benchmark", "Example", "test_"},
	}
}

// FunctionResult is one top-level function's dead-code verdict.
type FunctionResult struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	StartLine uint   `json:"start_line"`
	EndLine   uint   `json:"end_line"`
	Exported  bool   `json:"exported"`
	Reachable bool   `json:"reachable"`
}

// Summary aggregates the dead-code scan across the whole run.
type Summary struct {
	TotalFunctions      int `json:"total_functions"`
	UnreferencedCount   int `json:"unreferenced_count"`
	ExportedUnreachable int `json:"exported_unreachable_count"`
}

// Analysis is the complete dead-code output for a run.
type Analysis struct {
	Unreferenced []FunctionResult `json:"unreferenced"`
	Summary      Summary          `json:"summary"`
}

// Analyzer flags functions with no recorded reference anywhere in the
// scanned tree and no entry-point naming convention.
type Analyzer struct {
	config Config
	parser *parser.Parser
}

// NewAnalyzer builds an Analyzer with the default entry-point conventions.
func NewAnalyzer() (*Analyzer, error) {
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), parser: p}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "deadcode" }

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

	return core.InvalidArgumentError("deadcode: unexpected config type")
}

// fileFunctions pairs a file's declared functions with its parsed root, so
// the call-reference pass (over every file) and the declaration pass (over
// just these functions) can both run off one parse per file.
type fileFunctions struct {
	path      string
	functions []*node.Node
}

// Analyze implements core.Analyzer: it parses every file once, builds a
// project-wide index of every identifier token used as a call target, then
// flags declared functions absent from that index and exempt from no
// entry-point convention.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	var declared []fileFunctions

	calledNames := make(map[string]int)

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
			continue // unparseable files are skipped, not fatal
		}

		declared = append(declared, fileFunctions{path: path, functions: parsed.Functions})

		collectCallReferences(parsed.Root, calledNames)
	}

	actx.ReportProgress(actx.Files.Len(), actx.Files.Len())

	analysis := Analysis{}

	total := 0

	for _, ff := range declared {
		for _, fn := range ff.functions {
			total++

			result := a.evaluate(fn, ff.path, calledNames)
			if !result.Reachable {
				analysis.Unreferenced = append(analysis.Unreferenced, result)
			}
		}
	}

	sort.Slice(analysis.Unreferenced, func(i, j int) bool {
		if analysis.Unreferenced[i].File != analysis.Unreferenced[j].File {
			return analysis.Unreferenced[i].File < analysis.Unreferenced[j].File
		}

		return analysis.Unreferenced[i].StartLine < analysis.Unreferenced[j].StartLine
	})

	analysis.Summary = Summary{TotalFunctions: total, UnreferencedCount: len(analysis.Unreferenced)}

	for _, fn := range analysis.Unreferenced {
		if fn.Exported {
			analysis.Summary.ExportedUnreachable++
		}
	}

	return analysis, nil
}

// evaluate decides whether fn is reachable: referenced by name anywhere in
// calledNames, exported, or matching an entry-point convention.
func (a *Analyzer) evaluate(fn *node.Node, path string, calledNames map[string]int) FunctionResult {
	name := functionName(fn)
	exported := fn.HasAnyRole(node.RoleExported, node.RolePublic)

	result := FunctionResult{Name: name, File: path, Exported: exported}

	if fn.Pos != nil {
		result.StartLine = fn.Pos.StartLine
		result.EndLine = fn.Pos.EndLine
	}

	result.Reachable = calledNames[name] > 0 || exported || a.isEntryPoint(name)

	return result
}

func (a *Analyzer) isEntryPoint(name string) bool {
	for _, n := range a.config.EntryPointNames {
		if name == n {
			return true
		}
	}

	for _, prefix := range a.config.EntryPointPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

// collectCallReferences walks root for Call nodes and records each one's
// callee name into names.
func collectCallReferences(root *node.Node, names map[string]int) {
	root.VisitPreOrder(func(n *node.Node) {
		if !n.HasAnyType(node.UASTCall) && !n.HasAnyRole(node.RoleCall) {
			return
		}

		if callee := calleeName(n); callee != "" {
			names[callee]++
		}
	})
}

// calleeName reads a Call node's target identifier: its "name" prop when
// present, falling back to the token of its last Name-role or Identifier
// child (a method call's last segment, e.g. the "Bar" in "foo.Bar()").
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

		if child.HasAnyRole(node.RoleName) && child.Token != "" {
			last = child.Token
		}

		if child.HasAnyType(node.UASTIdentifier) && child.Token != "" {
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
