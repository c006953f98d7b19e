// Package flags detects feature flag usages from common providers
// (LaunchDarkly, Flipper, Split, Unleash, raw env vars) and assesses their
// staleness against git history.
package flags

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Sumatoshi-tech/codefang/internal/analyzers/complexity"
	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/pkg/gitlib"
)

// Config controls staleness thresholds and which providers run.
type Config struct {
	// ExpectedTTLDays is the age in days after which an undeleted flag is
	// considered stale.
	ExpectedTTLDays int
	// Providers to detect; empty means all builtin providers run.
	Providers []string
	// IncludeGit enables pickaxe-based staleness detection.
	IncludeGit bool
}

// DefaultConfig matches the defaults used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{ExpectedTTLDays: 14, IncludeGit: true}
}

// provider is a builtin flag-detection pattern scoped to one or more languages.
type provider struct {
	name      string
	languages map[core.Language]bool
	pattern   *regexp.Regexp
}

// builtinProviders mirrors the provider set supported upstream: Flipper,
// LaunchDarkly, Split, Unleash and raw FEATURE_-prefixed env lookups.
// Go has no first-class tree-sitter query binding for ad hoc per-call
// patterns, so each provider is expressed as a regex over source text that
// captures the literal flag key, which is equivalent for the
// single-argument literal-key call shapes these providers detect.
func builtinProviders() []provider {
	return []provider{
		{
			name:      "flipper",
			languages: onlyLang(core.LangRuby),
			pattern:   regexp.MustCompile(`Flipper(?:\.(?:enabled\?|enable|disable|add|remove|exist\?))?\s*[\[\(]\s*[:"']([\w\-\.]+)["']?\s*[\]\)]`),
		},
		{
			name:      "launchdarkly",
			languages: anyLang(core.LangJavaScript, core.LangTypeScript, core.LangTSX, core.LangJSX),
			pattern:   regexp.MustCompile(`\.(?:variation|boolVariation|stringVariation|intVariation|floatVariation|jsonVariation)\s*\(\s*["']([\w\-\.]+)["']`),
		},
		{
			name:      "split",
			languages: anyLang(core.LangJavaScript, core.LangTypeScript, core.LangTSX, core.LangJSX),
			pattern:   regexp.MustCompile(`\.getTreatments?\s*\([^,]+,\s*["']([\w\-\.]+)["']`),
		},
		{
			name:      "unleash",
			languages: anyLang(core.LangJavaScript, core.LangTypeScript, core.LangTSX, core.LangJSX),
			pattern:   regexp.MustCompile(`\.isEnabled\s*\(\s*["']([\w\-\.]+)["']`),
		},
		{
			name:      "unleash",
			languages: onlyLang(core.LangPython),
			pattern:   regexp.MustCompile(`\.is_enabled\s*\(\s*["']([\w\-\.]+)["']`),
		},
		{
			name:      "env",
			languages: onlyLang(core.LangRuby),
			pattern:   regexp.MustCompile(`ENV\s*\[\s*["'](FEATURE_\w+)["']\s*\]`),
		},
		{
			name:      "env",
			languages: anyLang(core.LangJavaScript, core.LangTypeScript, core.LangTSX, core.LangJSX),
			pattern:   regexp.MustCompile(`process\.env(?:\.|\[["'])(FEATURE_\w+)["']?\]?`),
		},
		{
			name:      "env",
			languages: onlyLang(core.LangPython),
			pattern:   regexp.MustCompile(`os\.environ(?:\.get)?\s*\(?\s*\[?\s*["'](FEATURE_\w+)["']`),
		},
	}
}

func onlyLang(l core.Language) map[core.Language]bool { return map[core.Language]bool{l: true} }

func anyLang(ls ...core.Language) map[core.Language]bool {
	m := make(map[core.Language]bool, len(ls))
	for _, l := range ls {
		m[l] = true
	}

	return m
}

// reference is a single occurrence of a flag key in a file.
type reference struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Priority is a risk-based ranking driven by the complexity of the files a
// flag appears in: flags guarding branches in complex files are riskier to
// leave stale.
type Priority struct {
	Level         string  `json:"level"`
	Score         float64 `json:"score"`
	MaxComplexity int     `json:"max_complexity"`
}

func priorityFor(maxComplexity int) Priority {
	level := "Low"

	switch {
	case maxComplexity >= 50:
		level = "Critical"
	case maxComplexity >= 20:
		level = "High"
	case maxComplexity >= 10:
		level = "Medium"
	}

	return Priority{Level: level, Score: float64(maxComplexity), MaxComplexity: maxComplexity}
}

// Flag is a single detected feature flag, aggregated across every reference
// to the same key.
type Flag struct {
	Key        string      `json:"key"`
	Provider   string      `json:"provider"`
	References []reference `json:"references"`
	FirstSeen  *time.Time  `json:"first_seen,omitempty"`
	LastSeen   *time.Time  `json:"last_seen,omitempty"`
	AgeDays    int         `json:"age_days"`
	Stale      bool        `json:"stale"`
	FileSpread int         `json:"file_spread"`
	Priority   Priority    `json:"priority"`
}

// Summary aggregates flags by provider and staleness.
type Summary struct {
	TotalFlags int            `json:"total_flags"`
	StaleFlags int            `json:"stale_flags"`
	ByProvider map[string]int `json:"by_provider"`
}

// Analysis is the full feature-flag output for a run.
type Analysis struct {
	Flags      []Flag  `json:"flags"`
	StaleCount int     `json:"stale_count"`
	Summary    Summary `json:"summary"`
}

// Analyzer detects feature flags and assesses their staleness.
type Analyzer struct {
	config     Config
	complexity *complexity.Analyzer
}

// NewAnalyzer builds an Analyzer with default thresholds and a complexity
// sub-analyzer used to score flag risk by file.
func NewAnalyzer() (*Analyzer, error) {
	ca, err := complexity.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build complexity sub-analyzer: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), complexity: ca}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "flags" }

// RequiresGit implements core.Analyzer. Staleness detection degrades to
// zero-age, non-stale results when no repository is available.
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

	return core.InvalidArgumentError("flags: unexpected config type")
}

// Analyze implements core.Analyzer: it scans every file for provider
// patterns (the providers listed in the config, or every builtin provider
// when that list is empty), groups references by flag key,
// and, when git history is available, assesses staleness via pickaxe.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	providers := builtinProviders()
	refsByKey := make(map[string][]reference)
	providerByKey := make(map[string]string)

	files := actx.Files.Files()
	for i, path := range files {
		actx.ReportProgress(i, len(files))

		lang := core.DetectLanguage(path)
		if lang == core.LangUnknown {
			continue
		}

		content, err := actx.ReadFile(ctx, path)
		if err != nil {
			continue
		}

		for _, p := range providers {
			if len(a.config.Providers) > 0 && !contains(a.config.Providers, p.name) {
				continue
			}

			if !p.languages[lang] {
				continue
			}

			for _, m := range findAllWithLine(content, p.pattern) {
				key := m.key
				refsByKey[key] = append(refsByKey[key], reference{File: path, Line: m.line})

				if _, ok := providerByKey[key]; !ok {
					providerByKey[key] = p.name
				}
			}
		}
	}

	actx.ReportProgress(len(files), len(files))

	timestamps := a.pickaxeTimestamps(ctx, actx, refsByKey)

	flagList := a.buildFlags(refsByKey, providerByKey, timestamps)
	a.scorePriority(ctx, actx, flagList)

	sort.Slice(flagList, func(i, j int) bool {
		if flagList[i].Priority.Score != flagList[j].Priority.Score {
			return flagList[i].Priority.Score > flagList[j].Priority.Score
		}

		if flagList[i].Stale != flagList[j].Stale {
			return flagList[i].Stale
		}

		return flagList[i].AgeDays > flagList[j].AgeDays
	})

	summary := buildSummary(flagList)

	return Analysis{Flags: flagList, StaleCount: summary.StaleFlags, Summary: summary}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}

	return false
}

type keyMatch struct {
	key  string
	line int
}

// findAllWithLine returns every capture-group match of pattern in content
// along with its 1-based line number.
func findAllWithLine(content []byte, pattern *regexp.Regexp) []keyMatch {
	var matches []keyMatch

	line := 1
	lastEnd := 0

	for _, loc := range pattern.FindAllSubmatchIndex(content, -1) {
		for i := lastEnd; i < loc[0]; i++ {
			if content[i] == '\n' {
				line++
			}
		}

		lastEnd = loc[0]

		if loc[2] >= 0 && loc[3] >= 0 {
			matches = append(matches, keyMatch{key: string(content[loc[2]:loc[3]]), line: line})
		}
	}

	return matches
}

// pickaxeTimestamps runs a pickaxe search per flag key to find the commits
// that introduced or last touched it, when a git repository is available.
func (a *Analyzer) pickaxeTimestamps(ctx context.Context, actx *core.AnalysisContext, refsByKey map[string][]reference) map[string][]time.Time {
	out := make(map[string][]time.Time)

	if !a.config.IncludeGit || actx.GitPath == "" {
		return out
	}

	for key := range refsByKey {
		times, err := gitlib.Pickaxe(ctx, actx.GitPath, key)
		if err != nil {
			continue
		}

		out[key] = times
	}

	return out
}

func (a *Analyzer) buildFlags(refsByKey map[string][]reference, providerByKey map[string]string, timestamps map[string][]time.Time) []Flag {
	flags := make([]Flag, 0, len(refsByKey))

	for key, refs := range refsByKey {
		files := make(map[string]bool)
		for _, r := range refs {
			files[r.File] = true
		}

		flag := Flag{
			Key:        key,
			Provider:   providerByKey[key],
			References: refs,
			FileSpread: len(files),
		}

		if times := timestamps[key]; len(times) > 0 {
			first, last := times[0], times[0]
			for _, t := range times {
				if t.Before(first) {
					first = t
				}

				if t.After(last) {
					last = t
				}
			}

			flag.FirstSeen = &first
			flag.LastSeen = &last
			flag.AgeDays = int(time.Since(first).Hours() / 24)
			if flag.AgeDays < 0 {
				flag.AgeDays = 0
			}

			flag.Stale = flag.AgeDays > a.config.ExpectedTTLDays
		}

		flags = append(flags, flag)
	}

	return flags
}

// scorePriority computes each flag's risk priority from the highest
// cyclomatic complexity among the files it appears in: flags guarding
// branches in complex files are riskier to leave unresolved.
func (a *Analyzer) scorePriority(ctx context.Context, actx *core.AnalysisContext, flags []Flag) {
	fileComplexity := make(map[string]int)

	for i := range flags {
		for _, r := range flags[i].References {
			if _, ok := fileComplexity[r.File]; ok {
				continue
			}

			fileComplexity[r.File] = a.fileComplexity(ctx, actx, r.File)
		}
	}

	for i := range flags {
		max := 0
		for _, r := range flags[i].References {
			if c := fileComplexity[r.File]; c > max {
				max = c
			}
		}

		flags[i].Priority = priorityFor(max)
	}
}

func (a *Analyzer) fileComplexity(ctx context.Context, actx *core.AnalysisContext, path string) int {
	single := core.NewAnalysisContext(actx.Root, core.FromFiles(actx.Root, []string{path}), actx.Config)

	result, err := a.complexity.Analyze(ctx, single)
	if err != nil {
		return 0
	}

	analysis, ok := result.(complexity.Analysis)
	if !ok {
		return 0
	}

	return analysis.Summary.SumCyclomatic
}

func buildSummary(flags []Flag) Summary {
	byProvider := make(map[string]int)

	staleCount := 0

	for _, f := range flags {
		byProvider[f.Provider]++

		if f.Stale {
			staleCount++
		}
	}

	return Summary{TotalFlags: len(flags), StaleFlags: staleCount, ByProvider: byProvider}
}
