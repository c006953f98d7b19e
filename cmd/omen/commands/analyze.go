package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codefang/internal/analyzers/complexity"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/deadcode"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/duplicates"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/flags"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/hotspot"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/ownership"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/satd"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/score"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/smells"
	"github.com/Sumatoshi-tech/codefang/internal/analyzers/tdg"
	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/trend"
)

// defaultAnalyzers is every analyzer wired into the CLI, in the order they
// are registered with the Runner.
var defaultAnalyzers = []string{
	"complexity", "satd", "hotspot", "flags", "duplicates", "ownership",
	"smells", "deadcode", "tdg", "score",
}

func newAnalyzeCmd() *cobra.Command {
	var (
		analyzerNames []string
		excludes      []string
		gitPath       string
		maxParallel   int
		trendDir      string
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Run one or more analyzers over a repository and print a summary table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initConfig()

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			return runAnalyze(cmd.Context(), root, analyzerNames, excludes, gitPath, maxParallel, trendDir)
		},
	}

	cmd.Flags().StringSliceVar(&analyzerNames, "analyzers", defaultAnalyzers, "analyzers to run")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "doublestar glob patterns to exclude from the scan")
	cmd.Flags().StringVar(&gitPath, "git", "", "path to the repository's .git directory (defaults to <path>/.git when present)")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "goroutine cap for analyzer dispatch (0 = runtime.NumCPU())")
	cmd.Flags().StringVar(&trendDir, "trend-dir", "", "directory to compare this run's signals against (and record them into) across runs")

	return cmd
}

func runAnalyze(ctx context.Context, root string, names, excludes []string, gitPath string, maxParallel int, trendDir string) error {
	reporter := core.NewProgressReporter(os.Stderr, "scanning")

	files, err := core.FromPath(root, core.ScanOptions{
		ExcludePatterns: excludes,
		OnProgress:      reporter.AsProgressFunc(),
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	reporter.Finish()

	if gitPath == "" {
		if candidate := root + "/.git"; dirExists(candidate) {
			gitPath = candidate
		}
	}

	actx := core.NewAnalysisContext(root, files, nil)
	if gitPath != "" {
		actx = actx.WithGitPath(gitPath)
	}

	runner, err := buildRunner()
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	if maxParallel > 0 {
		runner.WithMaxParallel(maxParallel)
	}

	started := time.Now()

	results, err := runner.RunAll(ctx, names, actx)
	if err != nil {
		return err
	}

	printSummary(results, files.Len(), time.Since(started))

	if trendDir != "" {
		if err := reportTrend(trendDir, results); err != nil {
			return fmt.Errorf("trend: %w", err)
		}
	}

	return nil
}

// reportTrend compares this run's scalar signals against the last run
// recorded at dir, prints what changed, then records the current run as the
// new baseline.
func reportTrend(dir string, results map[string]any) error {
	store := trend.NewStore()

	metrics := trendMetrics(results)

	prev, ok, err := store.Load(dir)
	if err != nil {
		return err
	}

	if err := store.Save(dir, metrics, prev); err != nil {
		return err
	}

	if ok {
		curr, _, err := store.Load(dir)
		if err != nil {
			return err
		}

		printTrend(trend.Diff(prev, curr))
	}

	return nil
}

func trendMetrics(results map[string]any) map[string]float64 {
	metrics := make(map[string]float64)

	if r, ok := results["complexity"].(complexity.Analysis); ok {
		metrics["complexity_mean_cyclomatic"] = r.Summary.MeanCyclomatic
	}

	if r, ok := results["satd"].(satd.Analysis); ok {
		metrics["satd_items"] = float64(r.Summary.TotalItems)
		metrics["satd_density"] = r.Summary.Density
	}

	if r, ok := results["hotspot"].(hotspot.Analysis); ok {
		metrics["hotspot_critical"] = float64(r.Summary.CriticalCount)
	}

	if r, ok := results["flags"].(flags.Analysis); ok {
		metrics["flags_stale"] = float64(r.StaleCount)
	}

	if r, ok := results["duplicates"].(duplicates.Analysis); ok {
		metrics["duplicates_pairs"] = float64(r.Summary.TotalPairs)
	}

	if r, ok := results["ownership"].(ownership.Analysis); ok {
		metrics["ownership_single_owner_files"] = float64(r.Summary.SingleOwnerFiles)
	}

	if r, ok := results["smells"].(smells.Analysis); ok {
		metrics["smells_total"] = float64(r.Summary.TotalSmells)
	}

	if r, ok := results["deadcode"].(deadcode.Analysis); ok {
		metrics["deadcode_unreferenced"] = float64(r.Summary.UnreferencedCount)
	}

	if r, ok := results["tdg"].(tdg.Analysis); ok {
		metrics["tdg_mean"] = r.Summary.MeanTotal
	}

	if r, ok := results["score"].(score.Analysis); ok {
		metrics["score_overall"] = r.Summary.OverallScore
	}

	return metrics
}

func printTrend(deltas []trend.Delta) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Trend vs. previous run")
	t.AppendHeader(table.Row{"Metric", "Previous", "Current", "Change", "Smoothed"})

	for _, d := range deltas {
		t.AppendRow(table.Row{d.Metric, d.Previous, d.Current, trendArrow(d.Change), fmt.Sprintf("%.2f", d.Smoothed)})
	}

	t.Render()
}

func trendArrow(change float64) string {
	switch {
	case change > 0:
		return color.New(color.FgRed).Sprintf("+%.2f", change)
	case change < 0:
		return color.New(color.FgGreen).Sprintf("%.2f", change)
	default:
		return "0"
	}
}

// buildRunner constructs every analyzer and registers it with a fresh
// Runner. Building analyzers once per invocation (rather than per file) lets
// each keep its own compiled parser/regex state across the whole FileSet.
func buildRunner() (*core.Runner, error) {
	complexityAnalyzer, err := complexity.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	satdAnalyzer, err := satd.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	hotspotAnalyzer, err := hotspot.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	flagsAnalyzer, err := flags.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	duplicatesAnalyzer, err := duplicates.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	ownershipAnalyzer, err := ownership.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	smellsAnalyzer, err := smells.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	deadcodeAnalyzer, err := deadcode.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	tdgAnalyzer, err := tdg.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	scoreAnalyzer, err := score.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	return core.NewRunner(
		complexityAnalyzer,
		satdAnalyzer,
		hotspotAnalyzer,
		flagsAnalyzer,
		duplicatesAnalyzer,
		ownershipAnalyzer,
		smellsAnalyzer,
		deadcodeAnalyzer,
		tdgAnalyzer,
		scoreAnalyzer,
	), nil
}

func printSummary(results map[string]any, totalFiles int, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Analyzer", "Signal", "Value"})

	if r, ok := results["complexity"].(complexity.Analysis); ok {
		t.AppendRow(table.Row{"complexity", "functions", humanize.Comma(int64(r.Summary.TotalFunctions))})
		t.AppendRow(table.Row{"complexity", "mean cyclomatic", fmt.Sprintf("%.1f", r.Summary.MeanCyclomatic)})
	}

	if r, ok := results["satd"].(satd.Analysis); ok {
		t.AppendRow(table.Row{"satd", "items", humanize.Comma(int64(r.Summary.TotalItems))})
		t.AppendRow(table.Row{"satd", "density/1k LOC", fmt.Sprintf("%.2f", r.Summary.Density)})
	}

	if r, ok := results["hotspot"].(hotspot.Analysis); ok {
		t.AppendRow(table.Row{"hotspot", "critical files", colorCount(r.Summary.CriticalCount)})
	}

	if r, ok := results["flags"].(flags.Analysis); ok {
		t.AppendRow(table.Row{"flags", "stale flags", colorCount(r.StaleCount)})
	}

	if r, ok := results["duplicates"].(duplicates.Analysis); ok {
		t.AppendRow(table.Row{"duplicates", "pairs", humanize.Comma(int64(r.Summary.TotalPairs))})
		t.AppendRow(table.Row{"duplicates", "distinct shingles (est.)", humanize.Comma(int64(r.Summary.DistinctShingles))})
	}

	if r, ok := results["ownership"].(ownership.Analysis); ok {
		t.AppendRow(table.Row{"ownership", "single-owner files", colorCount(r.Summary.SingleOwnerFiles)})
	}

	if r, ok := results["smells"].(smells.Analysis); ok {
		t.AppendRow(table.Row{"smells", "cycles", colorCount(r.Summary.CycleCount)})
		t.AppendRow(table.Row{"smells", "hubs", humanize.Comma(int64(r.Summary.HubCount))})
		t.AppendRow(table.Row{"smells", "unstable", humanize.Comma(int64(r.Summary.UnstableCount))})
	}

	if r, ok := results["deadcode"].(deadcode.Analysis); ok {
		t.AppendRow(table.Row{"deadcode", "unreferenced functions", colorCount(r.Summary.UnreferencedCount)})
	}

	if r, ok := results["tdg"].(tdg.Analysis); ok {
		t.AppendRow(table.Row{"tdg", "mean score", fmt.Sprintf("%.1f (%s)", r.Summary.MeanTotal, r.Summary.ByGrade)})
	}

	if r, ok := results["score"].(score.Analysis); ok {
		t.AppendRow(table.Row{"score", "overall", fmt.Sprintf("%.1f (%s)", r.Summary.OverallScore, r.Summary.OverallGrade)})
	}

	t.AppendFooter(table.Row{"", "files scanned", humanize.Comma(int64(totalFiles))})
	t.AppendFooter(table.Row{"", "elapsed", elapsed.Round(time.Millisecond)})

	t.Render()
}

func colorCount(n int) string {
	if n == 0 {
		return "0"
	}

	return color.New(color.FgRed).Sprintf("%d", n)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
