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

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/mutation"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
)

func newMutateCmd() *cobra.Command {
	var (
		excludes    []string
		preset      string
		jobs        int
		timeout     time.Duration
		incremental bool
		baseRef     string
		check       bool
		minScore    float64
		testCommand []string
	)

	cmd := &cobra.Command{
		Use:   "mutate [path]",
		Short: "Generate mutants over a repository and measure how many its test suite catches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initConfig()

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			return runMutate(cmd.Context(), mutateOptions{
				root: root, excludes: excludes, preset: preset,
				jobs: jobs, timeout: timeout,
				incremental: incremental, baseRef: baseRef,
				check: check, minScore: minScore, testCommand: testCommand,
			})
		},
	}

	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "doublestar glob patterns to exclude from the scan")
	cmd.Flags().StringVar(&preset, "operators", "fast", "operator preset: fast, full, or thorough")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "parallel mutant workers (0 = runtime.NumCPU())")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-mutant test-command timeout")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "only mutate lines changed since --base-ref")
	cmd.Flags().StringVar(&baseRef, "base-ref", "HEAD~1", "git ref to diff against when --incremental is set")
	cmd.Flags().BoolVar(&check, "check", false, "enforce --min-score as a threshold, returning a nonzero exit when it is not met")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum acceptable mutation score (0-1), enforced only with --check")
	cmd.Flags().StringSliceVar(&testCommand, "test-command", nil, "override the auto-detected test command, e.g. --test-command=go,test,./...")

	return cmd
}

type mutateOptions struct {
	root        string
	excludes    []string
	preset      string
	jobs        int
	timeout     time.Duration
	incremental bool
	baseRef     string
	check       bool
	minScore    float64
	testCommand []string
}

func runMutate(ctx context.Context, opts mutateOptions) error {
	reporter := core.NewProgressReporter(os.Stderr, "scanning")

	files, err := core.FromPath(opts.root, core.ScanOptions{
		ExcludePatterns: opts.excludes,
		OnProgress:      reporter.AsProgressFunc(),
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", opts.root, err)
	}

	reporter.Finish()

	operators, err := mutation.Registry(opts.preset)
	if err != nil {
		return err
	}

	p, err := parser.New()
	if err != nil {
		return fmt.Errorf("build parser: %w", err)
	}

	mutants, err := generateMutants(ctx, p, files.Files(), operators)
	if err != nil {
		return err
	}

	if opts.incremental {
		mutants, err = restrictToIncremental(ctx, opts, mutants)
		if err != nil {
			return err
		}
	}

	if len(mutants) == 0 {
		fmt.Fprintln(os.Stderr, "no mutants generated")

		return nil
	}

	testCommand := opts.testCommand
	if len(testCommand) == 0 {
		testCommand, err = mutation.DetectTestCommand(opts.root)
		if err != nil {
			return fmt.Errorf("detect test command: %w", err)
		}
	}

	executor := mutation.NewExecutor(mutation.ExecutorConfig{
		Jobs: opts.jobs, Timeout: opts.timeout, WorkDir: opts.root, TestCommand: testCommand,
	})

	progress := core.NewProgressReporter(os.Stderr, "mutating")

	started := time.Now()

	results, err := executor.Run(ctx, mutants, func(u mutation.ProgressUpdate) {
		progress.Update(u.Completed, u.Total)
	})
	if err != nil {
		return err
	}

	progress.Finish()

	summary := mutation.BuildSummary(results)
	printMutationSummary(summary, time.Since(started))

	if opts.check && summary.MutationScore < opts.minScore {
		return core.ThresholdViolationError(
			fmt.Sprintf("mutation score %.2f fell below --min-score %.2f", summary.MutationScore, opts.minScore),
			summary.MutationScore,
		)
	}

	return nil
}

// generateMutants parses every file once and runs every applicable operator
// over it, skipping files with no registered grammar.
func generateMutants(ctx context.Context, p *parser.Parser, files []string, operators []mutation.Operator) ([]mutation.Mutant, error) {
	var mutants []mutation.Mutant

	for _, path := range files {
		if !p.IsSupported(path) {
			continue
		}

		content, err := os.ReadFile(path) //nolint:gosec // path comes from Omen's own repository scan.
		if err != nil {
			return nil, core.IOError(path, err)
		}

		parsed, err := p.Parse(ctx, path, content)
		if err != nil {
			continue // unparsable file: skip rather than fail the whole run
		}

		lang := core.DetectLanguage(path)

		for _, op := range operators {
			if !op.Supports(lang) {
				continue
			}

			mutants = append(mutants, op.Generate(parsed, content)...)
		}
	}

	return mutants, nil
}

// restrictToIncremental narrows mutants to the lines changed since
// opts.baseRef, requiring opts.root to be a git working tree.
func restrictToIncremental(ctx context.Context, opts mutateOptions, mutants []mutation.Mutant) ([]mutation.Mutant, error) {
	changedFiles, err := mutation.ChangedFiles(ctx, opts.root, opts.baseRef)
	if err != nil {
		return nil, err
	}

	mutants = mutation.FilterToChanges(mutants, changedFiles)

	changedLines := make(map[string][]mutation.LineRange, len(changedFiles))

	for _, file := range changedFiles {
		ranges, err := mutation.ChangedLines(ctx, opts.root, opts.baseRef, file)
		if err != nil {
			return nil, err
		}

		changedLines[file] = ranges
	}

	return mutation.FilterToChangedLines(mutants, changedLines), nil
}

func printMutationSummary(summary mutation.Summary, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Mutation run", "Value"})
	t.AppendRow(table.Row{"total", humanize.Comma(int64(summary.Total))})
	t.AppendRow(table.Row{"killed", colorCount(summary.Killed)})
	t.AppendRow(table.Row{"survived", colorSurvived(summary.Survived)})
	t.AppendRow(table.Row{"timeout", humanize.Comma(int64(summary.Timeout))})
	t.AppendRow(table.Row{"build error", humanize.Comma(int64(summary.BuildError))})
	t.AppendRow(table.Row{"mutation score", fmt.Sprintf("%.1f%%", summary.MutationScore*100)})
	t.AppendFooter(table.Row{"elapsed", elapsed.Round(time.Millisecond)})

	t.Render()
}

func colorSurvived(n int) string {
	if n == 0 {
		return "0"
	}

	return color.New(color.FgYellow).Sprintf("%d", n)
}
