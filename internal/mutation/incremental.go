package mutation

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
)

// ChangedFiles returns the absolute paths of every file that differs
// between baseRef and the working tree, shelling out to the system git
// binary exactly as gitlib.Pickaxe does for key-search.
func ChangedFiles(ctx context.Context, repoPath, baseRef string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "diff", "--name-only", baseRef)

	var stdout bytes.Buffer

	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, core.GitError(fmt.Sprintf("git diff --name-only %s: %v", baseRef, err))
	}

	var files []string

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		files = append(files, filepath.Join(repoPath, line))
	}

	return files, nil
}

// FilterToChanges keeps only mutants whose file path is in changedFiles.
func FilterToChanges(mutants []Mutant, changedFiles []string) []Mutant {
	changed := make(map[string]bool, len(changedFiles))
	for _, f := range changedFiles {
		changed[filepath.Clean(f)] = true
	}

	var out []Mutant

	for _, m := range mutants {
		if changed[filepath.Clean(m.FilePath)] {
			out = append(out, m)
		}
	}

	return out
}

// LineRange is an inclusive, 1-indexed [Start, End] line range.
type LineRange struct {
	Start, End uint
}

// hunkHeader matches a unified-diff hunk header: "@@ -a,b +c,d @@".
var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// ChangedLines parses `git diff -U0 baseRef -- file` hunk headers into the
// 1-indexed line ranges touched on the "+" (new) side. A deletion-only hunk
// (count == 0) contributes no range, matching spec's "count==0 => no
// ranges" rule.
func ChangedLines(ctx context.Context, repoPath, baseRef, file string) ([]LineRange, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "diff", "-U0", baseRef, "--", file)

	var stdout bytes.Buffer

	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, core.GitError(fmt.Sprintf("git diff -U0 %s -- %s: %v", baseRef, file, err))
	}

	var ranges []LineRange

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		match := hunkHeader.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		start, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}

		count := uint64(1)
		if match[2] != "" {
			count, err = strconv.ParseUint(match[2], 10, 64)
			if err != nil {
				continue
			}
		}

		if count == 0 {
			continue // deletion-only hunk: nothing added to mutate
		}

		ranges = append(ranges, LineRange{Start: uint(start), End: uint(start + count - 1)})
	}

	return ranges, nil
}

// FilterToChangedLines keeps only mutants whose line falls within one of
// changedLinesByFile's ranges for its file.
func FilterToChangedLines(mutants []Mutant, changedLinesByFile map[string][]LineRange) []Mutant {
	var out []Mutant

	for _, m := range mutants {
		ranges, ok := changedLinesByFile[filepath.Clean(m.FilePath)]
		if !ok {
			continue
		}

		for _, r := range ranges {
			if m.Line >= r.Start && m.Line <= r.End {
				out = append(out, m)

				break
			}
		}
	}

	return out
}
