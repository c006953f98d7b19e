package gitlib

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// FileStat is one file's line-level churn within a single commit.
type FileStat struct {
	Path      string
	Additions int
	Deletions int
}

// CommitStats pairs a commit's identity with its per-file change stats,
// relative to its first parent (or the empty tree, for a root commit).
type CommitStats struct {
	Hash      Hash
	Author    Signature
	Committer Signature
	Message   string
	When      time.Time
	Files     []FileStat
}

// LogWithStats walks history from HEAD along first parents, returning every
// commit's per-file addition/deletion counts. When since is non-nil, commits
// authored before it are excluded. This is the churn data source consumed by
// hotspot, churn and ownership analysis: each reachable (commit, file) pair
// contributes to a file's churn score.
func (r *Repository) LogWithStats(since *time.Time) ([]CommitStats, error) {
	iter, err := r.Log(&LogOptions{Since: since, FirstParent: true})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	var results []CommitStats

	walkErr := iter.ForEach(func(c *Commit) error {
		stats, statErr := r.commitFileStats(c)
		if statErr != nil {
			return statErr
		}

		results = append(results, CommitStats{
			Hash:      c.Hash(),
			Author:    c.Author(),
			Committer: c.Committer(),
			Message:   c.Message(),
			When:      c.Author().When,
			Files:     stats,
		})

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk commits: %w", walkErr)
	}

	return results, nil
}

// commitFileStats diffs c against its first parent (or an empty tree for a
// root commit) and accumulates added/deleted line counts per file path.
func (r *Repository) commitFileStats(c *Commit) ([]FileStat, error) {
	newTree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit tree: %w", err)
	}
	defer newTree.Free()

	var oldTree *Tree

	if c.NumParents() > 0 {
		parent, parentErr := c.Parent(0)
		if parentErr != nil {
			return nil, fmt.Errorf("parent commit: %w", parentErr)
		}
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("parent tree: %w", err)
		}
		defer oldTree.Free()
	}

	diff, err := r.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	defer diff.Free()

	perFile := make(map[string]*FileStat)

	var order []string

	addPath := func(path string) *FileStat {
		if fs, ok := perFile[path]; ok {
			return fs
		}

		fs := &FileStat{Path: path}
		perFile[path] = fs
		order = append(order, path)

		return fs
	}

	foreachErr := diff.ForEach(func(delta DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		path := delta.NewFile.Path
		if path == "" {
			path = delta.OldFile.Path
		}

		fs := addPath(path)

		return func(_ git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			return func(line git2go.DiffLine) error {
				switch line.Origin {
				case git2go.DiffLineAddition:
					fs.Additions++
				case git2go.DiffLineDeletion:
					fs.Deletions++
				}

				return nil
			}, nil
		}, nil
	}, git2go.DiffDetailLines)
	if foreachErr != nil {
		return nil, fmt.Errorf("diff foreach: %w", foreachErr)
	}

	out := make([]FileStat, 0, len(order))
	for _, path := range order {
		out = append(out, *perFile[path])
	}

	return out, nil
}

// Pickaxe returns the Unix timestamps of every commit whose diff introduces
// or removes the literal string key (git log -S<key>), in git log order
// (newest first). libgit2
// has no native pickaxe search, so this shells out to the system git binary,
// matching original_source's own pickaxe implementation.
func Pickaxe(ctx context.Context, repoPath, key string) ([]time.Time, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoPath, "log", "--all",
		"--format=%at", "-S"+key)

	var stdout bytes.Buffer

	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git pickaxe -S%s: %w", key, err)
	}

	var out []time.Time

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sec, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}

		out = append(out, time.Unix(sec, 0).UTC())
	}

	return out, nil
}
