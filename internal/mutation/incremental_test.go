package mutation

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func setupChangedRepo(t *testing.T) (repoPath, file string) {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")

	file = filepath.Join(dir, "main.go")
	if err := os.WriteFile(file, []byte("package main\n\nfunc main() {\n\tprintln(\"a\")\n}\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial")

	if err := os.WriteFile(file, []byte("package main\n\nfunc main() {\n\tprintln(\"b\")\n\tprintln(\"c\")\n}\n"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "change")

	return dir, file
}

func TestChangedFilesListsModifiedPaths(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	repo, file := setupChangedRepo(t)

	files, err := ChangedFiles(context.Background(), repo, "HEAD~1")
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}

	if len(files) != 1 || files[0] != file {
		t.Fatalf("ChangedFiles() = %v, want [%s]", files, file)
	}
}

func TestFilterToChanges(t *testing.T) {
	mutants := []Mutant{
		{FilePath: "/repo/a.go"},
		{FilePath: "/repo/b.go"},
	}

	got := FilterToChanges(mutants, []string{"/repo/a.go"})
	if len(got) != 1 || got[0].FilePath != "/repo/a.go" {
		t.Fatalf("FilterToChanges() = %v, want only a.go", got)
	}
}

func TestChangedLinesParsesHunkHeaders(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	repo, file := setupChangedRepo(t)

	ranges, err := ChangedLines(context.Background(), repo, "HEAD~1", file)
	if err != nil {
		t.Fatalf("ChangedLines() error = %v", err)
	}

	if len(ranges) == 0 {
		t.Fatal("ChangedLines() returned no ranges for a modified file")
	}

	for _, r := range ranges {
		if r.Start == 0 || r.End < r.Start {
			t.Errorf("invalid range: %+v", r)
		}
	}
}

func TestFilterToChangedLines(t *testing.T) {
	mutants := []Mutant{
		{FilePath: "/repo/a.go", Line: 5},
		{FilePath: "/repo/a.go", Line: 50},
		{FilePath: "/repo/b.go", Line: 5},
	}

	ranges := map[string][]LineRange{"/repo/a.go": {{Start: 1, End: 10}}}

	got := FilterToChangedLines(mutants, ranges)
	if len(got) != 1 || got[0].Line != 5 || got[0].FilePath != "/repo/a.go" {
		t.Fatalf("FilterToChangedLines() = %v, want just a.go:5", got)
	}
}
