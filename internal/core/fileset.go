package core

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Sumatoshi-tech/codefang/pkg/gitlib"
)

// FileSet is a discovered, filtered, deterministically-ordered collection of
// source paths rooted at a directory. Every path has a detected Language;
// paths with an unrecognized extension are dropped during scanning.
type FileSet struct {
	root  string
	files []string // relative to root, lexicographically sorted
}

// ProgressFunc reports scan/analysis progress as (current, total).
type ProgressFunc func(current, total int)

// ScanOptions configures FileSet discovery.
type ScanOptions struct {
	// ExcludePatterns are doublestar globs; matching paths (by full relative
	// path or bare file name) are dropped.
	ExcludePatterns []string
	// OnProgress, if set, is invoked every 100 files scanned.
	OnProgress ProgressFunc
}

// FromPath walks root, honoring .gitignore/.git/info/exclude and hidden-file
// conventions, and returns the FileSet of files with a recognized Language.
func FromPath(root string, opts ScanOptions) (*FileSet, error) {
	exclude, err := compileExcludeSet(opts.ExcludePatterns)
	if err != nil {
		return nil, InvalidArgumentError("invalid exclude pattern: " + err.Error())
	}

	ignorer := loadIgnoreRules(root)

	var files []string

	count := 0

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries, continue the walk
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if rel == "." {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if name == ".git" || (strings.HasPrefix(name, ".") && name != ".") {
				return filepath.SkipDir
			}

			if ignorer.matchDir(rel) {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		relSlash := filepath.ToSlash(rel)
		if ignorer.match(relSlash) {
			return nil
		}

		if DetectLanguage(relSlash) == LangUnknown {
			return nil
		}

		if exclude.matches(relSlash, name) {
			return nil
		}

		files = append(files, relSlash)
		count++

		if opts.OnProgress != nil && count%100 == 0 {
			opts.OnProgress(count, 0)
		}

		return nil
	})
	if walkErr != nil {
		return nil, IOError(root, walkErr)
	}

	sort.Strings(files)

	if opts.OnProgress != nil {
		opts.OnProgress(len(files), len(files))
	}

	return &FileSet{root: root, files: files}, nil
}

// FromFiles builds a FileSet from an explicit, pre-determined file list
// (relative to root). The list is sorted for deterministic iteration.
func FromFiles(root string, files []string) *FileSet {
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	return &FileSet{root: root, files: sorted}
}

// FromTreeSource lists files out of ts (a TreeSource) and filters them
// exactly as FromPath does for the filesystem case: unsupported languages
// and exclude-glob matches are dropped. root is reported as "." since a
// TreeSource has no working-directory root.
func FromTreeSource(ts *TreeSource, repoPath string, excludePatterns []string) (*FileSet, error) {
	exclude, err := compileExcludeSet(excludePatterns)
	if err != nil {
		return nil, InvalidArgumentError("invalid exclude pattern: " + err.Error())
	}

	// Re-open just to list tree entries; content reads still go through ts.
	files, listErr := listTreeFiles(repoPath, ts.Commit())
	if listErr != nil {
		return nil, listErr
	}

	filtered := files[:0]

	for _, f := range files {
		if DetectLanguage(f) == LangUnknown {
			continue
		}

		if exclude.matches(f, filepath.Base(f)) {
			continue
		}

		filtered = append(filtered, f)
	}

	sort.Strings(filtered)

	return &FileSet{root: ".", files: filtered}, nil
}

// Root returns the FileSet's root path.
func (fs *FileSet) Root() string { return fs.root }

// Files returns the ordered, relative file paths.
func (fs *FileSet) Files() []string { return fs.files }

// Len returns the number of files.
func (fs *FileSet) Len() int { return len(fs.files) }

// IsEmpty reports whether the FileSet has no files.
func (fs *FileSet) IsEmpty() bool { return len(fs.files) == 0 }

// FilterByLanguage returns a new FileSet containing only files of lang.
func (fs *FileSet) FilterByLanguage(lang Language) *FileSet {
	var out []string

	for _, f := range fs.files {
		if DetectLanguage(f) == lang {
			out = append(out, f)
		}
	}

	return &FileSet{root: fs.root, files: out}
}

// FilterByGlob returns a new FileSet containing only files matching pattern
// (matched against the full relative path or the bare file name).
func (fs *FileSet) FilterByGlob(pattern string) *FileSet {
	var out []string

	for _, f := range fs.files {
		if ok, _ := doublestar.Match(pattern, f); ok {
			out = append(out, f)

			continue
		}

		if ok, _ := doublestar.Match(pattern, filepath.Base(f)); ok {
			out = append(out, f)
		}
	}

	return &FileSet{root: fs.root, files: out}
}

// ExcludeByGlob returns a new FileSet with files matching pattern removed.
func (fs *FileSet) ExcludeByGlob(pattern string) *FileSet {
	var out []string

	for _, f := range fs.files {
		okPath, _ := doublestar.Match(pattern, f)
		okName, _ := doublestar.Match(pattern, filepath.Base(f))

		if !okPath && !okName {
			out = append(out, f)
		}
	}

	return &FileSet{root: fs.root, files: out}
}

// GroupByLanguage partitions the file set by detected language.
func (fs *FileSet) GroupByLanguage() map[Language][]string {
	groups := make(map[Language][]string)

	for _, f := range fs.files {
		lang := DetectLanguage(f)
		groups[lang] = append(groups[lang], f)
	}

	return groups
}

// RelativePath strips fs.Root() from path, falling back to path unchanged
// when it lies outside the root.
func (fs *FileSet) RelativePath(path string) string {
	rel, err := filepath.Rel(fs.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return filepath.ToSlash(rel)
}

// excludeSet is a pre-compiled set of doublestar glob patterns.
// compileExcludeSet drops invalid patterns silently and never returns an
// error.
type excludeSet struct {
	patterns []string
}

func compileExcludeSet(patterns []string) (*excludeSet, error) {
	set := &excludeSet{}

	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			continue // silently skip invalid patterns, per original_source's build_glob_set
		}

		set.patterns = append(set.patterns, p)
	}

	return set, nil
}

func (s *excludeSet) matches(relPath, name string) bool {
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}

		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}

	return false
}

// ignoreRules is a minimal .gitignore-style matcher. Patterns are read from
// .gitignore and .git/info/exclude at the scan root and translated into
// doublestar patterns, following the shape of the pack's own hand-rolled
// gitignore parser rather than pulling a dedicated gitignore library.
type ignoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob      string
	negate    bool
	dirOnly   bool
	anchored  bool
}

func loadIgnoreRules(root string) *ignoreRules {
	rules := &ignoreRules{}

	for _, rel := range []string{".gitignore", filepath.Join(".git", "info", "exclude")} {
		rules.loadFile(filepath.Join(root, rel))
	}

	return rules
}

func (r *ignoreRules) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := ignorePattern{}

		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}

		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}

		if strings.Contains(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}

		if !p.anchored && !strings.Contains(line, "**") {
			line = "**/" + line
		}

		p.glob = line
		r.patterns = append(r.patterns, p)
	}
}

func (r *ignoreRules) match(relPath string) bool {
	matched := false

	for _, p := range r.patterns {
		if ok, _ := doublestar.Match(p.glob, relPath); ok {
			matched = !p.negate
		}

		if ok, _ := doublestar.Match(p.glob+"/**", relPath); ok {
			matched = !p.negate
		}
	}

	return matched
}

func (r *ignoreRules) matchDir(relPath string) bool {
	for _, p := range r.patterns {
		if !p.dirOnly && !p.negate {
			if ok, _ := doublestar.Match(p.glob, relPath); ok {
				return true
			}
		}

		if p.dirOnly {
			if ok, _ := doublestar.Match(p.glob, relPath); ok {
				return true
			}
		}
	}

	return false
}

// listTreeFiles lists every blob path reachable from commit's tree.
func listTreeFiles(repoPath string, commit gitlib.Hash) ([]string, error) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return nil, &Error{Kind: KindGit, Message: err.Error(), Err: err}
	}
	defer repo.Free()

	c, err := repo.LookupCommit(context.Background(), commit)
	if err != nil {
		return nil, &Error{Kind: KindGit, Message: err.Error(), Err: err}
	}
	defer c.Free()

	tree, err := c.Tree()
	if err != nil {
		return nil, &Error{Kind: KindGit, Message: err.Error(), Err: err}
	}
	defer tree.Free()

	var files []string

	iterErr := tree.Files().ForEach(func(f *gitlib.File) error {
		files = append(files, filepath.ToSlash(f.Name))

		return nil
	})
	if iterErr != nil {
		return nil, &Error{Kind: KindGit, Message: iterErr.Error(), Err: iterErr}
	}

	return files, nil
}
