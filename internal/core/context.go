package core

import (
	"context"

	"github.com/Sumatoshi-tech/codefang/pkg/gitlib"
)

// AnalysisContext is the shared per-run bag every Analyzer receives: the
// FileSet to operate over, the Config, an optional git repository path, an
// optional ContentSource (defaulting to the filesystem), and an optional
// progress callback. Analyzers MUST read file bytes through ReadFile rather
// than the filesystem directly, so that content-source transparency holds
// when analyzing a historical commit.
type AnalysisContext struct {
	Root    string
	Files   *FileSet
	Config  any // caller-defined configuration, passed through untouched
	GitPath string

	source   ContentSource
	onProg   ProgressFunc
}

// defaultContentCacheBytes bounds how much file content a shared
// AnalysisContext caches across the analyzers a Runner fans out over it.
const defaultContentCacheBytes = 256 << 20

// NewAnalysisContext builds a context over files rooted at root. Reads are
// cached so that the several analyzers a Runner dispatches over the same
// FileSet do not each re-read identical file content from disk.
func NewAnalysisContext(root string, files *FileSet, cfg any) *AnalysisContext {
	return &AnalysisContext{
		Root:   root,
		Files:  files,
		Config: cfg,
		source: NewCachingSource(NewFilesystemSource(root), defaultContentCacheBytes),
	}
}

// WithGitPath returns a copy of ctx pinned to the given git repository path.
func (ctx *AnalysisContext) WithGitPath(path string) *AnalysisContext {
	clone := *ctx
	clone.GitPath = path

	return &clone
}

// WithContentSource returns a copy of ctx reading bytes through source
// instead of the filesystem — used by Trend to pin analysis to a historical
// commit via a TreeSource.
func (ctx *AnalysisContext) WithContentSource(source ContentSource) *AnalysisContext {
	clone := *ctx
	clone.source = source

	return &clone
}

// WithProgress returns a copy of ctx reporting progress through fn.
func (ctx *AnalysisContext) WithProgress(fn ProgressFunc) *AnalysisContext {
	clone := *ctx
	clone.onProg = fn

	return &clone
}

// ReadFile reads path's bytes through the context's ContentSource.
func (ctx *AnalysisContext) ReadFile(goCtx context.Context, path string) ([]byte, error) {
	return ctx.source.Read(goCtx, path)
}

// ReportProgress invokes the progress callback, if any.
func (ctx *AnalysisContext) ReportProgress(current, total int) {
	if ctx.onProg != nil {
		ctx.onProg(current, total)
	}
}

// OpenGit opens a thread-local handle to the context's git repository.
// Returns nil, nil when GitPath is unset — callers degrade gracefully
// (e.g. ownership without git yields zero bus factor) rather than erroring.
func (ctx *AnalysisContext) OpenGit() (*gitlib.Repository, error) {
	if ctx.GitPath == "" {
		return nil, nil //nolint:nilnil // "no git" is a valid, non-error state
	}

	repo, err := gitlib.OpenRepository(ctx.GitPath)
	if err != nil {
		return nil, GitError(err.Error())
	}

	return repo, nil
}
