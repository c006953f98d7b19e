package core

import (
	"context"
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/codefang/pkg/alg/lru"
	"github.com/Sumatoshi-tech/codefang/pkg/gitlib"
)

// ContentSource is the capability "read bytes for path P". It is the
// abstraction that lets every analyzer read either the working tree or a
// historical git commit through the same interface; see the
// content-source-transparency testable property.
type ContentSource interface {
	// Read returns the bytes at path, relative to the source's root.
	// Returns an Io Error when the path is absent from the filesystem, or a
	// Git Error when the tree lookup fails.
	Read(ctx context.Context, path string) ([]byte, error)
}

// FilesystemSource reads files directly from disk, rooted at Root.
type FilesystemSource struct {
	Root string
}

// NewFilesystemSource returns a ContentSource reading from root.
func NewFilesystemSource(root string) *FilesystemSource {
	return &FilesystemSource{Root: root}
}

// Read implements ContentSource. Thread-safe: os.ReadFile takes no shared state.
func (fs *FilesystemSource) Read(_ context.Context, path string) ([]byte, error) {
	full := path
	if fs.Root != "" && len(path) > 0 && !os.IsPathSeparator(path[0]) {
		full = fs.Root + string(os.PathSeparator) + path
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, IOError(path, err)
	}

	return data, nil
}

// TreeSource reads file contents from a specific git commit's tree, never
// touching the working directory. It re-opens the repository on every Read
// rather than holding a single shared handle, so it may be called from any
// goroutine concurrently — this matches the contract in spec §4.B ("the
// git-tree implementation re-opens the repository per read to avoid shared
// mutable handles").
type TreeSource struct {
	repoPath string
	commit   gitlib.Hash
}

// NewTreeSource returns a ContentSource reading path→blob through commit's
// tree in the repository at repoPath.
func NewTreeSource(repoPath string, commit gitlib.Hash) *TreeSource {
	return &TreeSource{repoPath: repoPath, commit: commit}
}

// Commit returns the 20-byte commit hash this source is pinned to.
func (ts *TreeSource) Commit() gitlib.Hash {
	return ts.commit
}

// Read implements ContentSource by opening a fresh repository handle,
// locating the commit, and reading path out of its tree.
func (ts *TreeSource) Read(ctx context.Context, path string) ([]byte, error) {
	repo, err := gitlib.OpenRepository(ts.repoPath)
	if err != nil {
		return nil, &Error{Kind: KindGit, Message: fmt.Sprintf("open repository: %v", err), Err: err}
	}
	defer repo.Free()

	commit, err := repo.LookupCommit(ctx, ts.commit)
	if err != nil {
		return nil, &Error{Kind: KindGit, Path: path, Message: fmt.Sprintf("lookup commit: %v", err), Err: err}
	}
	defer commit.Free()

	file, err := commit.File(path)
	if err != nil {
		return nil, &Error{Kind: KindGit, Path: path, Message: fmt.Sprintf("lookup file: %v", err), Err: err}
	}

	content, err := file.Contents()
	if err != nil {
		return nil, &Error{Kind: KindGit, Path: path, Message: fmt.Sprintf("read blob: %v", err), Err: err}
	}

	return content, nil
}

// CachingSource wraps another ContentSource with a bounded LRU cache keyed
// by path, so that a Runner fanning multiple analyzers out over the same
// FileSet reads each file's bytes from disk (or git) once rather than once
// per analyzer.
type CachingSource struct {
	inner ContentSource
	cache *lru.Cache[string, []byte]
}

// NewCachingSource wraps inner with an LRU cache bounded at maxBytes of
// cached content.
func NewCachingSource(inner ContentSource, maxBytes int64) *CachingSource {
	cache := lru.New[string, []byte](
		lru.WithMaxBytes[string, []byte](maxBytes, func(b []byte) int64 { return int64(len(b)) }),
	)

	return &CachingSource{inner: inner, cache: cache}
}

// Read implements ContentSource, populating the cache on miss.
func (cs *CachingSource) Read(ctx context.Context, path string) ([]byte, error) {
	if data, ok := cs.cache.Get(path); ok {
		return data, nil
	}

	data, err := cs.inner.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	cs.cache.Put(path, data)

	return data, nil
}

// Stats exposes the underlying cache's hit/miss counters.
func (cs *CachingSource) Stats() lru.Stats {
	return cs.cache.Stats()
}
