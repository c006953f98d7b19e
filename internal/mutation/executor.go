package mutation

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ExecutorConfig controls the parallel executor's concurrency, per-mutant
// timeout, and the command used to run the target's test suite.
type ExecutorConfig struct {
	// Jobs is the global concurrency permit count; 0 means runtime.NumCPU().
	Jobs int
	// Timeout bounds each mutant's test-command run; the default is 30s.
	Timeout time.Duration
	// TestCommand is argv for the test runner, e.g. ["go", "test", "./..."].
	TestCommand []string
	// WorkDir is the directory the test command runs in (the repo root).
	WorkDir string
}

// DefaultExecutorConfig matches the thresholds used when no configuration
// is supplied.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Timeout: 30 * time.Second}
}

// ProgressUpdate is a snapshot of an in-flight Run, suitable for a progress
// callback.
type ProgressUpdate struct {
	Completed int
	Total     int
	Killed    int
	Survived  int
	Timeout   int
}

// fileLockManager hands out one mutual-exclusion lock per file path, so two
// workers never mutate the same file concurrently.
type fileLockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFileLockManager() *fileLockManager {
	return &fileLockManager{locks: make(map[string]*sync.Mutex)}
}

func (m *fileLockManager) lockFor(path string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[path] = lock
	}

	return lock
}

// Executor runs mutants against a test command in parallel, one worker per
// global permit, serialized per file by fileLockManager. Lock order is
// always global permit before per-file lock.
type Executor struct {
	config    ExecutorConfig
	fileLocks *fileLockManager
	shutdown  atomic.Bool
}

// NewExecutor builds an Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{config: cfg, fileLocks: newFileLockManager()}
}

// Shutdown requests a graceful stop: in-flight mutants finish, no new ones
// start.
func (e *Executor) Shutdown() { e.shutdown.Store(true) }

// Run tests every mutant, reporting results in completion order (callers
// must sort if a stable order is required) and invoking onProgress after
// each completion if non-nil.
func (e *Executor) Run(ctx context.Context, mutants []Mutant, onProgress func(ProgressUpdate)) ([]Result, error) {
	jobs := e.config.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	sem := semaphore.NewWeighted(int64(jobs))

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		results   []Result
		completed int
		killed    int
		survived  int
		timeouts  int
	)

	for _, m := range mutants {
		if e.shutdown.Load() {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)

		go func(m Mutant) {
			defer wg.Done()
			defer sem.Release(1)

			if e.shutdown.Load() {
				return
			}

			lock := e.fileLocks.lockFor(m.FilePath)
			lock.Lock()
			result := e.runOne(ctx, m)
			lock.Unlock()

			mu.Lock()
			results = append(results, result)
			completed++

			switch result.Status {
			case StatusKilled:
				killed++
			case StatusSurvived:
				survived++
			case StatusTimeout:
				timeouts++
			case StatusPending, StatusBuildError, StatusEquivalent:
			}

			if onProgress != nil {
				onProgress(ProgressUpdate{
					Completed: completed, Total: len(mutants),
					Killed: killed, Survived: survived, Timeout: timeouts,
				})
			}
			mu.Unlock()
		}(m)
	}

	wg.Wait()

	return results, nil
}

// runOne guards the mutant's file, applies the mutation, runs the test
// command under a timeout, and classifies the outcome. The guard always
// restores the original bytes before returning, on every exit path.
func (e *Executor) runOne(ctx context.Context, m Mutant) Result {
	guard, err := NewGuard(m.FilePath)
	if err != nil {
		return Result{Mutant: m, Status: StatusBuildError, Output: err.Error()}
	}
	defer guard.Restore() //nolint:errcheck // best-effort restore; the original bytes are still in memory either way.

	if err := guard.Apply(m.Apply(guard.Original())); err != nil {
		return Result{Mutant: m, Status: StatusBuildError, Output: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	started := time.Now()

	cmd := exec.CommandContext(runCtx, e.config.TestCommand[0], e.config.TestCommand[1:]...)
	cmd.Dir = e.config.WorkDir
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	runErr := cmd.Run()
	duration := time.Since(started)

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{Mutant: m, Status: StatusTimeout, Duration: duration.Milliseconds()}
	}

	var exitErr *exec.ExitError

	switch {
	case runErr == nil:
		return Result{Mutant: m, Status: StatusSurvived, Duration: duration.Milliseconds()}
	case errors.As(runErr, &exitErr):
		return Result{Mutant: m, Status: StatusKilled, Duration: duration.Milliseconds()}
	default:
		return Result{Mutant: m, Status: StatusBuildError, Duration: duration.Milliseconds(), Output: runErr.Error()}
	}
}
