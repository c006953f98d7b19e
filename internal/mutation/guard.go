package mutation

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/codefang/internal/core"
)

// Guard holds a file's original bytes for the duration of a mutation test
// run and guarantees they are restored on every exit path: call NewGuard,
// defer guard.Restore(), then Apply the mutated bytes.
type Guard struct {
	path     string
	original []byte
	modified bool
}

// NewGuard captures path's current bytes into memory.
func NewGuard(path string) (*Guard, error) {
	original, err := os.ReadFile(path) //nolint:gosec // path comes from a Mutant generated over files Omen itself scanned.
	if err != nil {
		return nil, core.IOError(path, err)
	}

	return &Guard{path: path, original: original}, nil
}

// Original returns the bytes captured at construction time.
func (g *Guard) Original() []byte { return g.original }

// Apply atomically replaces the guarded file's contents: write to a sibling
// temp file, fsync, then rename into place, so a crash mid-write never
// leaves a half-written source file behind.
func (g *Guard) Apply(content []byte) error {
	if err := atomicWrite(g.path, content); err != nil {
		return err
	}

	g.modified = true

	return nil
}

// Restore atomically writes the original bytes back, if Apply ever ran.
// Safe to call multiple times and safe to call when nothing was ever
// applied.
func (g *Guard) Restore() error {
	if !g.modified {
		return nil
	}

	if err := atomicWrite(g.path, g.original); err != nil {
		return err
	}

	g.modified = false

	return nil
}

// atomicWrite writes content to a `.omen-mutation-<pid>.tmp` sibling of
// path, fsyncs it, then renames it over path.
func atomicWrite(path string, content []byte) error {
	tmp := fmt.Sprintf("%s.omen-mutation-%d.tmp", path, os.Getpid())

	info, statErr := os.Stat(path)

	mode := os.FileMode(0o644)
	if statErr == nil {
		mode = info.Mode()
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) //nolint:gosec // temp file sibling of an Omen-scanned source file.
	if err != nil {
		return core.IOError(tmp, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmp)

		return core.IOError(tmp, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)

		return core.IOError(tmp, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)

		return core.IOError(tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)

		return core.IOError(path, err)
	}

	return nil
}
