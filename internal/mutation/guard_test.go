package mutation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGuardApplyAndRestoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")

	original := []byte("package sample\n\nfunc add(a, b int) int { return a + b }\n")
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	guard, err := NewGuard(path)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if string(guard.Original()) != string(original) {
		t.Fatalf("Original() = %q, want %q", guard.Original(), original)
	}

	mutated := []byte("package sample\n\nfunc add(a, b int) int { return a - b }\n")
	if err := guard.Apply(mutated); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read after Apply: %v", err)
	}

	if string(onDisk) != string(mutated) {
		t.Fatalf("file after Apply = %q, want %q", onDisk, mutated)
	}

	if err := guard.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	onDisk, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read after Restore: %v", err)
	}

	if string(onDisk) != string(original) {
		t.Fatalf("file after Restore = %q, want %q", onDisk, original)
	}
}

func TestGuardRestoreWithoutApplyIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")

	original := []byte("package sample\n")
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	guard, err := NewGuard(path)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if err := guard.Restore(); err != nil {
		t.Fatalf("Restore() without Apply should be a no-op, got error: %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(onDisk) != string(original) {
		t.Fatalf("file changed by a no-op Restore: %q", onDisk)
	}
}

func TestGuardRestoreIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")

	original := []byte("package sample\n")
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	guard, err := NewGuard(path)
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if err := guard.Apply([]byte("package mutated\n")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if err := guard.Restore(); err != nil {
		t.Fatalf("first Restore() error = %v", err)
	}

	if err := guard.Restore(); err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(onDisk) != string(original) {
		t.Fatalf("file = %q after repeated Restore, want %q", onDisk, original)
	}
}

func TestNewGuardMissingFileReturnsIOError(t *testing.T) {
	_, err := NewGuard(filepath.Join(t.TempDir(), "does-not-exist.go"))
	if err == nil {
		t.Fatal("expected an error for a missing file, got nil")
	}
}

func TestAtomicWritePreservesFileMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")

	if err := os.WriteFile(path, []byte("package sample\n"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := atomicWrite(path, []byte("package sample\n\n// mutated\n")); err != nil {
		t.Fatalf("atomicWrite() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode after atomicWrite = %v, want 0600", info.Mode().Perm())
	}
}
