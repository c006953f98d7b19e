package mutation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDetectTestCommandGoModule(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod", "module example\n")

	got, err := DetectTestCommand(dir)
	if err != nil {
		t.Fatalf("DetectTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "go test ./..." {
		t.Errorf("DetectTestCommand() = %v, want [go test ./...]", got)
	}
}

func TestDetectTestCommandCargo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml", "[package]\n")

	got, err := DetectTestCommand(dir)
	if err != nil {
		t.Fatalf("DetectTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "cargo test" {
		t.Errorf("DetectTestCommand() = %v, want [cargo test]", got)
	}
}

func TestDetectTestCommandNoMarkerFails(t *testing.T) {
	dir := t.TempDir()

	if _, err := DetectTestCommand(dir); err == nil {
		t.Error("DetectTestCommand() on an empty directory should return an error")
	}
}

func TestPackageJSONTestCommandSniffsJest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json", `{"devDependencies": {"jest": "^29.0.0"}}`)

	got, err := packageJSONTestCommand(dir)
	if err != nil {
		t.Fatalf("packageJSONTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "npx jest" {
		t.Errorf("packageJSONTestCommand() = %v, want [npx jest]", got)
	}
}

func TestPackageJSONTestCommandSniffsVitest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json", `{"devDependencies": {"vitest": "^1.0.0"}}`)

	got, err := packageJSONTestCommand(dir)
	if err != nil {
		t.Fatalf("packageJSONTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "npx vitest run" {
		t.Errorf("packageJSONTestCommand() = %v, want [npx vitest run]", got)
	}
}

func TestPackageJSONTestCommandFallsBackToNpm(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "package.json", `{"devDependencies": {}}`)

	got, err := packageJSONTestCommand(dir)
	if err != nil {
		t.Fatalf("packageJSONTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "npm test" {
		t.Errorf("packageJSONTestCommand() = %v, want [npm test]", got)
	}
}

func TestDetectTestCommandPrefersGoOverPackageJSON(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "go.mod", "module example\n")
	touch(t, dir, "package.json", `{}`)

	got, err := DetectTestCommand(dir)
	if err != nil {
		t.Fatalf("DetectTestCommand() error = %v", err)
	}

	if strings.Join(got, " ") != "go test ./..." {
		t.Errorf("DetectTestCommand() = %v, want go.mod to take priority", got)
	}
}
