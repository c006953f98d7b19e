package mutation

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
)

// DetectTestCommand infers a test runner from marker files in root, porting
// original_source's marker list: Cargo.toml, go.mod, package.json (with a
// jest/vitest/mocha dependency sniffed before falling back to npm test),
// pytest.ini/pyproject.toml/setup.py, Gemfile, pom.xml, build.gradle.
func DetectTestCommand(root string) ([]string, error) {
	has := func(name string) bool {
		_, err := os.Stat(filepath.Join(root, name))

		return err == nil
	}

	switch {
	case has("go.mod"):
		return []string{"go", "test", "./..."}, nil
	case has("Cargo.toml"):
		return []string{"cargo", "test"}, nil
	case has("package.json"):
		return packageJSONTestCommand(root)
	case has("pytest.ini"), has("pyproject.toml"), has("setup.py"):
		return []string{"pytest"}, nil
	case has("Gemfile"):
		return []string{"bundle", "exec", "rspec"}, nil
	case has("pom.xml"):
		return []string{"mvn", "test"}, nil
	case has("build.gradle"), has("build.gradle.kts"):
		return []string{"gradle", "test"}, nil
	default:
		return nil, core.InvalidArgumentError("mutation: no recognized test-project marker found in " + root)
	}
}

func packageJSONTestCommand(root string) ([]string, error) {
	content, err := os.ReadFile(filepath.Join(root, "package.json")) //nolint:gosec // root is an operator-supplied scan path.
	if err != nil {
		return nil, core.IOError(filepath.Join(root, "package.json"), err)
	}

	text := string(content)

	switch {
	case strings.Contains(text, `"vitest"`):
		return []string{"npx", "vitest", "run"}, nil
	case strings.Contains(text, `"jest"`):
		return []string{"npx", "jest"}, nil
	case strings.Contains(text, `"mocha"`):
		return []string{"npx", "mocha"}, nil
	default:
		return []string{"npm", "test"}, nil
	}
}
