package satd

import (
	"testing"

	"github.com/Sumatoshi-tech/codefang/internal/core"
)

func mustAnalyzer(t *testing.T) *Analyzer {
	t.Helper()

	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}

	return a
}

func analyzeLines(t *testing.T, path string, lines ...string) []Item {
	t.Helper()

	content := ""
	for i, l := range lines {
		if i > 0 {
			content += "\n"
		}

		content += l
	}

	sf, err := core.NewSourceFile(path, []byte(content))
	if err != nil {
		t.Fatalf("core.NewSourceFile() error = %v", err)
	}

	return mustAnalyzer(t).analyzeFile(sf)
}

func TestBasicDetection(t *testing.T) {
	items := analyzeLines(t, "x.go", "// TODO fix this later")

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	if items[0].Marker != "TODO" {
		t.Errorf("Marker = %q, want TODO", items[0].Marker)
	}
}

func TestCategoryAssignment(t *testing.T) {
	items := analyzeLines(t, "x.go", "// SECURITY hole here")

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	if items[0].Category != "security" {
		t.Errorf("Category = %q, want security", items[0].Category)
	}
}

func TestSeverityMapping(t *testing.T) {
	if got := severityFromWeight(4.0); got != SeverityCritical {
		t.Errorf("severityFromWeight(4.0) = %v, want Critical", got)
	}

	if got := severityFromWeight(2.0); got != SeverityHigh {
		t.Errorf("severityFromWeight(2.0) = %v, want High", got)
	}

	if got := severityFromWeight(1.0); got != SeverityMedium {
		t.Errorf("severityFromWeight(1.0) = %v, want Medium", got)
	}

	if got := severityFromWeight(0.5); got != SeverityLow {
		t.Errorf("severityFromWeight(0.5) = %v, want Low", got)
	}
}

func TestAmbiguousMarkerRequiresPunctuation(t *testing.T) {
	items := analyzeLines(t, "x.go", "// Skip this validation if already authenticated")

	if len(items) != 0 {
		t.Fatalf("ambiguous marker without trailing punctuation should not match, got %d items", len(items))
	}
}

func TestAmbiguousMarkerWithColonMatches(t *testing.T) {
	items := analyzeLines(t, "x.go", "// SKIP: re-enable once upstream fixes flakiness")

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	if items[0].Marker != "SKIP" {
		t.Errorf("Marker = %q, want SKIP", items[0].Marker)
	}
}

func TestAmbiguousMarkerWithDashMatches(t *testing.T) {
	items := analyzeLines(t, "x.go", "// NEED- proper retry backoff")

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestUnambiguousMarkerMatchesAnywhere(t *testing.T) {
	items := analyzeLines(t, "x.go", "// this is a HACK to work around the upstream bug")

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestIgnoreDirectiveSuppresses(t *testing.T) {
	items := analyzeLines(t, "x.go", "// TODO fix this later omen:ignore")

	if len(items) != 0 {
		t.Fatalf("omen:ignore line should suppress detection, got %d items", len(items))
	}
}

func TestNonCommentLineIgnored(t *testing.T) {
	items := analyzeLines(t, "x.go", `fmt.Println("TODO: not a comment")`)

	if len(items) != 0 {
		t.Fatalf("non-comment line should not be scanned, got %d items", len(items))
	}
}

func TestOneMatchPerLine(t *testing.T) {
	items := analyzeLines(t, "x.go", "// TODO and FIXME both here")

	if len(items) != 1 {
		t.Fatalf("expected exactly one match per line, got %d", len(items))
	}
}

func TestDensityZeroWhenNoLOC(t *testing.T) {
	summary := Summary{}

	if summary.Density != 0 {
		t.Errorf("zero-value Summary.Density = %v, want 0", summary.Density)
	}
}
