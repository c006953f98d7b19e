package tdg

import (
	"testing"

	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 0.5, 1: 1, 2: 1}
	for in, want := range cases {
		if got := clamp01(in); got != want {
			t.Errorf("clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestGradeBands(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{95, "A"}, {85, "B"}, {75, "C"}, {65, "D"}, {10, "F"},
	}

	for _, c := range cases {
		if got := grade(c.total); got != c.want {
			t.Errorf("grade(%v) = %q, want %q", c.total, got, c.want)
		}
	}
}

func TestCommentDensityAllCommentsIsOne(t *testing.T) {
	content := "// a\n// b\n// c\n"

	if got := commentDensity(content); got != 1 {
		t.Errorf("commentDensity = %v, want 1", got)
	}
}

func TestCommentDensityNoCommentsIsZero(t *testing.T) {
	content := "x := 1\ny := 2\n"

	if got := commentDensity(content); got != 0 {
		t.Errorf("commentDensity = %v, want 0", got)
	}
}

func TestCommentDensityEmptyIsZero(t *testing.T) {
	if got := commentDensity(""); got != 0 {
		t.Errorf("commentDensity(\"\") = %v, want 0", got)
	}
}

func TestNamingConsistencyNoFunctionsIsOne(t *testing.T) {
	if got := namingConsistency(nil); got != 1 {
		t.Errorf("namingConsistency(nil) = %v, want 1", got)
	}
}

func TestNamingConsistencyUniformCamelIsOne(t *testing.T) {
	fns := []*node.Node{
		{Props: map[string]string{"name": "doThing"}},
		{Props: map[string]string{"name": "doOther"}},
	}

	if got := namingConsistency(fns); got != 1 {
		t.Errorf("namingConsistency = %v, want 1 (all camelCase)", got)
	}
}

func TestShannonEntropyEmptyIsZero(t *testing.T) {
	if got := shannonEntropy(""); got != 0 {
		t.Errorf("shannonEntropy(\"\") = %v, want 0", got)
	}
}

func TestShannonEntropyRepeatedCharIsZero(t *testing.T) {
	if got := shannonEntropy("aaaa"); got != 0 {
		t.Errorf("shannonEntropy(aaaa) = %v, want 0 (no uncertainty)", got)
	}
}

func TestShannonEntropyVariedCharsIsPositive(t *testing.T) {
	if got := shannonEntropy("abcdefgh"); got <= 0 {
		t.Errorf("shannonEntropy(abcdefgh) = %v, want > 0", got)
	}
}

func TestIsTestFileRecognizesConvention(t *testing.T) {
	cases := map[string]bool{
		"internal/analyzers/tdg/tdg_test.go": true,
		"internal/analyzers/tdg/tdg.go":      false,
		"test_helpers.py":                    true,
		"src/main.go":                        false,
	}

	for path, want := range cases {
		if got := isTestFile(path); got != want {
			t.Errorf("isTestFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestHasCriticalDefectSkipsTestFiles(t *testing.T) {
	fn := &node.Node{
		Children: []*node.Node{
			{Type: node.UASTCall, Props: map[string]string{"name": "panic"}},
		},
	}

	if hasCriticalDefect("a_test.go", []*node.Node{fn}) {
		t.Error("expected no critical defect flagged in a test file")
	}
}

func TestHasCriticalDefectDetectsUnguardedPanic(t *testing.T) {
	call := &node.Node{Type: node.UASTCall, Props: map[string]string{"name": "panic"}}
	fn := &node.Node{Children: []*node.Node{call}}

	if !hasCriticalDefect("a.go", []*node.Node{fn}) {
		t.Error("expected a critical defect for an unguarded panic() outside test code")
	}
}

func TestHasCriticalDefectIgnoresOrdinaryCalls(t *testing.T) {
	call := &node.Node{Type: node.UASTCall, Props: map[string]string{"name": "doWork"}}
	fn := &node.Node{Children: []*node.Node{call}}

	if hasCriticalDefect("a.go", []*node.Node{fn}) {
		t.Error("expected no critical defect for an ordinary call")
	}
}

func TestScoreAppliesCriticalDefectOverride(t *testing.T) {
	a := &Analyzer{config: DefaultConfig()}
	call := &node.Node{Type: node.UASTCall, Props: map[string]string{"name": "panic"}}
	fn := &node.Node{Children: []*node.Node{call}}
	parsed := &parser.ParseResult{Functions: []*node.Node{fn}}

	result := a.score("a.go", "", parsed, fileInputs{})

	if !result.CriticalDefect {
		t.Fatal("expected CriticalDefect = true")
	}

	if result.Total != 0 || result.Grade != "F" {
		t.Errorf("Total=%v Grade=%v, want 0/F", result.Total, result.Grade)
	}
}

func TestScoreNoHistoryAwardsFullHistoryPoints(t *testing.T) {
	a := &Analyzer{config: DefaultConfig()}
	parsed := &parser.ParseResult{}

	result := a.score("a.go", "", parsed, fileInputs{hasHistory: false, hasCoupling: false})

	if result.Hotspot != capHotspot {
		t.Errorf("Hotspot = %v, want full %v when no history available", result.Hotspot, capHotspot)
	}

	if result.TemporalCoupling != capTemporalCoupling {
		t.Errorf("TemporalCoupling = %v, want full %v when no history available", result.TemporalCoupling, capTemporalCoupling)
	}
}
