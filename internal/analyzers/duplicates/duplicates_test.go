package duplicates

import (
	"testing"

	"github.com/Sumatoshi-tech/codefang/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

func TestPairKeyOrderless(t *testing.T) {
	if pairKey("a", "b") != pairKey("b", "a") {
		t.Error("pairKey should be orderless")
	}
}

func TestNumHashesMatchesBandsTimesRows(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.numHashes(); got != cfg.NumBands*cfg.NumRows {
		t.Errorf("numHashes() = %d, want %d", got, cfg.NumBands*cfg.NumRows)
	}
}

func TestSketchNilNodeYieldsEmptySignature(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	sig, tokens, err := a.sketch(nil, nil)
	if err != nil {
		t.Fatalf("sketch(nil): %v", err)
	}

	if len(tokens) != 0 {
		t.Errorf("tokens = %v, want empty", tokens)
	}

	if sig == nil {
		t.Fatal("expected non-nil signature")
	}
}

func TestTextSimilarityIdenticalStreamsIsOne(t *testing.T) {
	if got := textSimilarity("a b c", "a b c"); got != 1 {
		t.Errorf("textSimilarity(identical) = %v, want 1", got)
	}
}

func TestTextSimilarityBothEmptyIsOne(t *testing.T) {
	if got := textSimilarity("", ""); got != 1 {
		t.Errorf("textSimilarity(\"\",\"\") = %v, want 1", got)
	}
}

func TestTextSimilarityDisjointIsLow(t *testing.T) {
	if got := textSimilarity("aaaa", "bbbb"); got != 0 {
		t.Errorf("textSimilarity(disjoint same-length) = %v, want 0", got)
	}
}

func TestFindPairsEmptyCandidates(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	idx, err := lsh.New(a.config.NumBands, a.config.NumRows)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	pairs := a.findPairs(idx, nil)
	if len(pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(pairs))
	}
}

func TestFunctionNameFallsBackToAnonymous(t *testing.T) {
	fn := &node.Node{}

	if got := functionName(fn); got != "anonymous" {
		t.Errorf("functionName = %q, want anonymous", got)
	}
}

func TestFunctionNameReadsNameProp(t *testing.T) {
	fn := &node.Node{Props: map[string]string{"name": "doThing"}}

	if got := functionName(fn); got != "doThing" {
		t.Errorf("functionName = %q, want doThing", got)
	}
}
