package complexity

import (
	"testing"

	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

func TestPercentileNearestRank(t *testing.T) {
	values := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	cases := map[int]int{
		50: values[50*10/100], // idx 5 -> 6
		90: values[90*10/100], // idx 9 -> 10
		95: values[95*10/100], // idx 9 -> 10
	}

	for p, want := range cases {
		if got := percentile(values, p); got != want {
			t.Errorf("percentile(values, %d) = %d, want %d", p, got, want)
		}
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil, 50) = %d, want 0", got)
	}
}

func TestPercentileClampsToLastIndex(t *testing.T) {
	values := []int{10, 20}
	if got := percentile(values, 100); got != 20 {
		t.Errorf("percentile at p=100 = %d, want 20 (clamped to n-1)", got)
	}
}

func TestBuildSummaryZeroFunctions(t *testing.T) {
	summary := buildSummary(nil, nil, nil)

	if summary.TotalFunctions != 0 {
		t.Fatalf("expected zero functions, got %d", summary.TotalFunctions)
	}

	if summary.MeanCyclomatic != 0 || summary.P50Cyclomatic != 0 {
		t.Errorf("zero-function summary must be all-zero, got %+v", summary)
	}
}

func TestBuildSummaryAggregates(t *testing.T) {
	files := []FileResult{{Path: "a.go"}, {Path: "b.go"}}
	cyclomatic := []int{1, 2, 3, 4, 5}
	cognitive := []int{0, 1, 2, 3, 10}

	summary := buildSummary(files, cyclomatic, cognitive)

	if summary.TotalFunctions != 5 {
		t.Fatalf("TotalFunctions = %d, want 5", summary.TotalFunctions)
	}

	if summary.SumCyclomatic != 15 {
		t.Errorf("SumCyclomatic = %d, want 15", summary.SumCyclomatic)
	}

	if summary.MeanCyclomatic != 3.0 {
		t.Errorf("MeanCyclomatic = %v, want 3.0", summary.MeanCyclomatic)
	}

	if summary.MaxCognitive != 10 {
		t.Errorf("MaxCognitive = %d, want 10", summary.MaxCognitive)
	}
}

func TestCountDecisionPoints(t *testing.T) {
	fn := &node.Node{
		Type: node.UASTFunction,
		Children: []*node.Node{
			{Type: node.UASTIf},
			{Type: node.UASTBinaryOp, Token: "&&"},
			{Type: node.UASTBinaryOp, Token: "+"},
			{
				Type: node.UASTLoop,
				Children: []*node.Node{
					{Type: node.UASTSwitch},
				},
			},
		},
	}

	// 1 If + 1 && + 1 Loop + 1 Switch (nested) = 4; the "+" binary op doesn't count.
	if got := countDecisionPoints(fn); got != 4 {
		t.Errorf("countDecisionPoints = %d, want 4", got)
	}
}

func TestCognitiveComplexityNestingVsFlat(t *testing.T) {
	// if { loop { } } -> outer if at depth 0 contributes 1+0=1,
	// inner loop at depth 1 contributes 1+1=2. Total = 3.
	fn := &node.Node{
		Type: node.UASTFunction,
		Children: []*node.Node{
			{
				Type: node.UASTIf,
				Children: []*node.Node{
					{Type: node.UASTLoop},
				},
			},
		},
	}

	if got := calculateCognitiveComplexity(fn); got != 3 {
		t.Errorf("calculateCognitiveComplexity = %d, want 3", got)
	}
}

func TestCognitiveComplexityFlatDoesNotIncreaseDepth(t *testing.T) {
	// switch { case { case { } } } -> switch at depth0: 1+0=1, recurse depth1.
	// case at depth1 (flat): 1+1=2, recurse depth1 (unchanged).
	// case at depth1 (flat): 1+1=2. Total = 1+2+2 = 5.
	fn := &node.Node{
		Type: node.UASTFunction,
		Children: []*node.Node{
			{
				Type: node.UASTSwitch,
				Children: []*node.Node{
					{
						Type: node.UASTCase,
						Children: []*node.Node{
							{Type: node.UASTCase},
						},
					},
				},
			},
		},
	}

	if got := calculateCognitiveComplexity(fn); got != 5 {
		t.Errorf("calculateCognitiveComplexity = %d, want 5", got)
	}
}

func TestMaxNestingDepth(t *testing.T) {
	fn := &node.Node{
		Type: node.UASTFunction,
		Children: []*node.Node{
			{
				Type: node.UASTIf,
				Children: []*node.Node{
					{
						Type: node.UASTLoop,
						Children: []*node.Node{
							{Type: node.UASTIdentifier},
						},
					},
				},
			},
		},
	}

	if got := calculateMaxNesting(fn, 0); got != 2 {
		t.Errorf("calculateMaxNesting = %d, want 2", got)
	}
}

func TestFunctionNameFromProps(t *testing.T) {
	fn := &node.Node{
		Type:  node.UASTFunction,
		Props: map[string]string{"name": "DoWork"},
	}

	if got := functionName(fn); got != "DoWork" {
		t.Errorf("functionName = %q, want DoWork", got)
	}
}

func TestFunctionNameFromChildRole(t *testing.T) {
	fn := &node.Node{
		Type: node.UASTFunction,
		Children: []*node.Node{
			{Type: node.UASTIdentifier, Token: "Helper", Roles: []node.Role{node.RoleName}},
		},
	}

	if got := functionName(fn); got != "Helper" {
		t.Errorf("functionName = %q, want Helper", got)
	}
}

func TestFunctionNameAnonymousFallback(t *testing.T) {
	fn := &node.Node{Type: node.UASTFunction}

	if got := functionName(fn); got != "anonymous" {
		t.Errorf("functionName = %q, want anonymous", got)
	}
}

func TestAnalyzeFunctionLines(t *testing.T) {
	fn := &node.Node{
		Type: node.UASTFunction,
		Pos:  &node.Positions{StartLine: 10, EndLine: 15},
	}

	result := analyzeFunction(fn)
	if result.Lines != 6 {
		t.Errorf("Lines = %d, want 6", result.Lines)
	}

	if result.Cyclomatic != 1 {
		t.Errorf("Cyclomatic = %d, want 1 (no decision points)", result.Cyclomatic)
	}
}
