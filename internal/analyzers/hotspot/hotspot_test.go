package hotspot

import "testing"

func TestPercentileRankBasic(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := percentileRank(values, 3); got != 50 {
		t.Errorf("percentileRank(values, 3) = %v, want 50", got)
	}
}

func TestPercentileRankEmpty(t *testing.T) {
	if got := percentileRank(nil, 1); got != 0 {
		t.Errorf("percentileRank(nil, 1) = %v, want 0", got)
	}
}

func TestPercentileRankTies(t *testing.T) {
	values := []float64{5, 5, 5, 5}

	if got := percentileRank(values, 5); got != 50 {
		t.Errorf("percentileRank all-tied = %v, want 50", got)
	}
}

func TestClassifySeverityBands(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{0.9, SeverityCritical},
		{0.81, SeverityCritical},
		{0.7, SeverityHigh},
		{0.64, SeverityHigh},
		{0.4, SeverityModerate},
		{0.36, SeverityModerate},
		{0.1, SeverityLow},
	}

	for _, c := range cases {
		if got := classifySeverity(c.score); got != c.want {
			t.Errorf("classifySeverity(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestCombineFiltersByPercentileGates(t *testing.T) {
	churn := map[string]fileChurn{
		"hot.go":  {commits: 10, score: 20},
		"cold.go": {commits: 1, score: 1},
	}
	comp := map[string]fileComplexity{
		"hot.go":  {totalCyclomatic: 50, avgCyclomatic: 25},
		"cold.go": {totalCyclomatic: 2, avgCyclomatic: 2},
	}

	cfg := Config{MinChurnPercentile: 50, MinComplexityPercentile: 50}

	hotspots := combine(churn, comp, cfg)

	if len(hotspots) != 1 {
		t.Fatalf("got %d hotspots, want 1", len(hotspots))
	}

	if hotspots[0].File != "hot.go" {
		t.Errorf("File = %q, want hot.go", hotspots[0].File)
	}
}

func TestBuildSummaryCountsBySeverity(t *testing.T) {
	hotspots := []Hotspot{
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	}

	summary := buildSummary(hotspots)

	if summary.TotalHotspots != 4 {
		t.Errorf("TotalHotspots = %d, want 4", summary.TotalHotspots)
	}

	if summary.CriticalCount != 1 {
		t.Errorf("CriticalCount = %d, want 1", summary.CriticalCount)
	}

	if summary.HighCount != 2 {
		t.Errorf("HighCount = %d, want 2", summary.HighCount)
	}
}
