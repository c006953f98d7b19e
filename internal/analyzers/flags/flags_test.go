package flags

import "testing"

func TestPriorityLevels(t *testing.T) {
	cases := []struct {
		complexity int
		want       string
	}{
		{5, "Low"},
		{10, "Medium"},
		{19, "Medium"},
		{20, "High"},
		{49, "High"},
		{50, "Critical"},
		{200, "Critical"},
	}

	for _, c := range cases {
		if got := priorityFor(c.complexity).Level; got != c.want {
			t.Errorf("priorityFor(%d).Level = %q, want %q", c.complexity, got, c.want)
		}
	}
}

func TestFlipperSymbolDetection(t *testing.T) {
	providers := builtinProviders()

	var flipper *provider

	for i := range providers {
		if providers[i].name == "flipper" {
			flipper = &providers[i]

			break
		}
	}

	if flipper == nil {
		t.Fatal("flipper provider not found")
	}

	matches := findAllWithLine([]byte("Flipper[:my_feature]"), flipper.pattern)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	if matches[0].key != "my_feature" {
		t.Errorf("key = %q, want my_feature", matches[0].key)
	}
}

func TestFlipperEnableDetection(t *testing.T) {
	providers := builtinProviders()

	var flipper *provider

	for i := range providers {
		if providers[i].name == "flipper" {
			flipper = &providers[i]

			break
		}
	}

	matches := findAllWithLine([]byte("Flipper.enable(:test_flag)"), flipper.pattern)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	if matches[0].key != "test_flag" {
		t.Errorf("key = %q, want test_flag", matches[0].key)
	}
}

func TestLaunchDarklyVariationDetection(t *testing.T) {
	providers := builtinProviders()

	var ld *provider

	for i := range providers {
		if providers[i].name == "launchdarkly" {
			ld = &providers[i]

			break
		}
	}

	matches := findAllWithLine([]byte(`client.variation("flag-key", user, false)`), ld.pattern)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	if matches[0].key != "flag-key" {
		t.Errorf("key = %q, want flag-key", matches[0].key)
	}
}

func TestFindAllWithLineReportsLineNumbers(t *testing.T) {
	providers := builtinProviders()

	var flipper *provider

	for i := range providers {
		if providers[i].name == "flipper" {
			flipper = &providers[i]

			break
		}
	}

	content := []byte("line one\nline two\nFlipper[:third_line_flag]\n")

	matches := findAllWithLine(content, flipper.pattern)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	if matches[0].line != 3 {
		t.Errorf("line = %d, want 3", matches[0].line)
	}
}

func TestBuildSummaryCounts(t *testing.T) {
	fs := []Flag{
		{Key: "a", Provider: "launchdarkly", Stale: false},
		{Key: "b", Provider: "launchdarkly", Stale: true},
		{Key: "c", Provider: "flipper", Stale: false},
	}

	summary := buildSummary(fs)

	if summary.TotalFlags != 3 {
		t.Errorf("TotalFlags = %d, want 3", summary.TotalFlags)
	}

	if summary.StaleFlags != 1 {
		t.Errorf("StaleFlags = %d, want 1", summary.StaleFlags)
	}

	if summary.ByProvider["launchdarkly"] != 2 {
		t.Errorf("ByProvider[launchdarkly] = %d, want 2", summary.ByProvider["launchdarkly"])
	}
}
