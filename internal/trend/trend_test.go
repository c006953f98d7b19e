package trend

import (
	"testing"
)

func TestDiffComputesChange(t *testing.T) {
	prev := Snapshot{Metrics: map[string]float64{"satd_items": 10, "hotspot_critical": 2}}
	curr := Snapshot{Metrics: map[string]float64{"satd_items": 7, "hotspot_critical": 2, "duplicates_pairs": 3}}

	deltas := Diff(prev, curr)

	byMetric := make(map[string]Delta, len(deltas))
	for _, d := range deltas {
		byMetric[d.Metric] = d
	}

	if d := byMetric["satd_items"]; d.Change != -3 {
		t.Errorf("satd_items change = %v, want -3", d.Change)
	}

	if d := byMetric["hotspot_critical"]; d.Change != 0 {
		t.Errorf("hotspot_critical change = %v, want 0", d.Change)
	}

	if d := byMetric["duplicates_pairs"]; d.Previous != 0 || d.Change != 3 {
		t.Errorf("duplicates_pairs = %+v, want Previous=0 Change=3 (new metric)", d)
	}
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	if err := store.Save(dir, map[string]float64{"satd_items": 5}, Snapshot{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, ok, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !ok {
		t.Fatal("expected ok=true after a prior Save")
	}

	if snap.Metrics["satd_items"] != 5 {
		t.Errorf("Metrics[satd_items] = %v, want 5", snap.Metrics["satd_items"])
	}

	if snap.Smoothed["satd_items"] != 5 {
		t.Errorf("Smoothed[satd_items] = %v, want 5 (first observation seeds the average)", snap.Smoothed["satd_items"])
	}
}

func TestStoreSaveSmoothsAgainstPrevious(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	if err := store.Save(dir, map[string]float64{"satd_items": 10}, Snapshot{}); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	first, _, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := store.Save(dir, map[string]float64{"satd_items": 0}, first); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	second, _, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := emaAlpha*0 + (1-emaAlpha)*10

	if got := second.Smoothed["satd_items"]; got != want {
		t.Errorf("Smoothed[satd_items] = %v, want %v", got, want)
	}
}

func TestStoreLoadMissingSnapshotIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	_, ok, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load on empty dir: %v", err)
	}

	if ok {
		t.Error("expected ok=false when no snapshot has ever been saved")
	}
}
