// Package trend tracks scalar signal values across runs so a repository's
// technical-debt trajectory can be reported, not just its current state.
package trend

import (
	"errors"
	"os"
	"time"

	"github.com/Sumatoshi-tech/codefang/pkg/alg/stats"
	"github.com/Sumatoshi-tech/codefang/pkg/persist"
)

const basename = "omen-trend"

// emaAlpha weights each new run at 30% against the running average, so a
// single noisy run doesn't swing the smoothed trend as hard as the raw delta.
const emaAlpha = 0.3

// Snapshot is the set of scalar signals recorded for a single run.
type Snapshot struct {
	RecordedAt time.Time          `json:"recorded_at"`
	Metrics    map[string]float64 `json:"metrics"`
	Smoothed   map[string]float64 `json:"smoothed"`
}

// Delta is the change in one metric between two snapshots.
type Delta struct {
	Metric   string  `json:"metric"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Change   float64 `json:"change"`
	Smoothed float64 `json:"smoothed"`
}

// Store persists and loads Snapshots under a directory using JSON encoding.
type Store struct {
	persister *persist.Persister[Snapshot]
}

// NewStore builds a Store. dir is the directory passed to Load/Save.
func NewStore() *Store {
	return &Store{persister: persist.NewPersister[Snapshot](basename, persist.NewJSONCodec())}
}

// Load reads the most recently saved snapshot from dir. A missing snapshot
// (first run against this dir) is not an error: it is reported via ok=false.
func (s *Store) Load(dir string) (snap Snapshot, ok bool, err error) {
	err = s.persister.Load(dir, func(loaded *Snapshot) {
		snap = *loaded
		ok = true
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}

		return Snapshot{}, false, err
	}

	return snap, ok, nil
}

// Save writes metrics as the current snapshot to dir, exponentially
// smoothing each metric against prev's smoothed value before persisting, and
// overwrites whatever was there before.
func (s *Store) Save(dir string, metrics map[string]float64, prev Snapshot) error {
	smoothed := make(map[string]float64, len(metrics))

	for name, value := range metrics {
		ema := stats.NewEMA(emaAlpha)
		if prevSmoothed, ok := prev.Smoothed[name]; ok {
			ema.Update(prevSmoothed)
		}

		smoothed[name] = ema.Update(value)
	}

	snap := Snapshot{RecordedAt: time.Now(), Metrics: metrics, Smoothed: smoothed}

	return s.persister.Save(dir, func() *Snapshot { return &snap })
}

// Diff computes the per-metric change from prev to curr. Metrics present in
// curr but absent from prev are reported with Previous=0; metrics dropped
// between runs are omitted, since nothing in the current run produced them.
func Diff(prev, curr Snapshot) []Delta {
	deltas := make([]Delta, 0, len(curr.Metrics))

	for name, value := range curr.Metrics {
		prevValue := prev.Metrics[name]
		deltas = append(deltas, Delta{
			Metric:   name,
			Previous: prevValue,
			Current:  value,
			Change:   value - prevValue,
			Smoothed: curr.Smoothed[name],
		})
	}

	return deltas
}
