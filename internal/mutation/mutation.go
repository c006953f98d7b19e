// Package mutation implements Omen's mutation-testing subsystem: generating
// small, localized source substitutions (Mutants), guarding the file they
// target while a test command runs against each one, and scoring how many
// the test suite actually caught.
package mutation

// Mutant is a single, localized source substitution: replace source bytes
// in [StartOffset, EndOffset) with Replacement.
type Mutant struct {
	ID          string `json:"id"`
	FilePath    string `json:"file_path"`
	Operator    string `json:"operator"`
	Line        uint   `json:"line"`
	Column      uint   `json:"column"`
	StartOffset uint   `json:"start_offset"`
	EndOffset   uint   `json:"end_offset"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// Apply returns a new byte buffer with source[StartOffset:EndOffset]
// replaced by Replacement. source is never modified in place.
func (m Mutant) Apply(source []byte) []byte {
	if int(m.EndOffset) > len(source) || m.StartOffset > m.EndOffset {
		return append([]byte(nil), source...)
	}

	out := make([]byte, 0, len(source)-int(m.EndOffset-m.StartOffset)+len(m.Replacement))
	out = append(out, source[:m.StartOffset]...)
	out = append(out, m.Replacement...)
	out = append(out, source[m.EndOffset:]...)

	return out
}

// Status is a mutant's final testing verdict.
type Status string

const (
	StatusPending    Status = "pending"
	StatusKilled     Status = "killed"
	StatusSurvived   Status = "survived"
	StatusTimeout    Status = "timeout"
	StatusBuildError Status = "build_error"
	StatusEquivalent Status = "equivalent"
)

// Result pairs a Mutant with its testing outcome and wall-clock duration.
type Result struct {
	Mutant   Mutant        `json:"mutant"`
	Status   Status        `json:"status"`
	Duration int64         `json:"duration_ms"`
	Output   string        `json:"output,omitempty"`
}

// Score computes killed / (killed + survived), the fraction of mutants the
// test suite actually caught. Timeout, BuildError, Equivalent and Pending
// results are excluded from both numerator and denominator. A project with
// no scoreable mutants returns 0, not NaN.
func Score(results []Result) float64 {
	var killed, survived int

	for _, r := range results {
		switch r.Status {
		case StatusKilled:
			killed++
		case StatusSurvived:
			survived++
		case StatusPending, StatusTimeout, StatusBuildError, StatusEquivalent:
			// excluded from scoring
		}
	}

	if killed+survived == 0 {
		return 0
	}

	return float64(killed) / float64(killed+survived)
}

// Summary aggregates a run's results by status.
type Summary struct {
	Total        int     `json:"total"`
	Killed       int     `json:"killed"`
	Survived     int     `json:"survived"`
	Timeout      int     `json:"timeout"`
	BuildError   int     `json:"build_error"`
	MutationScore float64 `json:"mutation_score"`
}

// BuildSummary tallies results into a Summary.
func BuildSummary(results []Result) Summary {
	summary := Summary{Total: len(results)}

	for _, r := range results {
		switch r.Status {
		case StatusKilled:
			summary.Killed++
		case StatusSurvived:
			summary.Survived++
		case StatusTimeout:
			summary.Timeout++
		case StatusBuildError:
			summary.BuildError++
		case StatusPending, StatusEquivalent:
		}
	}

	summary.MutationScore = Score(results)

	return summary
}
