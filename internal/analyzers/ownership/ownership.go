// Package ownership mines commit history for three related signals: churn
// (how often and how much a file changes), temporal coupling (which files
// tend to change together), and ownership (how concentrated a file's commits
// are among its authors, and the bus factor that implies).
package ownership

import (
	"context"
	"sort"
	"time"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/pkg/gitlib"
)

// Config controls the lookback window and the coupling/bus-factor gates.
type Config struct {
	Days               int
	MinSharedCommits   int
	MinCoupling        float64
	MaxCommitFileFanout int // commits touching more files than this are excluded from coupling (merge/vendor noise)
}

// DefaultConfig matches the thresholds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{Days: 180, MinSharedCommits: 3, MinCoupling: 0.3, MaxCommitFileFanout: 50}
}

// Churn is a single file's commit-frequency and line-volume signal.
type Churn struct {
	Path      string `json:"path"`
	Commits   int    `json:"commits"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Couple is a pair of files that change together often enough to suggest a
// hidden dependency between them.
type Couple struct {
	FileA         string  `json:"file_a"`
	FileB         string  `json:"file_b"`
	SharedCommits int     `json:"shared_commits"`
	Coupling      float64 `json:"coupling"` // shared / min(commits_a, commits_b)
}

// Ownership is a single file's author concentration.
type Ownership struct {
	Path           string  `json:"path"`
	TopAuthor      string  `json:"top_author"`
	TopAuthorShare float64 `json:"top_author_share"`
	AuthorCount    int     `json:"author_count"`
	BusFactor      int     `json:"bus_factor"` // authors needed to cover >50% of the file's commits
}

// Summary aggregates the three signals.
type Summary struct {
	TotalFiles      int `json:"total_files"`
	TotalCouples    int `json:"total_couples"`
	SingleOwnerFiles int `json:"single_owner_files"`
}

// Analysis is the full churn/coupling/ownership output for a run.
type Analysis struct {
	Churn     []Churn     `json:"churn"`
	Couples   []Couple    `json:"couples"`
	Ownership []Ownership `json:"ownership"`
	Summary   Summary     `json:"summary"`
}

// Analyzer mines a GitRepo's commit log for churn, coupling and ownership.
type Analyzer struct {
	config Config
}

// NewAnalyzer builds an Analyzer with default thresholds.
func NewAnalyzer() (*Analyzer, error) {
	return &Analyzer{config: DefaultConfig()}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "ownership" }

// RequiresGit implements core.Analyzer: every signal here is history-derived.
func (a *Analyzer) RequiresGit() bool { return true }

// Configure implements core.Analyzer.
func (a *Analyzer) Configure(cfg any) error {
	if c, ok := cfg.(Config); ok {
		a.config = c

		return nil
	}

	if c, ok := cfg.(*Config); ok && c != nil {
		a.config = *c

		return nil
	}

	return core.InvalidArgumentError("ownership: unexpected config type")
}

// Analyze implements core.Analyzer over the context's git repository.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	repo, err := actx.OpenGit()
	if err != nil {
		return nil, err
	}

	if repo == nil {
		return Analysis{}, nil
	}
	defer repo.Free()

	since := time.Now().AddDate(0, 0, -a.config.Days)

	commits, err := repo.LogWithStats(&since)
	if err != nil {
		return nil, core.GitError(err.Error())
	}

	churn := collectChurn(commits)
	couples := collectCoupling(commits, a.config)
	own := collectOwnership(commits)

	return Analysis{
		Churn:     churn,
		Couples:   couples,
		Ownership: own,
		Summary:   buildSummary(churn, couples, own),
	}, nil
}

type churnAccum struct {
	commits            int
	additions, deletions int
}

func collectChurn(commits []gitlib.CommitStats) []Churn {
	acc := make(map[string]*churnAccum)

	for _, c := range commits {
		for _, f := range c.Files {
			e, ok := acc[f.Path]
			if !ok {
				e = &churnAccum{}
				acc[f.Path] = e
			}

			e.commits++
			e.additions += f.Additions
			e.deletions += f.Deletions
		}
	}

	out := make([]Churn, 0, len(acc))
	for path, e := range acc {
		out = append(out, Churn{Path: path, Commits: e.commits, Additions: e.additions, Deletions: e.deletions})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Commits > out[j].Commits })

	return out
}

// collectCoupling counts, for every pair of files appearing together in a
// commit, how many commits they share; commits touching more than
// MaxCommitFileFanout files are skipped as noise (merges, vendor bumps).
// Reported pairs must clear both MinSharedCommits and MinCoupling.
func collectCoupling(commits []gitlib.CommitStats, cfg Config) []Couple {
	fileCommits := make(map[string]int)
	shared := make(map[[2]string]int)

	for _, c := range commits {
		if len(c.Files) == 0 || len(c.Files) > cfg.MaxCommitFileFanout {
			continue
		}

		paths := make([]string, len(c.Files))
		for i, f := range c.Files {
			paths[i] = f.Path
			fileCommits[f.Path]++
		}

		sort.Strings(paths)

		for i := 0; i < len(paths); i++ {
			for j := i + 1; j < len(paths); j++ {
				shared[[2]string{paths[i], paths[j]}]++
			}
		}
	}

	var couples []Couple

	for pair, count := range shared {
		if count < cfg.MinSharedCommits {
			continue
		}

		minCommits := fileCommits[pair[0]]
		if fileCommits[pair[1]] < minCommits {
			minCommits = fileCommits[pair[1]]
		}

		if minCommits == 0 {
			continue
		}

		coupling := float64(count) / float64(minCommits)
		if coupling < cfg.MinCoupling {
			continue
		}

		couples = append(couples, Couple{FileA: pair[0], FileB: pair[1], SharedCommits: count, Coupling: coupling})
	}

	sort.Slice(couples, func(i, j int) bool { return couples[i].Coupling > couples[j].Coupling })

	return couples
}

func collectOwnership(commits []gitlib.CommitStats) []Ownership {
	byFile := make(map[string]map[string]int)

	for _, c := range commits {
		author := c.Author.Email
		if author == "" {
			author = c.Author.Name
		}

		for _, f := range c.Files {
			authors, ok := byFile[f.Path]
			if !ok {
				authors = make(map[string]int)
				byFile[f.Path] = authors
			}

			authors[author]++
		}
	}

	out := make([]Ownership, 0, len(byFile))

	for path, authors := range byFile {
		out = append(out, ownershipFor(path, authors))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TopAuthorShare > out[j].TopAuthorShare })

	return out
}

func ownershipFor(path string, authors map[string]int) Ownership {
	type count struct {
		author string
		n      int
	}

	counts := make([]count, 0, len(authors))

	total := 0
	for author, n := range authors {
		counts = append(counts, count{author, n})
		total += n
	}

	sort.Slice(counts, func(i, j int) bool { return counts[i].n > counts[j].n })

	own := Ownership{Path: path, AuthorCount: len(counts)}
	if len(counts) > 0 && total > 0 {
		own.TopAuthor = counts[0].author
		own.TopAuthorShare = float64(counts[0].n) / float64(total)
	}

	covered := 0
	for _, c := range counts {
		covered += c.n
		own.BusFactor++

		if total > 0 && float64(covered)/float64(total) > 0.5 {
			break
		}
	}

	return own
}

func buildSummary(churn []Churn, couples []Couple, own []Ownership) Summary {
	summary := Summary{TotalFiles: len(churn), TotalCouples: len(couples)}

	for _, o := range own {
		if o.AuthorCount <= 1 {
			summary.SingleOwnerFiles++
		}
	}

	return summary
}
