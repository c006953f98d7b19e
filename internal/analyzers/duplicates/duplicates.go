// Package duplicates finds near-duplicate functions across a FileSet by
// MinHash-sketching each function's token shingles and clustering candidates
// through an LSH index, avoiding the O(n^2) pairwise comparison a naive
// approach would require.
package duplicates

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/alg/hll"
	"github.com/Sumatoshi-tech/codefang/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/codefang/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/codefang/pkg/levenshtein"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// shingleCardinalityPrecision trades HyperLogLog register count (2^p) for
// estimate accuracy; 14 gives ~0.8% standard error at 16 KB.
const shingleCardinalityPrecision = 14

// Config controls shingle size, MinHash/LSH parameterization, and the
// similarity floor a candidate pair must clear to be reported.
type Config struct {
	ShingleSize         int
	NumBands            int
	NumRows             int
	SimilarityThreshold float64
	MinTokens           int
}

// DefaultConfig matches the thresholds used when no configuration is supplied.
// NumBands*NumRows is the total MinHash signature length (64).
func DefaultConfig() Config {
	return Config{
		ShingleSize:         5,
		NumBands:            16,
		NumRows:             4,
		SimilarityThreshold: 0.8,
		MinTokens:           10,
	}
}

func (c Config) numHashes() int { return c.NumBands * c.NumRows }

// Pair is a single reported near-duplicate: two functions whose estimated
// Jaccard similarity over token shingles clears the configured threshold.
type Pair struct {
	FileA          string  `json:"file_a"`
	FunctionA      string  `json:"function_a"`
	LineA          uint    `json:"line_a"`
	FileB          string  `json:"file_b"`
	FunctionB      string  `json:"function_b"`
	LineB          uint    `json:"line_b"`
	Similarity     float64 `json:"similarity"`
	TextSimilarity float64 `json:"text_similarity"`
}

// Summary aggregates the duplicate pairs found.
type Summary struct {
	TotalFunctions   int    `json:"total_functions"`
	TotalPairs       int    `json:"total_pairs"`
	DistinctShingles uint64 `json:"distinct_shingles"`
}

// Analysis is the full duplicate-detection output for a run.
type Analysis struct {
	Pairs   []Pair  `json:"pairs"`
	Summary Summary `json:"summary"`
}

type candidate struct {
	id       string
	file     string
	function string
	line     uint
	sig      *minhash.Signature
	tokens   string
}

// Analyzer detects near-duplicate functions via MinHash+LSH.
type Analyzer struct {
	config Config
	parser *parser.Parser
}

// NewAnalyzer builds an Analyzer with default thresholds.
func NewAnalyzer() (*Analyzer, error) {
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}

	return &Analyzer{config: DefaultConfig(), parser: p}, nil
}

// Name implements core.Analyzer.
func (a *Analyzer) Name() string { return "duplicates" }

// RequiresGit implements core.Analyzer.
func (a *Analyzer) RequiresGit() bool { return false }

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

	return core.InvalidArgumentError("duplicates: unexpected config type")
}

// Analyze implements core.Analyzer: it parses every file, sketches each
// function's token shingles into a MinHash signature, indexes them through
// LSH, and reports every candidate pair clearing SimilarityThreshold.
func (a *Analyzer) Analyze(ctx context.Context, actx *core.AnalysisContext) (any, error) {
	index, err := lsh.New(a.config.NumBands, a.config.NumRows)
	if err != nil {
		return nil, fmt.Errorf("build lsh index: %w", err)
	}

	shingleCardinality, err := hll.New(shingleCardinalityPrecision)
	if err != nil {
		return nil, fmt.Errorf("build shingle cardinality sketch: %w", err)
	}

	var candidates []candidate

	for i, path := range actx.Files.Files() {
		actx.ReportProgress(i, actx.Files.Len())

		if !a.parser.IsSupported(path) {
			continue
		}

		content, err := actx.ReadFile(ctx, path)
		if err != nil {
			continue
		}

		parsed, err := a.parser.Parse(ctx, path, content)
		if err != nil {
			continue
		}

		for _, fn := range parsed.Functions {
			sig, tokenStream, sigErr := a.sketch(fn, shingleCardinality)
			if sigErr != nil || len(tokenStream) < a.config.MinTokens {
				continue
			}

			id := fmt.Sprintf("%s:%d", path, len(candidates))

			cnd := candidate{id: id, file: path, function: functionName(fn), sig: sig, tokens: strings.Join(tokenStream, " ")}
			if fn.Pos != nil {
				cnd.line = fn.Pos.StartLine
			}

			if err := index.Insert(id, sig); err != nil {
				continue
			}

			candidates = append(candidates, cnd)
		}
	}

	actx.ReportProgress(actx.Files.Len(), actx.Files.Len())

	pairs := a.findPairs(index, candidates)

	return Analysis{
		Pairs: pairs,
		Summary: Summary{
			TotalFunctions:   len(candidates),
			TotalPairs:       len(pairs),
			DistinctShingles: shingleCardinality.Count(),
		},
	}, nil
}

// sketch shingles fn's token stream into overlapping windows of
// config.ShingleSize tokens and folds each shingle into a MinHash signature,
// also feeding every shingle into cardinality, a HyperLogLog sketch shared
// across the whole run that estimates how many distinct shingles exist
// without retaining them.
// It returns the raw token stream alongside the signature so candidates
// above the LSH-estimated similarity floor can be re-scored with an exact
// edit-distance comparison.
func (a *Analyzer) sketch(fn *node.Node, cardinality *hll.Sketch) (*minhash.Signature, []string, error) {
	var tokens []string

	fn.VisitPreOrder(func(n *node.Node) {
		if n.Token != "" {
			tokens = append(tokens, n.Token)
		} else if n.Type != "" {
			tokens = append(tokens, string(n.Type))
		}
	})

	sig, err := minhash.New(a.config.numHashes())
	if err != nil {
		return nil, nil, err
	}

	if len(tokens) < a.config.ShingleSize {
		return sig, tokens, nil
	}

	for i := 0; i+a.config.ShingleSize <= len(tokens); i++ {
		shingle := ""
		for _, t := range tokens[i : i+a.config.ShingleSize] {
			shingle += t + "\x1f"
		}

		sig.Add([]byte(shingle))

		if cardinality != nil {
			cardinality.Add([]byte(shingle))
		}
	}

	return sig, tokens, nil
}

// findPairs queries the LSH index for each candidate's neighbors and keeps
// every pair, reported once, whose MinHash-estimated similarity clears the
// threshold.
func (a *Analyzer) findPairs(index *lsh.Index, candidates []candidate) []Pair {
	byID := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		byID[c.id] = c
	}

	seen := make(map[[2]string]bool)

	var pairs []Pair

	for _, c := range candidates {
		neighbors, err := index.Query(c.sig)
		if err != nil {
			continue
		}

		for _, otherID := range neighbors {
			if otherID == c.id {
				continue
			}

			other, ok := byID[otherID]
			if !ok {
				continue
			}

			key := pairKey(c.id, other.id)
			if seen[key] {
				continue
			}

			seen[key] = true

			sim, err := c.sig.Similarity(other.sig)
			if err != nil || sim < a.config.SimilarityThreshold {
				continue
			}

			pairs = append(pairs, buildPair(c, other, sim))
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Similarity > pairs[j].Similarity })

	return pairs
}

func buildPair(a, b candidate, sim float64) Pair {
	return Pair{
		FileA:          a.file,
		FunctionA:      a.function,
		LineA:          a.line,
		FileB:          b.file,
		FunctionB:      b.function,
		LineB:          b.line,
		Similarity:     sim,
		TextSimilarity: textSimilarity(a.tokens, b.tokens),
	}
}

// textSimilarity re-scores a MinHash-estimated candidate pair with an exact
// token-stream edit distance, normalized to [0,1]. MinHash/LSH estimates
// Jaccard similarity over shingles and can over-merge functions that share
// vocabulary but differ in order; this catches that case.
func textSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	if maxLen == 0 {
		return 1
	}

	dist := (&levenshtein.Context{}).Distance(a, b)

	return 1 - float64(dist)/float64(maxLen)
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}

	return [2]string{b, a}
}

func functionName(fn *node.Node) string {
	if fn.Props != nil {
		if name := fn.Props["name"]; name != "" {
			return name
		}
	}

	for _, child := range fn.Children {
		if child != nil && child.HasAnyRole(node.RoleName) && child.Token != "" {
			return child.Token
		}
	}

	return "anonymous"
}
