package mutation

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/internal/parser"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// Operator generates Mutants of one kind from a parsed file. Operators are
// UAST-driven, not per-language syntax, so the generic ones (CRR/ROR/AOR)
// support every language the Parser layer parses.
type Operator interface {
	Name() string
	Description() string
	Supports(lang core.Language) bool
	Generate(parsed *parser.ParseResult, source []byte) []Mutant
}

// Fast returns the cheapest, highest-signal operator set.
func Fast() []Operator { return []Operator{relationalOperator{}, arithmeticOperator{}} }

// Full returns every core operator.
func Full() []Operator { return []Operator{literalOperator{}, relationalOperator{}, arithmeticOperator{}} }

// Thorough is Full today; it is the extension point for the language-
// specific operators (Rust Option/Result/Borrow, Ruby nil/symbol, ...) that
// original_source's broader operator set defines but that have no UAST-
// generic equivalent yet.
func Thorough() []Operator { return Full() }

func mutantID(path, op string, index int) string {
	return fmt.Sprintf("%s:%s:%d", path, op, index)
}

func offsets(n *node.Node) (start, end uint, line, col uint, ok bool) {
	if n.Pos == nil {
		return 0, 0, 0, 0, false
	}

	return n.Pos.StartOffset, n.Pos.EndOffset, n.Pos.StartLine, n.Pos.StartCol, true
}

// literalOperator is CRR: Constant Replacement — flips boolean literals,
// bumps/zeros numeric literals, and empties string literals.
type literalOperator struct{}

func (literalOperator) Name() string        { return "CRR" }
func (literalOperator) Description() string { return "replaces boolean, numeric and string literals" }
func (literalOperator) Supports(core.Language) bool { return true }

func (o literalOperator) Generate(parsed *parser.ParseResult, source []byte) []Mutant {
	var mutants []Mutant

	for _, fn := range parsed.Functions {
		fn.VisitPreOrder(func(n *node.Node) {
			if n.Type != node.UASTLiteral {
				return
			}

			replacement, ok := literalReplacement(n.Token)
			if !ok {
				return
			}

			start, end, line, col, ok := offsets(n)
			if !ok {
				return
			}

			mutants = append(mutants, Mutant{
				ID: mutantID(parsed.Path, o.Name(), len(mutants)), FilePath: parsed.Path, Operator: o.Name(),
				Line: line, Column: col, StartOffset: start, EndOffset: end,
				Original: n.Token, Replacement: replacement,
			})
		})
	}

	return mutants
}

func literalReplacement(token string) (string, bool) {
	switch token {
	case "true":
		return "false", true
	case "false":
		return "true", true
	case "":
		return "", false
	}

	if isQuoted(token) {
		quote := token[:1]

		return quote + quote, token != quote+quote
	}

	if isNumeric(token) {
		if token == "0" {
			return "1", true
		}

		return "0", true
	}

	return "", false
}

func isQuoted(token string) bool {
	if len(token) < 2 {
		return false
	}

	first := token[0]

	return (first == '"' || first == '\'' || first == '`') && token[len(token)-1] == first
}

func isNumeric(token string) bool {
	if token == "" {
		return false
	}

	for i, r := range token {
		if r >= '0' && r <= '9' {
			continue
		}

		if i == 0 && (r == '-' || r == '+') {
			continue
		}

		if r == '.' || r == '_' {
			continue
		}

		return false
	}

	return true
}

// relationalOperator is ROR: Relational Operator Replacement.
type relationalOperator struct{}

var relationalPairs = map[string]string{
	"<": ">", ">": "<",
	"<=": ">=", ">=": "<=",
	"==": "!=", "!=": "==",
}

func (relationalOperator) Name() string        { return "ROR" }
func (relationalOperator) Description() string { return "swaps relational operators (<, <=, ==, ...)" }
func (relationalOperator) Supports(core.Language) bool { return true }

func (o relationalOperator) Generate(parsed *parser.ParseResult, source []byte) []Mutant {
	return generateBinaryOpMutants(parsed, o.Name(), relationalPairs)
}

// arithmeticOperator is AOR: Arithmetic Operator Replacement.
type arithmeticOperator struct{}

var arithmeticPairs = map[string][]string{
	"+": {"-", "*"},
	"-": {"+"},
	"*": {"/", "+"},
	"/": {"*"},
}

func (arithmeticOperator) Name() string        { return "AOR" }
func (arithmeticOperator) Description() string { return "swaps arithmetic operators (+, -, *, /)" }
func (arithmeticOperator) Supports(core.Language) bool { return true }

func (o arithmeticOperator) Generate(parsed *parser.ParseResult, source []byte) []Mutant {
	var mutants []Mutant

	for _, fn := range parsed.Functions {
		fn.VisitPreOrder(func(n *node.Node) {
			if n.Type != node.UASTBinaryOp {
				return
			}

			replacements, ok := arithmeticPairs[n.Token]
			if !ok {
				return
			}

			start, end, line, col, ok := offsets(n)
			if !ok {
				return
			}

			for _, replacement := range replacements {
				mutants = append(mutants, Mutant{
					ID: mutantID(parsed.Path, o.Name(), len(mutants)), FilePath: parsed.Path, Operator: o.Name(),
					Line: line, Column: col, StartOffset: start, EndOffset: end,
					Original: n.Token, Replacement: replacement,
				})
			}
		})
	}

	return mutants
}

// generateBinaryOpMutants walks every Function's BinaryOp nodes and emits
// one Mutant per operator present in pairs, substituting pairs[token].
func generateBinaryOpMutants(parsed *parser.ParseResult, opName string, pairs map[string]string) []Mutant {
	var mutants []Mutant

	for _, fn := range parsed.Functions {
		fn.VisitPreOrder(func(n *node.Node) {
			if n.Type != node.UASTBinaryOp {
				return
			}

			replacement, ok := pairs[n.Token]
			if !ok {
				return
			}

			start, end, line, col, ok := offsets(n)
			if !ok {
				return
			}

			mutants = append(mutants, Mutant{
				ID: mutantID(parsed.Path, opName, len(mutants)), FilePath: parsed.Path, Operator: opName,
				Line: line, Column: col, StartOffset: start, EndOffset: end,
				Original: n.Token, Replacement: replacement,
			})
		})
	}

	return mutants
}

// Registry selects an operator preset by name, matching original_source's
// fast/full/thorough convention.
func Registry(preset string) ([]Operator, error) {
	switch strings.ToLower(preset) {
	case "", "fast":
		return Fast(), nil
	case "full":
		return Full(), nil
	case "thorough":
		return Thorough(), nil
	default:
		return nil, core.InvalidArgumentError(fmt.Sprintf("mutation: unknown operator preset %q", preset))
	}
}
