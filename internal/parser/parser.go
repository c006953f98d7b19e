// Package parser provides the shared parse-and-extract contract every
// per-file analyzer in internal/analyzers builds on: a single UAST parse of
// a source file, plus the function and import extraction walks most
// analyzers otherwise repeat independently.
package parser

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/codefang/internal/core"
	"github.com/Sumatoshi-tech/codefang/pkg/uast"
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// ParseResult is the parsed form of a single source file: its UAST root plus
// the two derived views analyzers most commonly need.
type ParseResult struct {
	Path      string
	Language  string
	Root      *node.Node
	Functions []*node.Node
	Imports   []string
}

// Parser wraps the UAST grammar registry and standardizes how analyzers turn
// file content into a ParseResult.
type Parser struct {
	uast *uast.Parser
}

// New builds a Parser over the embedded UAST grammar set.
func New() (*Parser, error) {
	p, err := uast.NewParser()
	if err != nil {
		return nil, fmt.Errorf("build uast parser: %w", err)
	}

	return &Parser{uast: p}, nil
}

// IsSupported reports whether path's extension has a registered grammar.
func (p *Parser) IsSupported(path string) bool {
	return p.uast.IsSupported(path)
}

// Parse parses content as path's language and extracts its standing views.
// Returns core.UnsupportedLanguageError for an unrecognized extension and
// core.ParseError on a grammar failure.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*ParseResult, error) {
	if !p.uast.IsSupported(path) {
		return nil, core.UnsupportedLanguageError(path)
	}

	root, err := p.uast.Parse(ctx, path, content)
	if err != nil {
		return nil, core.ParseError(path, err.Error())
	}

	return &ParseResult{
		Path:      path,
		Language:  p.uast.GetLanguage(path),
		Root:      root,
		Functions: ExtractFunctions(root),
		Imports:   ExtractImports(root),
	}, nil
}

// ExtractFunctions returns every function/method declaration node in root,
// in pre-order.
func ExtractFunctions(root *node.Node) []*node.Node {
	return root.Find(func(n *node.Node) bool {
		return n.HasAnyType(node.UASTFunction, node.UASTMethod) ||
			n.HasAllRoles(node.RoleFunction, node.RoleDeclaration)
	})
}

// ExtractImports returns the resolved path of every Import node in root, in
// source order.
func ExtractImports(root *node.Node) []string {
	var imports []string

	root.VisitPreOrder(func(n *node.Node) {
		if n.Type != node.UASTImport {
			return
		}

		if path := importPath(n); path != "" {
			imports = append(imports, path)
		}
	})

	return imports
}

// importPath reads an Import node's target: its "path" prop when present,
// falling back to the token of its first Name-role child, then its own token.
func importPath(n *node.Node) string {
	if n.Props != nil {
		if path := n.Props["path"]; path != "" {
			return path
		}
	}

	for _, child := range n.Children {
		if child != nil && child.HasAnyRole(node.RoleName) && child.Token != "" {
			return child.Token
		}
	}

	return n.Token
}
