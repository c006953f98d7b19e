package complexity

import (
	"github.com/Sumatoshi-tech/codefang/pkg/uast/pkg/node"
)

// nestingTypes are UAST node types that both add to cognitive complexity and
// increase the nesting depth for their subtree (if/loop/switch/try).
var nestingTypes = map[node.Type]bool{
	node.UASTIf:     true,
	node.UASTLoop:   true,
	node.UASTSwitch: true,
	node.UASTTry:    true,
}

// flatTypes are UAST node types that add to cognitive complexity without
// increasing nesting depth (case/catch bodies read at their parent's level).
var flatTypes = map[node.Type]bool{
	node.UASTCase:  true,
	node.UASTCatch: true,
}

// calculateCognitiveComplexity walks fn's children recursively. For each
// child: if its type is a nesting type, add 1+depth then recurse at
// depth+1; if it's a flat type, add 1+depth and recurse at the same depth;
// otherwise recurse at the same depth without adding anything.
func calculateCognitiveComplexity(fn *node.Node) int {
	return walkCognitive(fn, 0)
}

func walkCognitive(n *node.Node, depth int) int {
	complexity := 0

	for _, child := range n.Children {
		if child == nil {
			continue
		}

		switch {
		case nestingTypes[child.Type]:
			complexity += 1 + depth
			complexity += walkCognitive(child, depth+1)
		case flatTypes[child.Type]:
			complexity += 1 + depth
			complexity += walkCognitive(child, depth)
		default:
			complexity += walkCognitive(child, depth)
		}
	}

	return complexity
}
