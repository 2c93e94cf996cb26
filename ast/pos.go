// Package ast defines the two AST sum types (Expr, Stmt) and the node
// pool that allocates them. Unlike protocompile's per-production Go
// types (ast.IdentNode, ast.StringLiteralNode, ...), nodes here are a
// single tagged struct per sum type, grounded directly on the original
// node pool's alloc_type(tag)/alloc_str(tag, cstr) contract: the pool
// counts every allocation against a shared heap.Arena regardless of
// kind, which is most naturally expressed as one struct shape per sum
// type rather than N separate Go types each needing their own
// accounting path.
package ast

import "strconv"

// Pos is a node's source position: the leading token for leaves, prefix
// operators, containers, function literals and statements; the operator
// token ('+', '.', '[', '(', '=', ',', ':', '?', ...) for infix, suffix,
// assignment, comma, pair and ternary nodes.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "-"
	}
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}
