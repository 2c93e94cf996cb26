package ast

import "github.com/nanoscript/nanoscript/heap"

// StmtKind identifies a statement node's variant.
type StmtKind int

const (
	PASS StmtKind = iota
	EXPR
	VAR
	IF
	WHILE
	BREAK
	CONTINUE
	RET
)

var stmtKindNames = map[StmtKind]string{
	PASS: "PASS", EXPR: "EXPR", VAR: "VAR", IF: "IF", WHILE: "WHILE",
	BREAK: "BREAK", CONTINUE: "CONTINUE", RET: "RET",
}

func (k StmtKind) String() string {
	if name, ok := stmtKindNames[k]; ok {
		return name
	}
	return "StmtKind(?)"
}

// Stmt is one statement node. It holds 0-2 expression child slots (Cond,
// Value — reused per variant, see the field docs) plus up to two
// statement child slots (Then, Else) and a Next pointer chaining
// statements within a block.
type Stmt struct {
	Kind StmtKind
	Pos  Pos

	// Cond is the condition expression for IF and WHILE.
	Cond *Expr
	// Value is the expression operand for EXPR and RET (nil for a bare
	// "return;"), and the COMMA-chain declaration list for VAR.
	Value *Expr

	// Then is the IF/WHILE body statement.
	Then *Stmt
	// Else is the IF statement's else-branch, nil when absent.
	Else *Stmt

	// Next chains this statement to the following one in a block list.
	Next *Stmt

	handle heap.Handle
}
