package ast

import "github.com/nanoscript/nanoscript/heap"

// ExprKind identifies an expression node's variant.
type ExprKind int

const (
	ID ExprKind = iota
	NUM
	STRING
	UND
	NAN
	NULL
	TRUE
	FALSE
	NEG
	NOT
	LOGIC_NOT
	MUL
	DIV
	MOD
	ADD
	SUB
	LSHIFT
	RSHIFT
	AND
	OR
	XOR
	TGT
	TLT
	TEQ
	TNE
	TGE
	TLE
	TIN
	LOGIC_AND
	LOGIC_OR
	TERNARY
	ASSIGN
	PAIR
	COMMA
	ATTR
	ELEM
	CALL
	ARRAY
	DICT
	FUNCHEAD
	FUNCDEF
	PROC
)

var exprKindNames = map[ExprKind]string{
	ID: "ID", NUM: "NUM", STRING: "STRING", UND: "UND", NAN: "NAN",
	NULL: "NULL", TRUE: "TRUE", FALSE: "FALSE", NEG: "NEG", NOT: "NOT",
	LOGIC_NOT: "LOGIC_NOT", MUL: "MUL", DIV: "DIV", MOD: "MOD", ADD: "ADD",
	SUB: "SUB", LSHIFT: "LSHIFT", RSHIFT: "RSHIFT", AND: "AND", OR: "OR",
	XOR: "XOR", TGT: "TGT", TLT: "TLT", TEQ: "TEQ", TNE: "TNE", TGE: "TGE",
	TLE: "TLE", TIN: "TIN", LOGIC_AND: "LOGIC_AND", LOGIC_OR: "LOGIC_OR",
	TERNARY: "TERNARY", ASSIGN: "ASSIGN", PAIR: "PAIR", COMMA: "COMMA",
	ATTR: "ATTR", ELEM: "ELEM", CALL: "CALL", ARRAY: "ARRAY", DICT: "DICT",
	FUNCHEAD: "FUNCHEAD", FUNCDEF: "FUNCDEF", PROC: "PROC",
}

func (k ExprKind) String() string {
	if name, ok := exprKindNames[k]; ok {
		return name
	}
	return "ExprKind(?)"
}

// Expr is one expression node. Every variant fits the same shape: up to
// two ordered children (Left, Right), and leaf payloads (Str for ID and
// STRING, Num for NUM). PROC additionally carries a statement block
// (Body), since a function literal's body is a statement list attached
// to an expression-shaped node.
//
// handle is the node's allocation handle in the Pool's Arena; it is set
// by the Pool's constructors and is otherwise zero for nodes built by
// hand (e.g. in tests).
type Expr struct {
	Kind ExprKind
	Pos  Pos

	Left  *Expr
	Right *Expr

	Str string
	Num float64

	Body *Stmt // PROC only

	handle heap.Handle
}
