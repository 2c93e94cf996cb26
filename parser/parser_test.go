package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanoscript/nanoscript/ast"
	"github.com/nanoscript/nanoscript/config"
	"github.com/nanoscript/nanoscript/heap"
	"github.com/nanoscript/nanoscript/lexer"
	"github.com/nanoscript/nanoscript/reporter"
	"github.com/nanoscript/nanoscript/token"
)

func newParser(t *testing.T, src string) (*Parser, *ast.Pool, *heap.Arena) {
	t.Helper()
	arena := heap.New(0)
	pool := ast.NewPool(arena)
	lx := lexer.New(lexer.NewSliceSource([]string{src}), config.Default(), nil)
	return New(lx, pool, nil, config.Default(), nil), pool, arena
}

func TestScenario1_PrecedenceOfMulOverAdd(t *testing.T) {
	p, pool, arena := newParser(t, "1 + 2 * 3;")
	s, err := p.ParseStmt()
	require.NoError(t, err)
	require.Equal(t, ast.EXPR, s.Kind)

	add := s.Value
	require.Equal(t, ast.ADD, add.Kind)
	require.Equal(t, 1.0, add.Left.Num)
	require.Equal(t, ast.MUL, add.Right.Kind)
	require.Equal(t, 2.0, add.Right.Left.Num)
	require.Equal(t, 3.0, add.Right.Right.Num)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestScenario2_VarWithCommaDeclList(t *testing.T) {
	p, pool, arena := newParser(t, "var a = 1, b;")
	s, err := p.ParseStmt()
	require.NoError(t, err)
	require.Equal(t, ast.VAR, s.Kind)

	decl := s.Value
	require.Equal(t, ast.COMMA, decl.Kind)
	require.Equal(t, ast.ASSIGN, decl.Left.Kind)
	require.Equal(t, "a", decl.Left.Left.Str)
	require.Equal(t, 1.0, decl.Left.Right.Num)
	require.Equal(t, ast.ID, decl.Right.Kind)
	require.Equal(t, "b", decl.Right.Str)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestScenario3_IfElseWithBlockAndBareStmt(t *testing.T) {
	p, pool, arena := newParser(t, "if x > 0 { return x; } else return -x;")
	s, err := p.ParseStmt()
	require.NoError(t, err)
	require.Equal(t, ast.IF, s.Kind)
	require.Equal(t, ast.TGT, s.Cond.Kind)
	require.Equal(t, ast.RET, s.Then.Kind)
	require.Equal(t, "x", s.Then.Value.Str)
	require.NotNil(t, s.Else)
	require.Equal(t, ast.RET, s.Else.Kind)
	require.Equal(t, ast.NEG, s.Else.Value.Kind)
	require.Equal(t, "x", s.Else.Value.Left.Str)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestScenario4_FuncDefWithDefaultParam(t *testing.T) {
	p, pool, arena := newParser(t, "def f(x, y=1) { return x + y; }")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.FUNCDEF, e.Kind)

	head := e.Left
	require.Equal(t, ast.FUNCHEAD, head.Kind)
	require.Equal(t, "f", head.Left.Str)

	params := head.Right
	require.Equal(t, ast.COMMA, params.Kind)
	require.Equal(t, "x", params.Left.Str)
	require.Equal(t, ast.ASSIGN, params.Right.Kind)
	require.Equal(t, "y", params.Right.Left.Str)
	require.Equal(t, 1.0, params.Right.Right.Num)

	proc := e.Right
	require.Equal(t, ast.PROC, proc.Kind)
	require.Equal(t, ast.RET, proc.Body.Kind)
	require.Equal(t, ast.ADD, proc.Body.Value.Kind)

	pool.ReleaseExpr(e)
	require.NoError(t, arena.Close())
}

func TestScenario5_ChainedAttrElemCall(t *testing.T) {
	p, pool, arena := newParser(t, "a.b[0](1,2)")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.CALL, e.Kind)

	elem := e.Left
	require.Equal(t, ast.ELEM, elem.Kind)
	require.Equal(t, 0.0, elem.Right.Num)

	attr := elem.Left
	require.Equal(t, ast.ATTR, attr.Kind)
	require.Equal(t, "a", attr.Left.Str)
	require.Equal(t, "b", attr.Right.Str)

	args := e.Right
	require.Equal(t, ast.COMMA, args.Kind)
	require.Equal(t, 1.0, args.Left.Num)
	require.Equal(t, 2.0, args.Right.Num)

	pool.ReleaseExpr(e)
	require.NoError(t, arena.Close())
}

func TestScenario6_InvalidLeftValueBalancesArena(t *testing.T) {
	p, _, arena := newParser(t, "1 = 2;")
	s, err := p.ParseStmt()
	require.Nil(t, s)
	require.Error(t, err)
	require.True(t, errors.Is(err, reporter.ErrInvalidLeftValue))

	var rerr *reporter.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, 1, rerr.Line)
	require.Equal(t, 1, rerr.Col)

	require.NoError(t, arena.Close())
}

func TestCompoundAssignDesugarsToAssignOfBinary(t *testing.T) {
	p, pool, arena := newParser(t, "x += 1;")
	s, err := p.ParseStmt()
	require.NoError(t, err)
	require.Equal(t, ast.EXPR, s.Kind)

	assign := s.Value
	require.Equal(t, ast.ASSIGN, assign.Kind)
	require.Equal(t, "x", assign.Left.Str)
	require.Equal(t, ast.ADD, assign.Right.Kind)
	require.Equal(t, "x", assign.Right.Left.Str)
	require.Equal(t, 1.0, assign.Right.Right.Num)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestCompoundAssignClonesElemIndexExpression(t *testing.T) {
	p, pool, arena := newParser(t, "arr[i+1] += 1;")
	s, err := p.ParseStmt()
	require.NoError(t, err)

	assign := s.Value
	require.Equal(t, ast.ASSIGN, assign.Kind)

	// the ASSIGN target's ELEM index...
	target := assign.Left
	require.Equal(t, ast.ELEM, target.Kind)
	require.Equal(t, ast.ADD, target.Right.Kind)
	require.Equal(t, "i", target.Right.Left.Str)
	require.Equal(t, 1.0, target.Right.Right.Num)

	// ...and the cloned read-side ELEM index must be a distinct, equally
	// complete subtree, not a zero-value node with dropped children.
	read := assign.Right.Left
	require.Equal(t, ast.ELEM, read.Kind)
	require.Equal(t, ast.ADD, read.Right.Kind)
	require.Equal(t, "i", read.Right.Left.Str)
	require.Equal(t, 1.0, read.Right.Right.Num)
	require.NotSame(t, target.Right, read.Right)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestCompoundAssignClonesAttrBaseExpression(t *testing.T) {
	p, pool, arena := newParser(t, "f(x).y += 1;")
	s, err := p.ParseStmt()
	require.NoError(t, err)

	assign := s.Value
	target := assign.Left
	require.Equal(t, ast.ATTR, target.Kind)
	require.Equal(t, ast.CALL, target.Left.Kind)
	require.Equal(t, "f", target.Left.Left.Str)
	require.Equal(t, "x", target.Left.Right.Str)

	read := assign.Right.Left
	require.Equal(t, ast.ATTR, read.Kind)
	require.Equal(t, ast.CALL, read.Left.Kind)
	require.Equal(t, "f", read.Left.Left.Str)
	require.Equal(t, "x", read.Left.Right.Str)
	require.NotSame(t, target.Left, read.Left)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestCompoundAssignClonesCallIndexExpression(t *testing.T) {
	p, pool, arena := newParser(t, "arr[g()] *= 2;")
	s, err := p.ParseStmt()
	require.NoError(t, err)

	assign := s.Value
	target := assign.Left
	require.Equal(t, ast.ELEM, target.Kind)
	require.Equal(t, ast.CALL, target.Right.Kind)
	require.Equal(t, "g", target.Right.Left.Str)
	require.Nil(t, target.Right.Right)

	read := assign.Right.Left
	require.Equal(t, ast.ELEM, read.Kind)
	require.Equal(t, ast.CALL, read.Right.Kind)
	require.Equal(t, "g", read.Right.Left.Str)
	require.NotSame(t, target.Right, read.Right)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestBitwiseNotAssignDesugarsToAssignOfUnaryNot(t *testing.T) {
	p, pool, arena := newParser(t, "x ~= y;")
	s, err := p.ParseStmt()
	require.NoError(t, err)

	assign := s.Value
	require.Equal(t, ast.ASSIGN, assign.Kind)
	require.Equal(t, ast.NOT, assign.Right.Kind)
	require.Equal(t, "y", assign.Right.Left.Str)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestElifDesugarsToNestedIf(t *testing.T) {
	p, pool, arena := newParser(t, "if a { x; } elif b { y; } else { z; }")
	s, err := p.ParseStmt()
	require.NoError(t, err)
	require.Equal(t, ast.IF, s.Kind)
	require.Equal(t, "a", s.Cond.Str)

	nested := s.Else
	require.NotNil(t, nested)
	require.Equal(t, ast.IF, nested.Kind)
	require.Equal(t, "b", nested.Cond.Str)
	require.NotNil(t, nested.Else)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestEmptyStmtListYieldsPass(t *testing.T) {
	p, pool, arena := newParser(t, "")
	s, err := p.ParseStmtList()
	require.NoError(t, err)
	require.Equal(t, ast.PASS, s.Kind)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestStmtListStopsAtClosingBrace(t *testing.T) {
	p, pool, arena := newParser(t, "a; b; }")
	s, err := p.ParseStmtList()
	require.NoError(t, err)
	require.Equal(t, ast.EXPR, s.Kind)
	require.NotNil(t, s.Next)
	require.Equal(t, ast.EXPR, s.Next.Kind)
	require.Nil(t, s.Next.Next)

	pool.ReleaseStmt(s)
	require.NoError(t, arena.Close())
}

func TestParseStmtReportsEOF(t *testing.T) {
	var c reporter.Collector
	arena := heap.New(0)
	pool := ast.NewPool(arena)
	lx := lexer.New(lexer.NewSliceSource(nil), config.Default(), nil)
	p := New(lx, pool, &c, config.Default(), nil)

	s, err := p.ParseStmt()
	require.Nil(t, s)
	require.NoError(t, err)
	require.Len(t, c.Events, 1)
	require.Equal(t, reporter.EventEOF, c.Events[0].Kind)
}

func TestRecursionDepthLimitReportsInvalidSyntax(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRecursionDepth = 4

	var src string
	for i := 0; i < 50; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 50; i++ {
		src += ")"
	}

	arena := heap.New(0)
	pool := ast.NewPool(arena)
	lx := lexer.New(lexer.NewSliceSource([]string{src}), cfg, nil)
	p := New(lx, pool, nil, cfg, nil)

	_, err := p.ParseExpr()
	require.Error(t, err)
	require.True(t, errors.Is(err, reporter.ErrInvalidSyntax))
}

func TestEmptyArrayAndDict(t *testing.T) {
	p, pool, arena := newParser(t, "[]")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.ARRAY, e.Kind)
	require.Nil(t, e.Left)
	pool.ReleaseExpr(e)

	p2, pool2, arena2 := newParser(t, "{}")
	e2, err := p2.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.DICT, e2.Kind)
	pool2.ReleaseExpr(e2)

	require.NoError(t, arena.Close())
	require.NoError(t, arena2.Close())
}

func TestTernaryProducesPairNode(t *testing.T) {
	p, pool, arena := newParser(t, "a ? 1 : 2")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.TERNARY, e.Kind)
	require.Equal(t, ast.PAIR, e.Right.Kind)
	require.Equal(t, 1.0, e.Right.Left.Num)
	require.Equal(t, 2.0, e.Right.Right.Num)

	pool.ReleaseExpr(e)
	require.NoError(t, arena.Close())
}

func TestCommaIsRightLeaning(t *testing.T) {
	p, pool, arena := newParser(t, "a, b, c")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.COMMA, e.Kind)
	require.Equal(t, "a", e.Left.Str)
	require.Equal(t, ast.COMMA, e.Right.Kind)
	require.Equal(t, "b", e.Right.Left.Str)
	require.Equal(t, "c", e.Right.Right.Str)

	pool.ReleaseExpr(e)
	require.NoError(t, arena.Close())
}

func TestPrimarySuffixForbiddenOnNonIdentifier(t *testing.T) {
	p, pool, arena := newParser(t, "5.x")
	e, err := p.ParseExpr()
	require.NoError(t, err)
	require.Equal(t, ast.NUM, e.Kind)
	require.Equal(t, 5.0, e.Num)
	// the '.' suffix is never consumed, since only an ID factor may chain
	// attribute/element/call suffixes.
	require.Equal(t, token.Type('.'), p.lex.Token().Type)

	pool.ReleaseExpr(e)
	require.NoError(t, arena.Close())
}
