package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/nanoscript/nanoscript/heap"
)

// floatCompare treats NaN as equal to itself, matching value.Value's NaN
// payload semantics where a bitwise-identical NaN must compare equal.
func floatCompare(x, y float64) bool {
	return x == y || (x != x && y != y)
}

var exprDiffOpts = cmp.Options{
	cmpopts.IgnoreUnexported(Expr{}, Stmt{}),
	cmp.Comparer(floatCompare),
}

func TestReleaseExprBalancesArena(t *testing.T) {
	a := heap.New(0)
	p := NewPool(a)

	left, err := p.NewNum(Pos{1, 1}, 1)
	require.NoError(t, err)
	right, err := p.NewNum(Pos{1, 5}, 2)
	require.NoError(t, err)
	add, err := p.NewBinary(ADD, Pos{1, 3}, left, right)
	require.NoError(t, err)

	require.Equal(t, 3, a.Stats().Outstanding)
	p.ReleaseExpr(add)
	require.Equal(t, 0, a.Stats().Outstanding)
	require.NoError(t, a.Close())
}

func TestReleaseStmtWalksSiblingsAndChildren(t *testing.T) {
	a := heap.New(0)
	p := NewPool(a)

	id, _ := p.NewID(Pos{1, 1}, "x")
	exprStmt, err := p.NewStmt(EXPR, Pos{1, 1})
	require.NoError(t, err)
	exprStmt.Value = id

	next, err := p.NewStmt(PASS, Pos{2, 1})
	require.NoError(t, err)
	p.SetNext(exprStmt, next)

	require.Equal(t, 3, a.Stats().Outstanding)
	p.ReleaseStmt(exprStmt)
	require.Equal(t, 0, a.Stats().Outstanding)
}

func TestReleaseProcReleasesBody(t *testing.T) {
	a := heap.New(0)
	p := NewPool(a)

	ret, err := p.NewStmt(RET, Pos{1, 1})
	require.NoError(t, err)
	proc, err := p.NewProc(Pos{1, 1}, ret)
	require.NoError(t, err)

	require.Equal(t, 2, a.Stats().Outstanding)
	p.ReleaseExpr(proc)
	require.Equal(t, 0, a.Stats().Outstanding)
}

func TestExprStructuralEqualityIgnoresHandles(t *testing.T) {
	build := func() (*heap.Arena, *Expr) {
		a := heap.New(0)
		p := NewPool(a)
		l, _ := p.NewNum(Pos{1, 1}, 1)
		r, _ := p.NewNum(Pos{1, 5}, 2)
		add, _ := p.NewBinary(ADD, Pos{1, 3}, l, r)
		return a, add
	}

	a1, e1 := build()
	a2, e2 := build()

	if diff := cmp.Diff(e1, e2, exprDiffOpts); diff != "" {
		t.Errorf("structurally identical trees differ (-want +got):\n%s", diff)
	}

	e2.Right.Num = 99
	require.NotEmpty(t, cmp.Diff(e1, e2, exprDiffOpts))

	NewPool(a1).ReleaseExpr(e1)
	NewPool(a2).ReleaseExpr(e2)
	require.NoError(t, a1.Close())
	require.NoError(t, a2.Close())
}

func TestNodeBudgetExhausted(t *testing.T) {
	a := heap.New(1)
	p := NewPool(a)
	_, err := p.NewNum(Pos{1, 1}, 1)
	require.NoError(t, err)
	_, err = p.NewNum(Pos{1, 2}, 2)
	require.Error(t, err)
}
