package ast

import "github.com/nanoscript/nanoscript/heap"

// Pool allocates and releases Expr/Stmt nodes, counting every allocation
// against a shared heap.Arena. Release walks children then the sibling
// chain, so every node a rejected parse allocated is released exactly
// once along the error path and the arena reports zero outstanding.
type Pool struct {
	arena *heap.Arena
}

func NewPool(arena *heap.Arena) *Pool {
	return &Pool{arena: arena}
}

func (p *Pool) allocHandle() (heap.Handle, error) {
	return p.arena.Alloc()
}

// NewExpr allocates a leaf or partially-built expression node of the
// given kind. Callers fill in Left/Right/Str/Num/Body directly or via
// SetLeft/SetRight.
func (p *Pool) NewExpr(kind ExprKind, pos Pos) (*Expr, error) {
	h, err := p.allocHandle()
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: kind, Pos: pos, handle: h}, nil
}

// NewID allocates an ID leaf, copying name into pool-owned storage (a Go
// string is already an immutable copy once assigned, so this just
// documents the equivalent of alloc_str's "copies the string bytes"
// guarantee — the caller's token buffer may be reused immediately).
func (p *Pool) NewID(pos Pos, name string) (*Expr, error) {
	e, err := p.NewExpr(ID, pos)
	if err != nil {
		return nil, err
	}
	e.Str = name
	return e, nil
}

// NewString allocates a STRING leaf with decoded contents s.
func (p *Pool) NewString(pos Pos, s string) (*Expr, error) {
	e, err := p.NewExpr(STRING, pos)
	if err != nil {
		return nil, err
	}
	e.Str = s
	return e, nil
}

// NewNum allocates a NUM leaf with parsed value v.
func (p *Pool) NewNum(pos Pos, v float64) (*Expr, error) {
	e, err := p.NewExpr(NUM, pos)
	if err != nil {
		return nil, err
	}
	e.Num = v
	return e, nil
}

// NewUnary allocates a one-child expression (NEG, NOT, LOGIC_NOT, ...)
// with operand as Left.
func (p *Pool) NewUnary(kind ExprKind, pos Pos, operand *Expr) (*Expr, error) {
	e, err := p.NewExpr(kind, pos)
	if err != nil {
		return nil, err
	}
	e.Left = operand
	return e, nil
}

// NewBinary allocates a two-child expression with left and right set.
func (p *Pool) NewBinary(kind ExprKind, pos Pos, left, right *Expr) (*Expr, error) {
	e, err := p.NewExpr(kind, pos)
	if err != nil {
		return nil, err
	}
	e.Left = left
	e.Right = right
	return e, nil
}

// NewProc allocates a PROC node wrapping a statement block.
func (p *Pool) NewProc(pos Pos, body *Stmt) (*Expr, error) {
	e, err := p.NewExpr(PROC, pos)
	if err != nil {
		return nil, err
	}
	e.Body = body
	return e, nil
}

func (p *Pool) SetLeft(e *Expr, left *Expr) {
	e.Left = left
}

func (p *Pool) SetRight(e *Expr, right *Expr) {
	e.Right = right
}

// NewStmt allocates a statement node of the given kind with no children
// and no successor.
func (p *Pool) NewStmt(kind StmtKind, pos Pos) (*Stmt, error) {
	h, err := p.allocHandle()
	if err != nil {
		return nil, err
	}
	return &Stmt{Kind: kind, Pos: pos, handle: h}, nil
}

// SetNext chains next after s.
func (p *Pool) SetNext(s *Stmt, next *Stmt) {
	s.Next = next
}

// ReleaseExpr recursively releases e's children, then e itself. Calling
// it on nil is a no-op.
func (p *Pool) ReleaseExpr(e *Expr) {
	if e == nil {
		return
	}
	p.ReleaseExpr(e.Left)
	p.ReleaseExpr(e.Right)
	if e.Kind == PROC {
		p.ReleaseStmt(e.Body)
	}
	p.arena.Release(e.handle)
}

// ReleaseStmt recursively releases s's children and walks s's sibling
// chain, releasing each in turn. Calling it on nil is a no-op.
func (p *Pool) ReleaseStmt(s *Stmt) {
	for s != nil {
		next := s.Next
		p.ReleaseExpr(s.Cond)
		p.ReleaseExpr(s.Value)
		p.ReleaseStmt(s.Then)
		p.ReleaseStmt(s.Else)
		p.arena.Release(s.handle)
		s = next
	}
}
