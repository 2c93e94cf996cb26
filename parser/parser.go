// Package parser implements a single-pass, operator-precedence,
// recursive-descent parser, grounded line-by-line on
// original_source/lang/parse.c's parse_expr_*/parse_stmt_* functions:
// one Go method per C function, same grammar tiers, same
// failure-then-null-return discipline translated to Go's (node, error)
// idiom.
package parser

import (
	"log/slog"

	"github.com/nanoscript/nanoscript/ast"
	"github.com/nanoscript/nanoscript/config"
	"github.com/nanoscript/nanoscript/lexer"
	"github.com/nanoscript/nanoscript/reporter"
	"github.com/nanoscript/nanoscript/token"
)

// Parser drives a lexer and an ast.Pool to build statement/expression
// trees. It is part of the same single-threaded session as the Lexer and
// Pool it was constructed with; do not share a Parser across goroutines.
type Parser struct {
	lex  *lexer.Lexer
	pool *ast.Pool
	sink reporter.Sink
	cfg  config.Config
	log  *slog.Logger

	depth int
}

// New creates a Parser over lex, allocating nodes through pool and
// reporting advisory events to sink (nil is valid: no events are sent).
func New(lex *lexer.Lexer, pool *ast.Pool, sink reporter.Sink, cfg config.Config, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{lex: lex, pool: pool, sink: sink, cfg: cfg, log: log}
}

// ParseExpr parses a full expression, including the top-level comma
// operator, mirroring original_source/lang/parse.c's parse_expr entry
// point.
func (p *Parser) ParseExpr() (*ast.Expr, error) {
	return p.comma()
}

// ParseStmt parses exactly one statement. At end of stream it fires an
// EOF event and returns (nil, nil) — a clean EOF is not an error.
func (p *Parser) ParseStmt() (*ast.Stmt, error) {
	return p.stmt()
}

// ParseStmtList parses statements until EOF or a closing '}'. An empty
// list yields a single PASS statement rather than nil.
func (p *Parser) ParseStmtList() (*ast.Stmt, error) {
	return p.stmtList()
}

// fail reports a FAIL event at the lexer's current position and returns
// the corresponding wrapped error.
func (p *Parser) fail(code reporter.Code) error {
	line, col := p.lex.Position()
	return p.failAt(code, line, col)
}

// failAt reports a FAIL event at an explicit position — used where the
// offending node was already parsed and its own position, not the
// lexer's current lookahead, identifies the error (e.g. an invalid
// left-hand value names the left-hand expression, not the `=` that
// follows it).
func (p *Parser) failAt(code reporter.Code, line, col int) error {
	reporter.Report(p.sink, reporter.Event{Kind: reporter.EventFail, Code: code, Line: line, Col: col})
	return reporter.NewError(code, line, col)
}

func (p *Parser) posHere() ast.Pos {
	line, col := p.lex.Position()
	return ast.Pos{Line: line, Col: col}
}

// enterRecursion bounds recursive-descent depth at config.MaxRecursionDepth,
// reporting InvalidSyntax instead of overflowing the Go call stack, via
// an explicit threaded counter rather than runtime stack probing.
func (p *Parser) enterRecursion() error {
	p.depth++
	if p.cfg.MaxRecursionDepth > 0 && p.depth > p.cfg.MaxRecursionDepth {
		return p.fail(reporter.InvalidSyntax)
	}
	return nil
}

func (p *Parser) leaveRecursion() {
	p.depth--
}

// --- expression grammar -----------------------------------------------

func (p *Parser) factor() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	tok := p.lex.Token()
	p.log.Debug("parser: factor", "token", tok.Type, "depth", p.depth)
	switch tok.Type {
	case token.EOF:
		return nil, p.fail(reporter.InvalidSyntax)
	case token.Type('('):
		return p.formParenth()
	case token.Type('['):
		return p.formArray()
	case token.Type('{'):
		return p.formDict()
	case token.DEF:
		return p.funcdef()
	case token.ID:
		p.lex.Match(tok.Type)
		return p.pool.NewID(pos(tok), tok.Text)
	case token.NUM:
		p.lex.Match(tok.Type)
		return p.pool.NewNum(pos(tok), tok.Num)
	case token.STR:
		p.lex.Match(tok.Type)
		return p.pool.NewString(pos(tok), tok.Text)
	case token.UND:
		p.lex.Match(tok.Type)
		return p.pool.NewExpr(ast.UND, pos(tok))
	case token.NAN:
		p.lex.Match(tok.Type)
		return p.pool.NewExpr(ast.NAN, pos(tok))
	case token.NULL:
		p.lex.Match(tok.Type)
		return p.pool.NewExpr(ast.NULL, pos(tok))
	case token.TRUE:
		p.lex.Match(tok.Type)
		return p.pool.NewExpr(ast.TRUE, pos(tok))
	case token.FALSE:
		p.lex.Match(tok.Type)
		return p.pool.NewExpr(ast.FALSE, pos(tok))
	default:
		return nil, p.fail(reporter.InvalidToken)
	}
}

func pos(t token.Token) ast.Pos {
	return ast.Pos{Line: t.Line, Col: t.Col}
}

// primary chains attribute/element/call suffixes onto an ID factor, per
// the "suffix chain only if factor is ID" rule.
func (p *Parser) primary() (*ast.Expr, error) {
	expr, err := p.factor()
	if err != nil {
		return nil, err
	}

	if expr.Kind != ast.ID {
		return expr, nil
	}

	for {
		tok := p.lex.Token()
		switch tok.Type {
		case token.Type('.'):
			expr, err = p.formAttr(expr)
		case token.Type('['):
			expr, err = p.formElem(expr)
		case token.Type('('):
			expr, err = p.formCall(expr)
		default:
			return expr, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) unary() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	tok := p.lex.Token()
	switch tok.Type {
	case token.Type('!'):
		p.lex.Match(tok.Type)
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return p.pool.NewUnary(ast.LOGIC_NOT, pos(tok), operand)
	case token.Type('-'), token.Type('~'):
		p.lex.Match(tok.Type)
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		kind := ast.NEG
		if tok.Type == token.Type('~') {
			kind = ast.NOT
		}
		return p.pool.NewUnary(kind, pos(tok), operand)
	default:
		return p.primary()
	}
}

func (p *Parser) binaryTier(next func() (*ast.Expr, error), ops map[token.Type]ast.ExprKind) (*ast.Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.lex.Token()
		kind, ok := ops[tok.Type]
		if !ok {
			return expr, nil
		}
		p.lex.Match(tok.Type)
		rhs, err := next()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		expr, err = p.pool.NewBinary(kind, pos(tok), expr, rhs)
		if err != nil {
			return nil, err
		}
	}
}

var mulOps = map[token.Type]ast.ExprKind{
	token.Type('*'): ast.MUL, token.Type('/'): ast.DIV, token.Type('%'): ast.MOD,
}

func (p *Parser) mul() (*ast.Expr, error) { return p.binaryTier(p.unary, mulOps) }

var addOps = map[token.Type]ast.ExprKind{
	token.Type('+'): ast.ADD, token.Type('-'): ast.SUB,
}

func (p *Parser) add() (*ast.Expr, error) { return p.binaryTier(p.mul, addOps) }

var shiftOps = map[token.Type]ast.ExprKind{
	token.LSHIFT: ast.LSHIFT, token.RSHIFT: ast.RSHIFT,
}

func (p *Parser) shift() (*ast.Expr, error) { return p.binaryTier(p.add, shiftOps) }

var aandOps = map[token.Type]ast.ExprKind{
	token.Type('&'): ast.AND, token.Type('|'): ast.OR, token.Type('^'): ast.XOR,
}

func (p *Parser) aand() (*ast.Expr, error) { return p.binaryTier(p.shift, aandOps) }

var testOps = map[token.Type]ast.ExprKind{
	token.Type('>'): ast.TGT, token.Type('<'): ast.TLT,
	token.NE: ast.TNE, token.EQ: ast.TEQ, token.GE: ast.TGE, token.LE: ast.TLE,
	token.IN: ast.TIN,
}

func (p *Parser) test() (*ast.Expr, error) { return p.binaryTier(p.aand, testOps) }

// logicAnd and logicOr are right-associative in the original grammar
// (single optional recursive tail rather than a loop), so they are
// written directly rather than through binaryTier's loop.
func (p *Parser) logicAnd() (*ast.Expr, error) {
	expr, err := p.test()
	if err != nil {
		return nil, err
	}
	tok := p.lex.Token()
	if tok.Type == token.LOGIC_AND {
		p.lex.Match(tok.Type)
		rhs, err := p.logicAnd()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.LOGIC_AND, pos(tok), expr, rhs)
	}
	return expr, nil
}

func (p *Parser) logicOr() (*ast.Expr, error) {
	expr, err := p.logicAnd()
	if err != nil {
		return nil, err
	}
	tok := p.lex.Token()
	if tok.Type == token.LOGIC_OR {
		p.lex.Match(tok.Type)
		rhs, err := p.logicOr()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.LOGIC_OR, pos(tok), expr, rhs)
	}
	return expr, nil
}

func (p *Parser) ternary() (*ast.Expr, error) {
	expr, err := p.logicOr()
	if err != nil {
		return nil, err
	}
	tok := p.lex.Token()
	if tok.Type == token.Type('?') {
		p.lex.Match(tok.Type)
		pairExpr, err := p.formPair()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.TERNARY, pos(tok), expr, pairExpr)
	}
	return expr, nil
}

// assignOps maps each compound-assignment token to the binary operator
// it desugars into. NOT_ASSIGN is absent: it desugars through a
// dedicated unary path (ASSIGN(x, NOT(e))) since `~` is unary, not
// binary.
var assignOps = map[token.Type]ast.ExprKind{
	token.ADD_ASSIGN: ast.ADD, token.SUB_ASSIGN: ast.SUB,
	token.MUL_ASSIGN: ast.MUL, token.DIV_ASSIGN: ast.DIV, token.MOD_ASSIGN: ast.MOD,
	token.AND_ASSIGN: ast.AND, token.OR_ASSIGN: ast.OR, token.XOR_ASSIGN: ast.XOR,
	token.LSHIFT_ASSIGN: ast.LSHIFT, token.RSHIFT_ASSIGN: ast.RSHIFT,
}

func isAssignableKind(k ast.ExprKind) bool {
	return k == ast.ID || k == ast.ATTR || k == ast.ELEM
}

// assign parses a ternary expression, then an optional assignment or
// compound-assignment suffix.
func (p *Parser) assign() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()
	p.log.Debug("parser: assign", "depth", p.depth)

	expr, err := p.ternary()
	if err != nil {
		return nil, err
	}

	tok := p.lex.Token()

	if tok.Type == token.Type('=') {
		if !isAssignableKind(expr.Kind) {
			errPos := expr.Pos
			p.pool.ReleaseExpr(expr)
			return nil, p.failAt(reporter.InvalidLeftValue, errPos.Line, errPos.Col)
		}
		p.lex.Match(tok.Type)
		rhs, err := p.assign()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.ASSIGN, pos(tok), expr, rhs)
	}

	if tok.Type == token.NOT_ASSIGN {
		if !isAssignableKind(expr.Kind) {
			errPos := expr.Pos
			p.pool.ReleaseExpr(expr)
			return nil, p.failAt(reporter.InvalidLeftValue, errPos.Line, errPos.Col)
		}
		p.lex.Match(tok.Type)
		rhs, err := p.assign()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		notRhs, err := p.pool.NewUnary(ast.NOT, pos(tok), rhs)
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.ASSIGN, pos(tok), expr, notRhs)
	}

	if kind, ok := assignOps[tok.Type]; ok {
		if !isAssignableKind(expr.Kind) {
			errPos := expr.Pos
			p.pool.ReleaseExpr(expr)
			return nil, p.failAt(reporter.InvalidLeftValue, errPos.Line, errPos.Col)
		}
		p.lex.Match(tok.Type)
		rhs, err := p.assign()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		lhsCopy, err := p.cloneForRead(expr)
		if err != nil {
			p.pool.ReleaseExpr(expr)
			p.pool.ReleaseExpr(rhs)
			return nil, err
		}
		combined, err := p.pool.NewBinary(kind, pos(tok), lhsCopy, rhs)
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.ASSIGN, pos(tok), expr, combined)
	}

	return expr, nil
}

// cloneForRead deep-clones an expression subtree so it can be used as a
// read in the desugared right-hand side of a compound assignment
// without violating the "each node has exactly one parent" ownership
// invariant. It recurses into every child slot regardless of kind: an
// ATTR/ELEM lvalue's base or index is itself an arbitrary expression
// (formElem parses its index via ternary()), e.g. `arr[i+1] += 1` or
// `f(x).y += 1`, so only cloning ID/ATTR/ELEM/NUM/STRING and zeroing
// everything else would silently drop those subtrees' children.
func (p *Parser) cloneForRead(e *ast.Expr) (*ast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	clone, err := p.pool.NewExpr(e.Kind, e.Pos)
	if err != nil {
		return nil, err
	}
	clone.Str = e.Str
	clone.Num = e.Num

	clone.Left, err = p.cloneForRead(e.Left)
	if err != nil {
		p.pool.ReleaseExpr(clone)
		return nil, err
	}
	clone.Right, err = p.cloneForRead(e.Right)
	if err != nil {
		p.pool.ReleaseExpr(clone)
		return nil, err
	}
	if e.Kind == ast.PROC {
		clone.Body, err = p.cloneStmtForRead(e.Body)
		if err != nil {
			p.pool.ReleaseExpr(clone)
			return nil, err
		}
	}
	return clone, nil
}

// cloneStmtForRead deep-clones a statement (and its Next chain) for use
// inside a cloned PROC body. A PROC can reach a compound-assignment's
// lvalue base as an ordinary subexpression (e.g. `f(def(){}).x += 1`), so
// cloning a function literal's body must itself be exact, not skipped.
func (p *Parser) cloneStmtForRead(s *ast.Stmt) (*ast.Stmt, error) {
	if s == nil {
		return nil, nil
	}
	clone, err := p.pool.NewStmt(s.Kind, s.Pos)
	if err != nil {
		return nil, err
	}
	clone.Cond, err = p.cloneForRead(s.Cond)
	if err != nil {
		p.pool.ReleaseStmt(clone)
		return nil, err
	}
	clone.Value, err = p.cloneForRead(s.Value)
	if err != nil {
		p.pool.ReleaseStmt(clone)
		return nil, err
	}
	clone.Then, err = p.cloneStmtForRead(s.Then)
	if err != nil {
		p.pool.ReleaseStmt(clone)
		return nil, err
	}
	clone.Else, err = p.cloneStmtForRead(s.Else)
	if err != nil {
		p.pool.ReleaseStmt(clone)
		return nil, err
	}
	clone.Next, err = p.cloneStmtForRead(s.Next)
	if err != nil {
		p.pool.ReleaseStmt(clone)
		return nil, err
	}
	return clone, nil
}

// formPair parses `ternary ':' ternary`, used for the ternary's then:else
// branch. PAIR only ever appears under TERNARY or DICT.
func (p *Parser) formPair() (*ast.Expr, error) {
	expr, err := p.ternary()
	if err != nil {
		return nil, err
	}
	colon, ok := p.lex.Match(token.Type(':'))
	if !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	rhs, err := p.ternary()
	if err != nil {
		p.pool.ReleaseExpr(expr)
		return nil, err
	}
	return p.pool.NewBinary(ast.PAIR, pos(colon), expr, rhs)
}

// kv parses one `key : value` dict entry; key is an ID or string literal
// factor (no suffix chaining), value a full assign-expression.
func (p *Parser) kv() (*ast.Expr, error) {
	tok := p.lex.Token()
	if tok.Type != token.ID && tok.Type != token.STR {
		return nil, p.fail(reporter.InvalidToken)
	}
	key, err := p.factor()
	if err != nil {
		return nil, err
	}
	colon, ok := p.lex.Match(token.Type(':'))
	if !ok {
		p.pool.ReleaseExpr(key)
		return nil, p.fail(reporter.InvalidToken)
	}
	val, err := p.assign()
	if err != nil {
		p.pool.ReleaseExpr(key)
		return nil, err
	}
	return p.pool.NewBinary(ast.PAIR, pos(colon), key, val)
}

func (p *Parser) kvlist() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	expr, err := p.kv()
	if err != nil {
		return nil, err
	}
	if comma, ok := p.lex.Match(token.Type(',')); ok {
		rest, err := p.kvlist()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.COMMA, pos(comma), expr, rest)
	}
	return expr, nil
}

// vardef parses one `ID` or `ID = assign` declarator, used both in
// parameter lists and `var` declarations.
func (p *Parser) vardef() (*ast.Expr, error) {
	tok := p.lex.Token()
	if tok.Type != token.ID {
		return nil, p.fail(reporter.InvalidToken)
	}
	id, err := p.factor()
	if err != nil {
		return nil, err
	}
	if eq, ok := p.lex.Match(token.Type('=')); ok {
		rhs, err := p.assign()
		if err != nil {
			p.pool.ReleaseExpr(id)
			return nil, err
		}
		return p.pool.NewBinary(ast.ASSIGN, pos(eq), id, rhs)
	}
	return id, nil
}

func (p *Parser) vardefList() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	expr, err := p.vardef()
	if err != nil {
		return nil, err
	}
	if comma, ok := p.lex.Match(token.Type(',')); ok {
		rest, err := p.vardefList()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.COMMA, pos(comma), expr, rest)
	}
	return expr, nil
}

func (p *Parser) comma() (*ast.Expr, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	expr, err := p.assign()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.lex.Match(token.Type(',')); ok {
		rest, err := p.comma()
		if err != nil {
			p.pool.ReleaseExpr(expr)
			return nil, err
		}
		return p.pool.NewBinary(ast.COMMA, pos(tok), expr, rest)
	}
	return expr, nil
}

func (p *Parser) funcdef() (*ast.Expr, error) {
	defTok, _ := p.lex.Match(token.DEF)

	var name, param *ast.Expr
	var err error

	if p.lex.Token().Type == token.ID {
		if name, err = p.factor(); err != nil {
			return nil, err
		}
	}

	if _, ok := p.lex.Match(token.Type('(')); !ok {
		p.releaseAll(name)
		return nil, p.fail(reporter.InvalidToken)
	}

	if _, ok := p.lex.Match(token.Type(')')); !ok {
		if param, err = p.vardefList(); err != nil {
			p.releaseAll(name)
			return nil, err
		}
		if _, ok := p.lex.Match(token.Type(')')); !ok {
			p.releaseAll(name, param)
			return nil, p.fail(reporter.InvalidToken)
		}
	}

	block, err := p.stmtBlock()
	if err != nil {
		p.releaseAll(name, param)
		return nil, err
	}

	var head *ast.Expr
	if name != nil || param != nil {
		head, err = p.pool.NewExpr(ast.FUNCHEAD, pos(defTok))
		if err != nil {
			p.releaseAll(name, param)
			p.pool.ReleaseStmt(block)
			return nil, err
		}
		p.pool.SetLeft(head, name)
		p.pool.SetRight(head, param)
	}

	proc, err := p.pool.NewProc(pos(defTok), block)
	if err != nil {
		p.pool.ReleaseExpr(head)
		p.pool.ReleaseStmt(block)
		return nil, err
	}

	return p.pool.NewBinary(ast.FUNCDEF, pos(defTok), head, proc)
}

func (p *Parser) releaseAll(exprs ...*ast.Expr) {
	for _, e := range exprs {
		p.pool.ReleaseExpr(e)
	}
}

func (p *Parser) formAttr(lft *ast.Expr) (*ast.Expr, error) {
	dot, _ := p.lex.Match(token.Type('.'))
	if p.lex.Token().Type != token.ID {
		p.pool.ReleaseExpr(lft)
		return nil, p.fail(reporter.InvalidToken)
	}
	name, err := p.factor()
	if err != nil {
		p.pool.ReleaseExpr(lft)
		return nil, err
	}
	return p.pool.NewBinary(ast.ATTR, pos(dot), lft, name)
}

func (p *Parser) formElem(lft *ast.Expr) (*ast.Expr, error) {
	br, _ := p.lex.Match(token.Type('['))
	index, err := p.ternary()
	if err != nil {
		p.pool.ReleaseExpr(lft)
		return nil, err
	}
	expr, err := p.pool.NewBinary(ast.ELEM, pos(br), lft, index)
	if err != nil {
		return nil, err
	}
	if _, ok := p.lex.Match(token.Type(']')); !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	return expr, nil
}

func (p *Parser) formCall(lft *ast.Expr) (*ast.Expr, error) {
	paren, _ := p.lex.Match(token.Type('('))
	if _, ok := p.lex.Match(token.Type(')')); ok {
		return p.pool.NewUnary(ast.CALL, pos(paren), lft)
	}
	args, err := p.comma()
	if err != nil {
		p.pool.ReleaseExpr(lft)
		return nil, err
	}
	expr, err := p.pool.NewBinary(ast.CALL, pos(paren), lft, args)
	if err != nil {
		return nil, err
	}
	if _, ok := p.lex.Match(token.Type(')')); !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	return expr, nil
}

func (p *Parser) formParenth() (*ast.Expr, error) {
	p.lex.Match(token.Type('('))
	expr, err := p.comma()
	if err != nil {
		return nil, err
	}
	if _, ok := p.lex.Match(token.Type(')')); !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	return expr, nil
}

func (p *Parser) formArray() (*ast.Expr, error) {
	br, _ := p.lex.Match(token.Type('['))
	if _, ok := p.lex.Match(token.Type(']')); ok {
		return p.pool.NewExpr(ast.ARRAY, pos(br))
	}
	items, err := p.comma()
	if err != nil {
		return nil, err
	}
	expr, err := p.pool.NewUnary(ast.ARRAY, pos(br), items)
	if err != nil {
		return nil, err
	}
	if _, ok := p.lex.Match(token.Type(']')); !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	return expr, nil
}

func (p *Parser) formDict() (*ast.Expr, error) {
	brace, _ := p.lex.Match(token.Type('{'))
	if _, ok := p.lex.Match(token.Type('}')); ok {
		return p.pool.NewExpr(ast.DICT, pos(brace))
	}
	items, err := p.kvlist()
	if err != nil {
		return nil, err
	}
	expr, err := p.pool.NewUnary(ast.DICT, pos(brace), items)
	if err != nil {
		return nil, err
	}
	if _, ok := p.lex.Match(token.Type('}')); !ok {
		p.pool.ReleaseExpr(expr)
		return nil, p.fail(reporter.InvalidToken)
	}
	return expr, nil
}

// --- statement grammar --------------------------------------------------

// stmtBlock parses `{ stmt* }` or, outside braces, a single statement.
func (p *Parser) stmtBlock() (*ast.Stmt, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	if _, ok := p.lex.Match(token.Type('{')); ok {
		block, err := p.stmtList()
		if err != nil {
			return nil, err
		}
		if _, ok := p.lex.Match(token.Type('}')); !ok {
			p.pool.ReleaseStmt(block)
			return nil, p.fail(reporter.InvalidToken)
		}
		return block, nil
	}
	return p.stmt()
}

// stmtIfBody parses the condition/block/else-chain that follows an
// already-consumed `if` or `elif` keyword, recursing on `elif` to build
// nested IF nodes (SPEC_FULL §3's elif-as-sugar resolution).
func (p *Parser) stmtIfBody(kwPos ast.Pos) (*ast.Stmt, error) {
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	block, err := p.stmtBlock()
	if err != nil {
		p.pool.ReleaseExpr(cond)
		return nil, err
	}

	var other *ast.Stmt
	if elifTok, ok := p.lex.Match(token.ELIF); ok {
		if other, err = p.stmtIfBody(pos(elifTok)); err != nil {
			p.pool.ReleaseExpr(cond)
			p.pool.ReleaseStmt(block)
			return nil, err
		}
	} else if _, ok := p.lex.Match(token.ELSE); ok {
		if other, err = p.stmtBlock(); err != nil {
			p.pool.ReleaseExpr(cond)
			p.pool.ReleaseStmt(block)
			return nil, err
		}
	}

	s, err := p.pool.NewStmt(ast.IF, kwPos)
	if err != nil {
		p.pool.ReleaseExpr(cond)
		p.pool.ReleaseStmt(block)
		p.pool.ReleaseStmt(other)
		return nil, err
	}
	s.Cond = cond
	s.Then = block
	s.Else = other
	return s, nil
}

func (p *Parser) stmtIf() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.IF)
	return p.stmtIfBody(pos(tok))
}

func (p *Parser) stmtVar() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.VAR)
	decls, err := p.vardefList()
	if err != nil {
		return nil, err
	}
	p.lex.Match(token.Type(';'))
	s, err := p.pool.NewStmt(ast.VAR, pos(tok))
	if err != nil {
		p.pool.ReleaseExpr(decls)
		return nil, err
	}
	s.Value = decls
	return s, nil
}

func (p *Parser) stmtRet() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.RET)
	var expr *ast.Expr
	if _, ok := p.lex.Match(token.Type(';')); !ok {
		var err error
		if expr, err = p.ParseExpr(); err != nil {
			return nil, err
		}
		p.lex.Match(token.Type(';'))
	}
	s, err := p.pool.NewStmt(ast.RET, pos(tok))
	if err != nil {
		p.pool.ReleaseExpr(expr)
		return nil, err
	}
	s.Value = expr
	return s, nil
}

func (p *Parser) stmtWhile() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.WHILE)
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	block, err := p.stmtBlock()
	if err != nil {
		p.pool.ReleaseExpr(cond)
		return nil, err
	}
	s, err := p.pool.NewStmt(ast.WHILE, pos(tok))
	if err != nil {
		p.pool.ReleaseExpr(cond)
		p.pool.ReleaseStmt(block)
		return nil, err
	}
	s.Cond = cond
	s.Then = block
	return s, nil
}

func (p *Parser) stmtBreak() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.BREAK)
	p.lex.Match(token.Type(';'))
	return p.pool.NewStmt(ast.BREAK, pos(tok))
}

func (p *Parser) stmtContinue() (*ast.Stmt, error) {
	tok, _ := p.lex.Match(token.CONTINUE)
	p.lex.Match(token.Type(';'))
	return p.pool.NewStmt(ast.CONTINUE, pos(tok))
}

func (p *Parser) stmtExpr() (*ast.Stmt, error) {
	startPos := p.posHere()
	expr, err := p.ParseExpr()
	p.lex.Match(token.Type(';'))
	if err != nil {
		return nil, err
	}
	s, err := p.pool.NewStmt(ast.EXPR, startPos)
	if err != nil {
		p.pool.ReleaseExpr(expr)
		return nil, err
	}
	s.Value = expr
	return s, nil
}

func (p *Parser) stmt() (*ast.Stmt, error) {
	tok := p.lex.Token()
	p.log.Debug("parser: stmt", "token", tok.Type, "line", tok.Line, "col", tok.Col)
	switch tok.Type {
	case token.EOF:
		reporter.Report(p.sink, reporter.Event{Kind: reporter.EventEOF, Line: tok.Line, Col: tok.Col})
		return nil, nil
	case token.IF:
		return p.stmtIf()
	case token.VAR:
		return p.stmtVar()
	case token.RET:
		return p.stmtRet()
	case token.WHILE:
		return p.stmtWhile()
	case token.BREAK:
		return p.stmtBreak()
	case token.CONTINUE:
		return p.stmtContinue()
	default:
		return p.stmtExpr()
	}
}

func (p *Parser) stmtList() (*ast.Stmt, error) {
	if err := p.enterRecursion(); err != nil {
		return nil, err
	}
	defer p.leaveRecursion()

	var head, last *ast.Stmt

	for {
		tok := p.lex.Token()
		if tok.Type == token.EOF || tok.Type == token.Type('}') {
			break
		}
		for {
			if _, ok := p.lex.Match(token.Type(';')); !ok {
				break
			}
		}
		tok = p.lex.Token()
		if tok.Type == token.EOF || tok.Type == token.Type('}') {
			break
		}

		curr, err := p.stmt()
		if err != nil {
			p.pool.ReleaseStmt(head)
			return nil, err
		}
		if curr == nil {
			// EOF observed mid-list via stmt()'s EOF handling.
			break
		}

		if head == nil {
			head = curr
			last = curr
		} else {
			p.pool.SetNext(last, curr)
			last = curr
		}
	}

	if head == nil {
		return p.pool.NewStmt(ast.PASS, p.posHere())
	}
	return head, nil
}
