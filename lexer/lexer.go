// Package lexer implements the streaming, line-oriented scanner described
// by the original lang/lex.h: source arrives one line at a time through a
// pluggable LineSource, and the lexer exposes a one-token lookahead
// (peek/advance) stream of token.Token values with (line, col) positions.
// Grounded on lex.h's curr_ch/next_ch two-character lookahead and on
// protocompile's runeReader mark/restore idiom (parser/lexer.go), adapted
// here to a line-at-a-time rather than whole-buffer source.
package lexer

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/nanoscript/nanoscript/config"
	"github.com/nanoscript/nanoscript/token"
)

// LineSource is the pluggable source-input callback from the original
// lexer contract (`more() -> (byte-ptr, or null)`): MoreLine returns the
// next line of source, or ok=false to signal EOF. The lexer does not
// mutate the returned bytes and does not assume they remain valid past
// the next call, so it copies whatever it needs to keep.
type LineSource interface {
	MoreLine() (line []byte, ok bool)
}

// multiCharOperators maps every multi-character operator lexeme to its
// token type, longest match first within each length class. Single
// characters fall back to token.Type(rune) in next().
var multiCharOperators = map[string]token.Type{
	"<<=": token.LSHIFT_ASSIGN,
	">>=": token.RSHIFT_ASSIGN,

	"==": token.EQ,
	"!=": token.NE,
	">=": token.GE,
	"<=": token.LE,
	"<<": token.LSHIFT,
	">>": token.RSHIFT,
	"&&": token.LOGIC_AND,
	"||": token.LOGIC_OR,
	"+=": token.ADD_ASSIGN,
	"-=": token.SUB_ASSIGN,
	"*=": token.MUL_ASSIGN,
	"/=": token.DIV_ASSIGN,
	"%=": token.MOD_ASSIGN,
	"&=": token.AND_ASSIGN,
	"|=": token.OR_ASSIGN,
	"^=": token.XOR_ASSIGN,
	"~=": token.NOT_ASSIGN,
}

// singleCharTokens lists the bytes that stand for themselves as a token,
// per lex.h's "single-character tokens" rule.
const singleCharTokens = "(){}[].,;:?!+-*/%~&|^<>="

// Lexer is a one-token-lookahead scanner over a LineSource. It is not
// safe for concurrent use; a Lexer, together with the AST pool built from
// its tokens, forms one single-threaded session (see concurrency.Limiter
// for bounding how many such sessions run in parallel).
type Lexer struct {
	src LineSource
	cfg config.Config
	log *slog.Logger

	buf  []byte // current line, with a synthetic trailing '\n'
	pos  int    // byte offset into buf
	line int
	col  int
	eof  bool // MoreLine has returned ok=false

	curr     token.Token
	havePeek bool

	// pending holds an INVALID token synthesized at a truncation point;
	// it is emitted before scanning resumes, per the buffer-overflow
	// policy in lex.h.
	pending *token.Token
}

// New creates a Lexer reading from src, bounding identifier/string length
// at cfg.TokenMaxSize. log is used for trace-level diagnostics of line
// refills; a nil log defaults to slog.Default().
func New(src LineSource, cfg config.Config, log *slog.Logger) *Lexer {
	if log == nil {
		log = slog.Default()
	}
	return &Lexer{src: src, cfg: cfg, log: log, line: 1, col: 1}
}

// Close releases the lexer's internal buffers. Go's garbage collector
// already owns the underlying memory, so Close exists for parity with the
// original init/deinit pairing and for embedders who want a deterministic
// point to drop the LineSource reference.
func (l *Lexer) Close() error {
	l.buf = nil
	l.src = nil
	return nil
}

// fill ensures buf has at least one unread byte, pulling the next line
// from src if necessary. It returns false once the source is exhausted.
func (l *Lexer) fill() bool {
	if l.pos < len(l.buf) {
		return true
	}
	if l.eof {
		return false
	}
	line, ok := l.src.MoreLine()
	if !ok {
		l.eof = true
		return false
	}
	l.log.Debug("lexer: line refill", "line", l.line+1, "bytes", len(line))
	l.buf = append(append([]byte(nil), line...), '\n')
	l.pos = 0
	return true
}

// peekAt returns the byte n positions ahead of the scan cursor, or 0, false
// if that position isn't available without pulling in further lines (the
// lexer only ever looks ahead within the current line, so an operator
// can't be split across a line boundary — a deliberate simplification of
// the two-character-lookahead contract for a line-buffered source).
func (l *Lexer) peekAt(n int) (byte, bool) {
	if !l.fill() {
		return 0, false
	}
	if l.pos+n >= len(l.buf) {
		return 0, false
	}
	return l.buf[l.pos+n], true
}

func (l *Lexer) peek() (byte, bool)  { return l.peekAt(0) }
func (l *Lexer) peek2() (byte, bool) { return l.peekAt(1) }

// advance consumes one byte, updating (line, col).
func (l *Lexer) advance() {
	if !l.fill() {
		return
	}
	c := l.buf[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// Position returns the source position of the current, not-yet-consumed
// token, per lex.h's position(&line, &col).
func (l *Lexer) Position() (line, col int) {
	_ = l.Token()
	return l.curr.Line, l.curr.Col
}

// Token peeks the current token without consuming it. It is idempotent
// until a matching Match or an implicit advance elsewhere.
func (l *Lexer) Token() token.Token {
	if !l.havePeek {
		l.curr = l.scan()
		l.havePeek = true
	}
	return l.curr
}

// Match consumes the current token if it equals t, returning it and true;
// otherwise it leaves the lexer positioned at the unmatched token and
// returns false.
func (l *Lexer) Match(t token.Type) (token.Token, bool) {
	tok := l.Token()
	if tok.Type != t {
		return token.Token{}, false
	}
	l.havePeek = false
	return tok, true
}

// scan performs one full classify-and-emit cycle: skip whitespace and
// comments, then classify the leading character.
func (l *Lexer) scan() token.Token {
	if l.pending != nil {
		t := *l.pending
		l.pending = nil
		return t
	}

	l.skipWhitespaceAndComments()

	line, col := l.line, l.col
	c, ok := l.peek()
	if !ok {
		return token.Token{Type: token.EOF, Line: line, Col: col}
	}

	switch {
	case isIdentStart(c):
		return l.scanIdentifier(line, col)
	case isDigit(c):
		return l.scanNumber(line, col)
	case c == '"':
		return l.scanString(line, col)
	}

	if op, tokType := l.matchOperator(); op != "" {
		l.advanceN(len(op))
		return token.Token{Type: tokType, Line: line, Col: col, Text: op}
	}

	if strings.IndexByte(singleCharTokens, c) >= 0 {
		l.advance()
		return token.Token{Type: token.Type(c), Line: line, Col: col, Text: string(c)}
	}

	// Unrecognized byte: consume it and report INVALID at its position,
	// per the lexer's "value outside the enum" error policy.
	l.advance()
	return token.Token{Type: token.INVALID, Line: line, Col: col, Text: string(c)}
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

// matchOperator finds the longest multi-char operator starting at the
// scan cursor, trying 3 bytes then 2.
func (l *Lexer) matchOperator() (string, token.Type) {
	b0, ok0 := l.peek()
	if !ok0 {
		return "", 0
	}
	b1, ok1 := l.peek2()
	if !ok1 {
		return "", 0
	}
	if b2, ok2 := l.peekAt(2); ok2 {
		if t, found := multiCharOperators[string([]byte{b0, b1, b2})]; found {
			return string([]byte{b0, b1, b2}), t
		}
	}
	if t, found := multiCharOperators[string([]byte{b0, b1})]; found {
		return string([]byte{b0, b1}), t
	}
	return "", 0
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		c, ok := l.peek()
		if !ok {
			return
		}
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
			continue
		case c == '/' && l.peek2Is('/'):
			for {
				c, ok := l.peek()
				if !ok || c == '\n' {
					break
				}
				l.advance()
			}
			continue
		case c == '/' && l.peek2Is('*'):
			l.advanceN(2)
			for {
				c, ok := l.peek()
				if !ok {
					return
				}
				if c == '*' && l.peek2Is('/') {
					l.advanceN(2)
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *Lexer) peek2Is(want byte) bool {
	b, ok := l.peek2()
	return ok && b == want
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// scanIdentifier reads [A-Za-z_][A-Za-z_0-9]* and looks it up against the
// keyword table, emitting the keyword's token type instead of ID when it
// matches.
func (l *Lexer) scanIdentifier(line, col int) token.Token {
	var b strings.Builder
	truncated := false
	for {
		c, ok := l.peek()
		if !ok || !isIdentCont(c) {
			break
		}
		if b.Len() < l.cfg.TokenMaxSize {
			b.WriteByte(c)
		} else {
			truncated = true
		}
		l.advance()
	}
	text := b.String()
	if truncated {
		l.queueTruncationInvalid(line, col, len(text))
	}
	if kw, ok := token.Keywords[text]; ok {
		return token.Token{Type: kw, Line: line, Col: col, Text: text}
	}
	return token.Token{Type: token.ID, Line: line, Col: col, Text: text}
}

// scanNumber reads a decimal integer or float, optionally with a
// fractional part and a signed exponent, per lex.h's NUM production.
func (l *Lexer) scanNumber(line, col int) token.Token {
	var b strings.Builder
	readDigits := func() {
		for {
			c, ok := l.peek()
			if !ok || !isDigit(c) {
				return
			}
			b.WriteByte(c)
			l.advance()
		}
	}
	readDigits()
	if c, ok := l.peek(); ok && c == '.' {
		if c2, ok2 := l.peek2(); ok2 && isDigit(c2) {
			b.WriteByte('.')
			l.advance()
			readDigits()
		}
	}
	if c, ok := l.peek(); ok && (c == 'e' || c == 'E') {
		if c2, ok2 := l.peek2(); ok2 && (isDigit(c2) || c2 == '+' || c2 == '-') {
			b.WriteByte(c)
			l.advance()
			if c3, ok3 := l.peek(); ok3 && (c3 == '+' || c3 == '-') {
				b.WriteByte(c3)
				l.advance()
			}
			readDigits()
		}
	}
	text := b.String()
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token.Token{Type: token.INVALID, Line: line, Col: col, Text: text}
	}
	return token.Token{Type: token.NUM, Line: line, Col: col, Text: text, Num: value}
}

// scanString reads a double-quoted literal with \n \t \r \\ \" \xHH
// escapes. A string literal may not span a line: an unterminated literal
// at end-of-line is reported as INVALID at the opening quote.
func (l *Lexer) scanString(line, col int) token.Token {
	l.advance() // opening quote
	var b strings.Builder
	truncated := false
	for {
		c, ok := l.peek()
		if !ok || c == '\n' {
			return token.Token{Type: token.INVALID, Line: line, Col: col, Text: b.String()}
		}
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			ec, ok := l.peek()
			if !ok || ec == '\n' {
				return token.Token{Type: token.INVALID, Line: line, Col: col, Text: b.String()}
			}
			switch ec {
			case 'n':
				b.WriteByte('\n')
				l.advance()
			case 't':
				b.WriteByte('\t')
				l.advance()
			case 'r':
				b.WriteByte('\r')
				l.advance()
			case '\\':
				b.WriteByte('\\')
				l.advance()
			case '"':
				b.WriteByte('"')
				l.advance()
			case 'x':
				l.advance()
				h0, ok0 := l.peek()
				if !ok0 || !isHexDigit(h0) {
					return token.Token{Type: token.INVALID, Line: line, Col: col, Text: b.String()}
				}
				l.advance()
				h1, ok1 := l.peek()
				if !ok1 || !isHexDigit(h1) {
					return token.Token{Type: token.INVALID, Line: line, Col: col, Text: b.String()}
				}
				l.advance()
				v, _ := strconv.ParseUint(string([]byte{h0, h1}), 16, 8)
				b.WriteByte(byte(v))
			default:
				return token.Token{Type: token.INVALID, Line: line, Col: col, Text: b.String()}
			}
			continue
		}
		if b.Len() < l.cfg.TokenMaxSize {
			b.WriteByte(c)
		} else {
			truncated = true
		}
		l.advance()
	}
	text := b.String()
	if truncated {
		l.queueTruncationInvalid(line, col, len(text))
		return token.Token{Type: token.STR, Line: line, Col: col, Text: text, Num: float64(len(text))}
	}
	return token.Token{Type: token.STR, Line: line, Col: col, Text: text, Num: float64(len(text))}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// queueTruncationInvalid arranges for the next scan to yield an INVALID
// token at the point where a TokenMaxSize-bounded lexeme was truncated,
// per the lexer's buffer-overflow policy in lex.h.
func (l *Lexer) queueTruncationInvalid(line, col, textLen int) {
	l.pending = &token.Token{
		Type: token.INVALID,
		Line: line,
		Col:  col + textLen,
	}
}
