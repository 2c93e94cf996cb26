package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanoscript/nanoscript/config"
	"github.com/nanoscript/nanoscript/token"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(NewSliceSource([]string{src}), config.Default(), nil)
	var toks []token.Token
	for {
		tok := l.Token()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
		l.Match(tok.Type)
	}
}

func TestIdentifiersAndKeywords(t *testing.T) {
	toks := lex(t, "foo if while _bar2")
	require.Equal(t, token.ID, toks[0].Type)
	require.Equal(t, "foo", toks[0].Text)
	require.Equal(t, token.IF, toks[1].Type)
	require.Equal(t, token.WHILE, toks[2].Type)
	require.Equal(t, token.ID, toks[3].Type)
	require.Equal(t, "_bar2", toks[3].Text)
}

func TestNumberLiterals(t *testing.T) {
	toks := lex(t, "1 2.5 1e10 3.14e-2")
	require.Equal(t, 1.0, toks[0].Num)
	require.Equal(t, 2.5, toks[1].Num)
	require.Equal(t, 1e10, toks[2].Num)
	require.InDelta(t, 3.14e-2, toks[3].Num, 1e-12)
}

func TestStringEscapes(t *testing.T) {
	toks := lex(t, `"a\nb\tc\"d\\e\x41"`)
	require.Equal(t, token.STR, toks[0].Type)
	require.Equal(t, "a\nb\tc\"d\\eA", toks[0].Text)
}

func TestStringCannotSpanLine(t *testing.T) {
	l := New(NewSliceSource([]string{`"unterminated`, `rest`}), config.Default(), nil)
	tok := l.Token()
	require.Equal(t, token.INVALID, tok.Type)
}

func TestMultiCharOperators(t *testing.T) {
	toks := lex(t, "== != >= <= << >> && || += -= *= /= %= &= |= ^= ~= <<= >>=")
	want := []token.Type{
		token.EQ, token.NE, token.GE, token.LE, token.LSHIFT, token.RSHIFT,
		token.LOGIC_AND, token.LOGIC_OR,
		token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.DIV_ASSIGN,
		token.MOD_ASSIGN, token.AND_ASSIGN, token.OR_ASSIGN, token.XOR_ASSIGN,
		token.NOT_ASSIGN, token.LSHIFT_ASSIGN, token.RSHIFT_ASSIGN,
	}
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d", i)
	}
}

func TestSingleCharTokens(t *testing.T) {
	toks := lex(t, "(){}[].,;:?!+-*/%~&|^<> =")
	require.Equal(t, token.Type('('), toks[0].Type)
	require.Equal(t, token.Type('='), toks[len(toks)-2].Type)
}

func TestLineCommentsAndBlockComments(t *testing.T) {
	l := New(NewSliceSource([]string{
		"a // trailing comment",
		"/* block",
		"comment */ b",
	}), config.Default(), nil)
	tok := l.Token()
	require.Equal(t, "a", tok.Text)
	l.Match(token.ID)
	tok = l.Token()
	require.Equal(t, "b", tok.Text)
}

func TestPositionMonotonicity(t *testing.T) {
	toks := lex(t, "a\nbb\nccc")
	var last [2]int
	for _, tok := range toks {
		if tok.Type == token.EOF {
			continue
		}
		cur := [2]int{tok.Line, tok.Col}
		require.False(t, cur[0] < last[0] || (cur[0] == last[0] && cur[1] < last[1]))
		last = cur
	}
}

func TestTokenIsIdempotentUntilMatch(t *testing.T) {
	l := New(NewSliceSource([]string{"foo bar"}), config.Default(), nil)
	first := l.Token()
	second := l.Token()
	require.Equal(t, first, second)
	_, ok := l.Match(token.ID)
	require.True(t, ok)
	require.Equal(t, "bar", l.Token().Text)
}

func TestIdentifierTruncationReportsInvalidAtBoundary(t *testing.T) {
	cfg := config.Default()
	cfg.TokenMaxSize = 3
	l := New(NewSliceSource([]string{"abcdef ghi"}), cfg, nil)
	tok := l.Token()
	require.Equal(t, token.ID, tok.Type)
	require.Equal(t, "abc", tok.Text)
	l.Match(token.ID)
	invalid := l.Token()
	require.Equal(t, token.INVALID, invalid.Type)
}

func TestEOFIsTerminal(t *testing.T) {
	l := New(NewSliceSource(nil), config.Default(), nil)
	require.Equal(t, token.EOF, l.Token().Type)
	require.Equal(t, token.EOF, l.Token().Type)
}
