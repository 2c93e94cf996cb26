package lexer

import (
	"bufio"
	"io"
)

// SliceSource is a LineSource over a pre-split slice of lines, useful for
// tests and for embedders who already have the whole program in memory.
type SliceSource struct {
	lines []string
	next  int
}

func NewSliceSource(lines []string) *SliceSource {
	return &SliceSource{lines: lines}
}

func (s *SliceSource) MoreLine() ([]byte, bool) {
	if s.next >= len(s.lines) {
		return nil, false
	}
	line := s.lines[s.next]
	s.next++
	return []byte(line), true
}

// ReaderSource adapts an io.Reader to LineSource using bufio.Scanner,
// for embedders streaming source from a file or socket rather than
// holding it entirely in memory.
type ReaderSource struct {
	scanner *bufio.Scanner
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

func (s *ReaderSource) MoreLine() ([]byte, bool) {
	if !s.scanner.Scan() {
		return nil, false
	}
	return s.scanner.Bytes(), true
}
