package reporter

// EventKind distinguishes the two advisory events a parse session can
// report through a Sink, mirroring the original scanner's PARSE_EVENT_FAIL
// / PARSE_EVENT_EOF callback contract (lang/lex.h, lang/parse.c) rather
// than go/scanner's single ErrorHandler func: EOF is a distinct,
// non-error event an embedder may want to observe even on a clean
// parse.
type EventKind int

const (
	EventFail EventKind = iota
	EventEOF
)

// Event is one occurrence reported through a Sink. For EventFail, Code,
// Line and Col describe the failure; for EventEOF, Line/Col mark where
// the input ran out and Code is unused.
type Event struct {
	Kind EventKind
	Code Code
	Line int
	Col  int
}

// Sink receives advisory parse events alongside the error a parser
// function returns. It exists so an embedder can observe FAIL/EOF events
// as they happen — e.g. for an editor's live diagnostics — without
// changing the parser's primary error-return contract. A nil Sink is
// valid; Report on a nil Sink is a no-op.
type Sink interface {
	Report(Event)
}

// Func adapts a plain function to the Sink interface, in the manner of
// http.HandlerFunc.
type Func func(Event)

func (f Func) Report(e Event) {
	if f != nil {
		f(e)
	}
}

// Report sends e to s if s is non-nil. Parser code should call this
// helper rather than invoking s.Report directly so a nil Sink never
// needs special-casing at every call site.
func Report(s Sink, e Event) {
	if s != nil {
		s.Report(e)
	}
}

// Collector is a Sink that simply remembers every Event it receives, for
// tests and for embedders that want a post-hoc summary rather than a live
// callback.
type Collector struct {
	Events []Event
}

func (c *Collector) Report(e Event) {
	c.Events = append(c.Events, e)
}
