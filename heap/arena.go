// Package heap provides the scoped allocator shared by the lexer and the
// AST node pool. On a memory-constrained embedded target the heap handle
// is a real bump/arena allocator; in Go, the runtime's own garbage
// collector already owns physical allocation, so Arena's job narrows to
// the part that still matters to an embedder — counting live allocations
// so a caller can detect leaks and enforce a node budget — grounded on
// the linear-memory accounting style of tetratelabs-wazero's instance
// pools, adapted from byte pages to node/allocation counts.
package heap

import (
	"errors"
	"fmt"
)

// ErrNotEnoughMemory is returned by Alloc once the arena's MaxNodes budget
// (if any) is exhausted. It is the Go analogue of a real allocator
// returning null, kept as a distinct sentinel so callers can match it with
// errors.Is regardless of how it's wrapped on the way out.
var ErrNotEnoughMemory = errors.New("heap: not enough memory")

// Handle is an opaque token identifying one allocation made through an
// Arena. Its zero value never refers to a live allocation.
type Handle uint64

// Arena is a scoped, single-threaded allocation counter. A lexer session
// and the AST it produces share one Arena; Close asserts every allocation
// made through it has since been released, surfacing leaks that would
// otherwise only show up as a real allocator running out of room.
type Arena struct {
	maxNodes int // 0 means unbounded
	next     Handle
	live     map[Handle]struct{}
	total    uint64
}

// New creates an Arena. maxNodes bounds the number of simultaneously live
// allocations; 0 means unbounded.
func New(maxNodes int) *Arena {
	return &Arena{
		maxNodes: maxNodes,
		live:     make(map[Handle]struct{}),
	}
}

// Alloc records one new allocation and returns its handle, or
// ErrNotEnoughMemory if doing so would exceed maxNodes.
func (a *Arena) Alloc() (Handle, error) {
	if a.maxNodes > 0 && len(a.live) >= a.maxNodes {
		return 0, ErrNotEnoughMemory
	}
	a.next++
	h := a.next
	a.live[h] = struct{}{}
	a.total++
	return h, nil
}

// Release marks h as freed. Releasing an unknown or already-released
// handle is a no-op: free is optional, and may be a no-op in arena mode.
func (a *Arena) Release(h Handle) {
	delete(a.live, h)
}

// Stats reports the arena's current and lifetime allocation counts.
type Stats struct {
	Outstanding int
	Total       uint64
}

func (a *Arena) Stats() Stats {
	return Stats{Outstanding: len(a.live), Total: a.total}
}

// Close tears the arena down. It returns an error if any allocation is
// still outstanding, since every teardown path (including error returns)
// is expected to have released every node it allocated along the way.
func (a *Arena) Close() error {
	if len(a.live) != 0 {
		return errLeaked{outstanding: len(a.live)}
	}
	return nil
}

type errLeaked struct{ outstanding int }

func (e errLeaked) Error() string {
	return fmt.Sprintf("heap: arena closed with %d outstanding allocation(s)", e.outstanding)
}
