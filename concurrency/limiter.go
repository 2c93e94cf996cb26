// Package concurrency bounds how many independent parse sessions an
// embedder runs at once. It governs only cross-session parallelism —
// each individual lexer/parser pairing, and the heap.Arena it owns,
// stays strictly single-threaded.
package concurrency

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Limiter wraps a weighted semaphore sized at construction, grounded on
// compiler.go's MaxParallelism/semaphore.Weighted pairing: zero or
// negative n falls back to GOMAXPROCS capped by NumCPU, the same
// default compiler.go derives when no explicit parallelism is set.
type Limiter struct {
	sem *semaphore.Weighted
	n   int
}

// New returns a Limiter admitting at most n concurrent sessions. n <= 0
// is resolved to min(GOMAXPROCS(-1), NumCPU()).
func New(n int) *Limiter {
	if n <= 0 {
		n = runtime.GOMAXPROCS(-1)
		if cpus := runtime.NumCPU(); n > cpus {
			n = cpus
		}
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), n: n}
}

// Limit reports the configured admission bound.
func (l *Limiter) Limit() int {
	return l.n
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release frees one previously acquired slot.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Run acquires a slot, invokes fn, and releases the slot on return. It
// is the common case: parse one independent source under the limiter's
// bound without the caller managing Acquire/Release by hand.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
