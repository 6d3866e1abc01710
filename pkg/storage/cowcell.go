package storage

import "sync/atomic"

// cowPayload is the value shared by one or more CowCell handles, plus the
// refcount that Share increments and that MutableGet decrements when it
// forks a handle away onto its own copy. Go has no destructors, so the
// count is best-effort: it only ever needs to distinguish "exactly one
// owner" (safe to mutate in place) from "possibly shared" (must clone
// before mutating). A handle copied by plain assignment instead of Share
// is not counted.
type cowPayload[T any] struct {
	value T
	refs  atomic.Int32
}

// CowCell is a reference-counted copy-on-write cell over a payload of type
// T. Copies made with Share are O(1) and never duplicate the payload;
// MutableGet forks the payload the first time a sharer asks to mutate it.
type CowCell[T any] struct {
	p *cowPayload[T]
}

// NewCowCell wraps value in a cell with a refcount of 1. It takes
// ownership of the value passed in (callers should not mutate it through
// another reference afterwards).
func NewCowCell[T any](value T) CowCell[T] {
	p := &cowPayload[T]{value: value}
	p.refs.Store(1)
	return CowCell[T]{p: p}
}

// Share returns a new handle to the same payload, incrementing the
// refcount. O(1), never copies the underlying value.
func (c CowCell[T]) Share() CowCell[T] {
	c.p.refs.Add(1)
	return CowCell[T]{p: c.p}
}

// Get returns a read view of the payload without breaking sharing.
func (c CowCell[T]) Get() *T {
	return &c.p.value
}

// RefCount exposes the current number of sharers.
func (c CowCell[T]) RefCount() int {
	return int(c.p.refs.Load())
}

// MutableGet returns a pointer suitable for mutation. If the cell is
// currently shared, the payload is cloned via clone and this handle
// becomes the sole owner of the copy; otherwise the existing payload is
// returned unchanged. clone must return a value independent of its input.
func (c *CowCell[T]) MutableGet(clone func(T) T) *T {
	if c.p.refs.Load() > 1 {
		c.p.refs.Add(-1)
		newPayload := &cowPayload[T]{value: clone(c.p.value)}
		newPayload.refs.Store(1)
		c.p = newPayload
	}
	return &c.p.value
}
