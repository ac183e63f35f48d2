// Package resource implements the integer-keyed arena that lets a guest
// hold an opaque handle to a host-owned object without ever sharing a
// pointer across the host/guest boundary (spec §3 "Resource table").
package resource

import (
	"fmt"
	"sync"
)

// Handle is a guest-visible integer identifying a table slot.
type Handle uint32

// Table maps guest-visible handles to host-owned values. It is borrow-only
// from the guest's perspective: a guest Drop only releases the slot, it
// never destroys the underlying value, which the host may still be using
// elsewhere.
type Table struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]any
}

// NewTable returns an empty resource table.
func NewTable() *Table {
	return &Table{entries: make(map[Handle]any)}
}

// Push allocates a new handle for value and returns it.
func (t *Table) Push(value any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := t.next
	t.entries[h] = value
	return h
}

// Get returns the value at h, or an error if the handle is not present.
func (t *Table) Get(h Handle) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[h]
	if !ok {
		return nil, fmt.Errorf("resource: handle %d not present", h)
	}
	return v, nil
}

// Drop releases the slot for h. It does not touch the underlying value:
// the host retains ownership and may be sharing it with other holders
// (e.g. a reference-counted http-response-stream).
func (t *Table) Drop(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[h]; !ok {
		return fmt.Errorf("resource: handle %d not present", h)
	}
	delete(t.entries, h)
	return nil
}

// Len reports the number of live handles, for diagnostics and tests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
