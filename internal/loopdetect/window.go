// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tether Contributors

package loopdetect

// DefaultWindowSize is the number of recent calls analyzed when no window
// size is configured.
const DefaultWindowSize = 10

// Window is a fixed-capacity, insertion-ordered buffer of recent signatures.
// Pushing onto a full window evicts the oldest entry.
type Window struct {
	capacity int
	entries  []Signature
}

// NewWindow creates a Window with the given capacity, falling back to
// DefaultWindowSize when capacity is not positive.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		capacity: capacity,
		entries:  make([]Signature, 0, capacity),
	}
}

// Push appends a signature, evicting the oldest entry when full.
func (w *Window) Push(sig Signature) {
	if len(w.entries) == w.capacity {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:len(w.entries)-1]
	}
	w.entries = append(w.entries, sig)
}

// Entries returns the window contents oldest-first. The returned slice is a
// copy.
func (w *Window) Entries() []Signature {
	return append([]Signature(nil), w.entries...)
}

// Len returns the number of buffered signatures.
func (w *Window) Len() int {
	return len(w.entries)
}

// Capacity returns the configured window capacity.
func (w *Window) Capacity() int {
	return w.capacity
}
