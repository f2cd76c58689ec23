package listeners

import (
	"sync"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol"
)

// ListAssembler turns First..Last list entries into complete lists. Entries
// must arrive in wire order; the dispatcher never reorders them.
//
// First drops any partial list. Empty yields an empty list and ignores the
// entry's fields. Entries flagged Remove are not collected.
type ListAssembler[T any] struct {
	mu      sync.Mutex
	pending []T
}

// Add feeds one entry and returns the completed list when flags close it.
func (a *ListAssembler[T]) Add(flags protocol.ListFlags, item T) ([]T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if flags.Empty() {
		a.pending = nil
		return []T{}, true
	}
	if flags.Has(protocol.ListFirst) {
		a.pending = nil
	}
	if !flags.Has(protocol.ListRemove) {
		a.pending = append(a.pending, item)
	}
	if !flags.Last() {
		return nil, false
	}
	out := a.pending
	if out == nil {
		out = []T{}
	}
	a.pending = nil
	return out, true
}

// Pending is the number of entries in the list being assembled.
func (a *ListAssembler[T]) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
