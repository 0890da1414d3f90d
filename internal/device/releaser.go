package device

import (
	"log/slog"
	"sync"
)

type release struct {
	name string
	fn   func()
}

// Releaser records acquired resources and frees them exactly once, most
// recent first.
type Releaser struct {
	mu      sync.Mutex
	entries []release
}

// Push records fn as the release action for name.
func (r *Releaser) Push(name string, fn func()) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, release{name: name, fn: fn})
}

// Len reports the number of pending releases.
func (r *Releaser) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Release runs every pending action in reverse acquisition order. Actions
// pushed after Release run on the next call.
func (r *Releaser) Release() {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].fn()
		slog.Debug("Released device resource", "resource", entries[i].name)
	}
}
