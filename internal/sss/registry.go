package sss

import (
	"sync"

	"github.com/OpenGG/save-slot-switch/internal/sss/swapper"
)

// Registry maps game ids to their swappers. Swappers are opened on first use
// and every call for one game runs under that game's own lock, so operations
// on different games may proceed in parallel while each swapper only ever
// sees one caller at a time.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	open    func(id string) (*swapper.Swapper, error)
}

type registryEntry struct {
	mu      sync.Mutex
	sw      *swapper.Swapper
	removed bool
}

// NewRegistry creates a Registry that opens swappers with open.
func NewRegistry(open func(id string) (*swapper.Swapper, error)) *Registry {
	return &Registry{entries: map[string]*registryEntry{}, open: open}
}

// Do runs fn with the swapper of id while holding its lock.
func (r *Registry) Do(id string, fn func(*swapper.Swapper) error) error {
	entry := r.lock(id)
	defer entry.mu.Unlock()
	if entry.sw == nil {
		sw, err := r.open(id)
		if err != nil {
			r.forget(id, entry)
			return err
		}
		entry.sw = sw
	}
	return fn(entry.sw)
}

// Replace runs fn under the lock of id without opening its swapper and caches
// the swapper fn returns. Returning nil forgets id entirely so the next Do
// reopens it. On error the cached swapper is left as it was.
func (r *Registry) Replace(id string, fn func() (*swapper.Swapper, error)) error {
	entry := r.lock(id)
	defer entry.mu.Unlock()
	sw, err := fn()
	if err != nil {
		return err
	}
	if sw == nil {
		r.forget(id, entry)
		return nil
	}
	entry.sw = sw
	return nil
}

// lock returns the live entry of id with its lock held. Callers that were
// waiting on an entry that was forgotten meanwhile retry with the current one.
func (r *Registry) lock(id string) *registryEntry {
	for {
		entry := r.entry(id)
		entry.mu.Lock()
		if !entry.removed {
			return entry
		}
		entry.mu.Unlock()
	}
}

// forget drops entry from the map. The caller holds entry.mu.
func (r *Registry) forget(id string, entry *registryEntry) {
	entry.sw = nil
	entry.removed = true
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[id] == entry {
		delete(r.entries, id)
	}
}

func (r *Registry) entry(id string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		entry = &registryEntry{}
		r.entries[id] = entry
	}
	return entry
}
