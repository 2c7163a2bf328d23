// Package registry maps student identifiers to their live connection.
//
// A single mutex guards the map.  No method holds the lock across I/O:
// CloseAll takes a snapshot, clears the map, and closes handles after
// releasing it.
package registry

import (
	"sort"
	"sync"
)

// Handle is the registry's view of a connection.  The registry only
// references handles; the connection owns its socket.
type Handle interface {
	comparable
	ID() string
	Close() error
}

// Registry is safe for concurrent use.
type Registry[H Handle] struct {
	mu      sync.RWMutex
	entries map[string]H
}

// New returns an empty registry.
func New[H Handle]() *Registry[H] {
	return &Registry[H]{entries: make(map[string]H)}
}

// Register stores h under id, replacing any existing entry.  A
// replaced handle is returned with ok set so the caller can close it.
func (r *Registry[H]) Register(id string, h H) (replaced H, ok bool) {
	return r.Swap(id, h, nil)
}

// Swap is Register with a hook: onReplace, when non-nil, runs on the
// replaced handle before the lock is released, so no UnregisterIf for
// the old handle can observe the new entry without the hook's effect.
// onReplace must not block or do I/O.
func (r *Registry[H]) Swap(id string, h H, onReplace func(prev H)) (replaced H, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, found := r.entries[id]
	r.entries[id] = h
	if !found || prev == h {
		return replaced, false
	}
	if onReplace != nil {
		onReplace(prev)
	}
	return prev, true
}

// Unregister removes id.  It is a no-op when id is absent.
func (r *Registry[H]) Unregister(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// UnregisterIf removes id only while it still maps to h, so a
// connection that has been replaced cannot evict its successor.
func (r *Registry[H]) UnregisterIf(id string, h H) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[id]; ok && cur == h {
		delete(r.entries, id)
		return true
	}
	return false
}

// Lookup returns the handle registered for id.
func (r *Registry[H]) Lookup(id string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[id]
	return h, ok
}

// Snapshot returns a point-in-time copy of every entry.
func (r *Registry[H]) Snapshot() map[string]H {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]H, len(r.entries))
	for id, h := range r.entries {
		out[id] = h
	}
	return out
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry[H]) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered identifiers.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CloseAll empties the registry and closes every handle that was in
// it.  Close errors are collected per identifier.
func (r *Registry[H]) CloseAll() map[string]error {
	r.mu.Lock()
	handles := r.entries
	r.entries = make(map[string]H)
	r.mu.Unlock()

	errs := make(map[string]error)
	for id, h := range handles {
		if err := h.Close(); err != nil {
			errs[id] = err
		}
	}
	return errs
}
