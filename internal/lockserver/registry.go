package lockserver

import "sync"

// Registry maps lock names to Entry instances. All mutation and lookup of
// the map itself is linearized by a single registry-wide mutex distinct
// from any Entry's own mutex. Connection handlers never hold both at once;
// the reaper takes the registry mutex (in Delete) while holding an entry's
// mutex, but nothing ever blocks on an Entry's mutex while holding the
// registry mutex (entries are only claimed via TryAcquire), so there is no
// lock-ordering hazard between them.
//
// Grounded on the root server.py's GLOBAL_LOCK-guarded collections.defaultdict(Lock).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// GetOrCreate returns the Entry for name, creating a fresh, unlocked one
// if absent. It never blocks on an Entry's mutex.
func (r *Registry) GetOrCreate(name string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &Entry{}
		r.entries[name] = e
	}
	return e
}

// Delete removes name from the registry. The caller must already hold
// the entry's mutex (via a successful TryAcquire) to prove it is
// reclaimable; Delete does not itself touch the entry's mutex.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// SnapshotKeys returns a copy of the currently registered lock names.
func (r *Registry) SnapshotKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Lookup returns the entry for name without creating one, and whether it
// was present. Used by the reaper, which only ever acts on names it
// already saw in a snapshot.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	return e, ok
}

// Len returns the current number of registered entries, for stats.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
