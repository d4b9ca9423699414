package lockserver

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a single named lock: a non-reentrant mutex whose ownership is
// the lease, plus the bookkeeping a holder or the reaper needs. Its name
// is assigned once, on first Update, and is never reassigned afterwards.
//
// sync.Mutex.TryLock gives exactly the "non-blocking acquire" contract
// spec.md §4.3 asks for, the same way Python's threading.Lock().acquire
// (blocking=False) does for the original server — no packed-state-word
// mutex (cf. the pack's own dijkstracula/go-ilock, whose lock states are
// blocking-only) is needed here since an Entry only ever has one state:
// held or not.
//
// name/holderID/lastUpdateUnixNano are written only while mu is held (by
// the writer), but are read by the reaper without taking mu — so they are
// held in atomic.Value/atomic.Int64 rather than plain fields, even though
// the reaper only ever treats them as hints (IsLocked, Age), never as an
// authoritative basis for mutation.
type Entry struct {
	mu sync.Mutex

	name               atomic.Value // string
	holderID           atomic.Value // string
	lastUpdateUnixNano atomic.Int64
}

// TryAcquire attempts to claim the entry's mutex without blocking.
func (e *Entry) TryAcquire() bool {
	return e.mu.TryLock()
}

// Update records the holder's identity and refreshes the last-update
// timestamp. Precondition: the caller holds the mutex (just succeeded at
// TryAcquire). The name is fixed on first call; a later call naming a
// different lock would be a programmer error, since one Entry is only
// ever referenced under one registry key.
func (e *Entry) Update(name, holderID string) {
	if existing, ok := e.name.Load().(string); !ok || existing == "" {
		e.name.Store(name)
	} else if existing != name {
		panic("lockserver: entry name reassigned: " + existing + " -> " + name)
	}
	e.holderID.Store(holderID)
	e.lastUpdateUnixNano.Store(time.Now().UnixNano())
}

// Release returns the mutex. Precondition: the caller holds it.
func (e *Entry) Release() {
	e.mu.Unlock()
}

// IsLocked is a snapshot hint used only by the reaper: a true reading may
// be stale by the time it's acted on (the holder may release immediately
// after), and a false reading is only ever acted upon by attempting
// TryAcquire, never trusted on its own.
func (e *Entry) IsLocked() bool {
	if e.mu.TryLock() {
		e.mu.Unlock()
		return false
	}
	return true
}

// Age returns how long it has been since the last Update.
func (e *Entry) Age() time.Duration {
	last := e.lastUpdateUnixNano.Load()
	if last == 0 {
		return 0
	}
	return time.Since(time.Unix(0, last))
}

// Name and HolderID are read-only observations for logging/diagnostics.
func (e *Entry) Name() string {
	name, _ := e.name.Load().(string)
	return name
}

func (e *Entry) HolderID() string {
	id, _ := e.holderID.Load().(string)
	return id
}
