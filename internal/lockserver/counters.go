package lockserver

import "sync/atomic"

// Counters holds the process-wide monotonic request/grant/reject totals
// from spec.md §3. Reads (for .stats) are snapshots, not linearized with
// the writes that produced them.
type Counters struct {
	Requests      atomic.Int64
	LocksGranted  atomic.Int64
	LocksRejected atomic.Int64
}

// Snapshot is a point-in-time read of all three counters.
type Snapshot struct {
	Requests      int64
	LocksGranted  int64
	LocksRejected int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Requests:      c.Requests.Load(),
		LocksGranted:  c.LocksGranted.Load(),
		LocksRejected: c.LocksRejected.Load(),
	}
}
