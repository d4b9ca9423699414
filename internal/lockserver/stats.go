package lockserver

import (
	"encoding/json"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is the JSON payload sent in response to .stats (spec.md §6). MaxRSS
// is an integer (bytes) on platforms gopsutil can read, or the literal
// string "n/a" otherwise — hence json.RawMessage rather than a typed field.
type Stats struct {
	LockCount            int             `json:"lock_count"`
	MaxRSS               json.RawMessage `json:"maxrss"`
	RequestsCount        int64           `json:"requests_count"`
	LockAcquiredCount    int64           `json:"lock_acquired_count"`
	LockNotAcquiredCount int64           `json:"lock_not_acquired_count"`
}

// CollectStats snapshots the registry size, counters, and process RSS.
// Grounded on ws_poc/server.go's collectMetrics, which reads
// process.NewProcess(pid).MemoryInfo().RSS on the same cadence, except
// here it's read on-demand per .stats request rather than polled.
func CollectStats(registry *Registry, counters *Counters) Stats {
	snap := counters.Snapshot()
	return Stats{
		LockCount:            registry.Len(),
		MaxRSS:               maxRSS(),
		RequestsCount:        snap.Requests,
		LockAcquiredCount:    snap.LocksGranted,
		LockNotAcquiredCount: snap.LocksRejected,
	}
}

func maxRSS() json.RawMessage {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return json.RawMessage(`"n/a"`)
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return json.RawMessage(`"n/a"`)
	}
	b, err := json.Marshal(mem.RSS)
	if err != nil {
		return json.RawMessage(`"n/a"`)
	}
	return b
}

// Encode returns the JSON form the .stats action sends after
// "stats-coming,".
func (s Stats) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
