package lockserver

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// connLimiter is a per-remote-IP token-bucket admission guard on the
// listener's accept loop. Trimmed down from
// ws_poc/internal/shared/limits/connection_rate_limiter.go, which pairs a
// per-IP limiter with a second, global one; a registry-wide cap has no
// counterpart in spec.md (there's no notion of "too many locks"), so only
// the per-IP half is kept here, guarding against a single misbehaving
// client flooding reconnect attempts.
type connLimiter struct {
	mu       sync.Mutex
	burst    int
	perSec   float64
	limiters map[string]*ipEntry
	ttl      time.Duration
}

type ipEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newConnLimiter(burst int, perSec float64) *connLimiter {
	return &connLimiter{
		burst:    burst,
		perSec:   perSec,
		limiters: make(map[string]*ipEntry),
		ttl:      5 * time.Minute,
	}
}

// Allow reports whether a new connection from addr should be admitted. A
// disabled limiter (perSec <= 0) always admits.
func (c *connLimiter) Allow(addr net.Addr) bool {
	if c.perSec <= 0 {
		return true
	}
	ip := hostOf(addr)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictStaleLocked()

	e, ok := c.limiters[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(rate.Limit(c.perSec), c.burst)}
		c.limiters[ip] = e
	}
	e.lastAccess = time.Now()
	return e.limiter.Allow()
}

func (c *connLimiter) evictStaleLocked() {
	cutoff := time.Now().Add(-c.ttl)
	for ip, e := range c.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(c.limiters, ip)
		}
	}
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
