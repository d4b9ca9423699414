package lockserver

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/hgdeoro/tcpnetlock/internal/logging"
	"github.com/hgdeoro/tcpnetlock/internal/protocol"
)

// Handler dispatches one accepted connection through the action table
// described by spec.md §4.6-§4.7: a single blocking read for the first
// line, dispatch by action name, and — for a granted lock — the inner
// release/keepalive/invalid loop. Re-expressed per spec.md §9 as a plain
// switch over a fixed set of action names rather than a class hierarchy
// per action, matching the idea (if not the syntax) of "a mapping from
// action name to a function with uniform signature".
type Handler struct {
	registry   *Registry
	counters   *Counters
	metrics    *Metrics
	logger     zerolog.Logger
	onShutdown func()
}

// NewHandler constructs a Handler. onShutdown is invoked (once, from the
// connection's own goroutine) when a loopback peer sends .server-shutdown.
func NewHandler(registry *Registry, counters *Counters, metrics *Metrics, logger zerolog.Logger, onShutdown func()) *Handler {
	return &Handler{registry: registry, counters: counters, metrics: metrics, logger: logger, onShutdown: onShutdown}
}

// Serve runs the full lifecycle of one accepted connection: first action,
// dispatch, and (for lock) the post-grant inner loop, ending with the
// socket closed exactly once.
func (h *Handler) Serve(nc net.Conn) {
	conn := protocol.NewConn(nc)
	connLogger := logging.WithConnID(h.logger)

	h.counters.Requests.Add(1)
	h.metrics.Requests.Inc()

	line, _, err := conn.ReadLine(0)
	if err != nil {
		if errors.Is(err, protocol.ErrLineTooLong) {
			connLogger.Warn().Msg("oversized request line")
			_ = conn.Send(RespBadRequest)
			nc.Close()
			return
		}
		nc.Close()
		if !errors.Is(err, protocol.ErrPeerDisconnected) {
			connLogger.Warn().Err(err).Msg("error reading initial request")
		} else {
			connLogger.Debug().Msg("peer disconnected before sending a request")
		}
		return
	}

	action := protocol.FromLine(line)
	if !action.IsValid() {
		connLogger.Warn().Str("line", line).Msg("invalid request")
		_ = conn.Send(RespBadRequest)
		nc.Close()
		return
	}

	switch action.Name {
	case ActionPing:
		_ = conn.Send(RespPong)
		nc.Close()
	case ActionStats:
		h.respondStats(conn)
		nc.Close()
	case ActionServerShutdown:
		h.respondShutdown(conn, nc, connLogger)
		nc.Close()
	case ActionLock:
		h.handleLock(conn, nc, action, connLogger)
	default:
		connLogger.Warn().Str("action", action.Name).Msg("unknown action")
		_ = conn.Send(RespBadAction)
		nc.Close()
	}
}

func (h *Handler) respondStats(conn *protocol.Conn) {
	stats := CollectStats(h.registry, h.counters)
	encoded, err := stats.Encode()
	if err != nil {
		_ = conn.Send(RespBadRequest)
		return
	}
	_ = conn.Send(RespStatsComing + "," + encoded)
}

// respondShutdown implements the Open Question decision from spec.md §9:
// .server-shutdown has no authentication scheme, so a bare loopback check
// stands in for "at minimum a loopback-peer check". Non-loopback callers
// get bad-action instead of triggering shutdown.
func (h *Handler) respondShutdown(conn *protocol.Conn, nc net.Conn, logger zerolog.Logger) {
	if !isLoopback(nc.RemoteAddr()) {
		logger.Warn().Str("remote", nc.RemoteAddr().String()).Msg("rejected .server-shutdown from non-loopback peer")
		_ = conn.Send(RespBadAction)
		return
	}
	_ = conn.Send(RespShuttingDown)
	logger.Info().Msg("shutdown requested")
	if h.onShutdown != nil {
		h.onShutdown()
	}
}

func (h *Handler) handleLock(conn *protocol.Conn, nc net.Conn, action protocol.Action, logger zerolog.Logger) {
	name, _ := action.Get("name")
	if !ValidNameRe.MatchString(name) {
		logger.Warn().Str("name", name).Msg("invalid lock name")
		_ = conn.Send(RespErr + ",invalid lock name")
		nc.Close()
		return
	}
	clientID, _ := action.Get("client-id")

	entry := h.registry.GetOrCreate(name)
	if !entry.TryAcquire() {
		h.counters.LocksRejected.Add(1)
		h.metrics.LocksRejected.Inc()
		logger.Info().Str("name", name).Msg("lock not granted")
		_ = conn.Send(RespNotGranted)
		nc.Close()
		return
	}

	h.counters.LocksGranted.Add(1)
	h.metrics.LocksGranted.Inc()
	entry.Update(name, clientID)
	logger.Info().Str("name", name).Str("client_id", clientID).Msg("lock granted")

	if err := conn.Send(RespOK); err != nil {
		nc.Close()
		entry.Release()
		return
	}

	h.innerLoop(conn, entry, logger)

	// Two-phase release (spec.md §9): respond (already done inside
	// innerLoop for an explicit release), close the socket, THEN release
	// the mutex. A racing acquirer may briefly observe not-granted
	// immediately after this entry's released response.
	nc.Close()
	entry.Release()
}

func (h *Handler) innerLoop(conn *protocol.Conn, entry *Entry, logger zerolog.Logger) {
	for {
		line, ok, err := conn.ReadLine(1 * time.Second)
		if err != nil {
			if !errors.Is(err, protocol.ErrPeerDisconnected) {
				logger.Warn().Err(err).Msg("error in inner loop")
			} else {
				logger.Debug().Str("name", entry.Name()).Msg("peer disconnected while holding lease")
			}
			return
		}
		if !ok {
			// No line within the timeout: implicit liveness probing.
			// A closed socket surfaces as ErrPeerDisconnected on the
			// next read cycle.
			continue
		}

		inner := protocol.FromLine(line)
		switch inner.Name {
		case ActionRelease:
			_ = conn.Send(RespReleased)
			logger.Info().Str("name", entry.Name()).Msg("lock released")
			return
		case ActionKeepalive:
			_ = conn.Send(RespAlive)
		default:
			// Invalid inner action: reply bad-action and keep the
			// lease (spec.md §9 prefers the observable response over
			// silently logging and ignoring).
			_ = conn.Send(RespBadAction)
		}
	}
}

func isLoopback(addr net.Addr) bool {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
