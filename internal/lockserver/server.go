package lockserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hgdeoro/tcpnetlock/internal/config"
)

// Server owns the TCP listener, the lock registry, the reaper, and the
// optional Prometheus endpoint. Grounded on ws_poc's Server/NewServer/
// Start/Shutdown shape (ws/server.go), trimmed to what a lock registry
// needs: no worker pool, no broadcast fan-out, no upstream broker — just
// one goroutine per accepted connection plus the reaper's background loop.
type Server struct {
	cfg    *config.ServerConfig
	logger zerolog.Logger

	listener    net.Listener
	metricsSrv  *http.Server
	connLimiter *connLimiter

	registry *Registry
	counters *Counters
	metrics  *Metrics
	reaper   *Reaper
	handler  *Handler

	ctx    context.Context
	cancel context.CancelFunc
	// wg tracks only the reaper, accept loop, and metrics server — the
	// goroutines Shutdown must see finish before it returns. Per-connection
	// handler goroutines are deliberately NOT tracked here: spec.md §5 says
	// server_shutdown does not wait for lease-holding connections to drain,
	// since their workers are expected to be killed on process exit rather
	// than joined.
	wg           sync.WaitGroup
	connWG       sync.WaitGroup
	shuttingDown atomic.Bool
}

// NewServer wires the registry, counters, metrics, reaper, and handler
// together from cfg. It does not start listening; call Start for that.
func NewServer(cfg *config.ServerConfig, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry()
	counters := &Counters{}
	metrics := NewMetrics(func() float64 { return float64(registry.Len()) })
	reaper := NewReaper(registry, metrics, logger, cfg.ReaperInterval, cfg.ReaperMinAge)

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		connLimiter: newConnLimiter(cfg.ConnRateBurst, cfg.ConnRatePerSec),
		registry:    registry,
		counters:    counters,
		metrics:     metrics,
		reaper:      reaper,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.handler = NewHandler(registry, counters, metrics, logger, s.triggerShutdown)
	return s
}

// Start binds the listener, launches the reaper and accept loop, and (if
// configured) the metrics HTTP server. It returns once the listener is
// bound; the accept loop and reaper run in background goroutines.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Listen, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.logger.Info().Str("addr", addr).Msg("tcpnetlock server listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reaper.Run(s.ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.metricsSrv = &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.logger.Info().Str("addr", s.cfg.MetricsAddr).Msg("metrics endpoint listening")
			if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	return nil
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if s.shuttingDown.Load() {
				return
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}

		if !s.connLimiter.Allow(nc.RemoteAddr()) {
			s.metrics.ConnsRejected.Inc()
			s.logger.Debug().Str("remote", nc.RemoteAddr().String()).Msg("connection rejected by rate limiter")
			nc.Close()
			continue
		}

		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			s.handler.Serve(nc)
		}()
	}
}

// triggerShutdown is the Handler's onShutdown callback for a loopback
// .server-shutdown request; it runs Shutdown in its own goroutine so the
// requesting connection's handler can finish writing its response first.
func (s *Server) triggerShutdown() {
	go s.Shutdown()
}

// Shutdown stops accepting new connections, closes the metrics server (if
// any), and cancels the reaper. It does not wait for in-flight connection
// handlers: spec.md §5 says a lease-holding connection is expected to be
// killed on process exit, not drained. It is safe to call more than once.
func (s *Server) Shutdown() error {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return nil // already shutting down
	}

	s.logger.Info().Msg("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.metricsSrv.Shutdown(ctx)
	}

	s.cancel()
	s.wg.Wait()

	s.logger.Info().Msg("shutdown complete")
	return nil
}

// Addr returns the bound listener address. Only meaningful after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
