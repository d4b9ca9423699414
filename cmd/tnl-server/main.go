// Command tnl-server runs the tcpnetlock lock registry server. Grounded on
// tcpnetlock/cli/tnl_server.py (bind, then serve until killed) and ws_poc's
// cmd/single/main.go (flag parsing, automaxprocs, structured startup log).
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/hgdeoro/tcpnetlock/internal/config"
	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
	"github.com/hgdeoro/tcpnetlock/internal/logging"
)

const (
	errServerBind       = 2
	errHandlingRequests = 3
)

func main() {
	listen := flag.String("listen", "", "address to listen on (overrides TCPNETLOCK_HOST)")
	port := flag.Int("port", 0, "port to listen on (overrides TCPNETLOCK_PORT)")
	debug := flag.Bool("debug", false, "enable debug logging (overrides TCPNETLOCK_LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(errServerBind)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.ZerologLevel(), cfg.LogFormat)
	logger.Info().
		Str("listen", cfg.Listen).
		Int("port", cfg.Port).
		Dur("reaper_interval", cfg.ReaperInterval).
		Dur("reaper_min_age", cfg.ReaperMinAge).
		Msg("starting tcpnetlock server")

	srv := lockserver.NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to bind server")
		os.Exit(errServerBind)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("signal received, shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
		os.Exit(errHandlingRequests)
	}
}
