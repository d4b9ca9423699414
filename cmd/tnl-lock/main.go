// Command tnl-lock acquires a named lock and holds it until killed,
// either sending periodic keepalives or periodically probing the
// connection for an unexpected server-side close. Grounded on
// tcpnetlock/cli/tnl_client.py.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hgdeoro/tcpnetlock/internal/client"
	"github.com/hgdeoro/tcpnetlock/internal/config"
)

const (
	errConnectionRefused            = 2
	errConnectionFailed             = 3
	errUnknown                      = 4
	errDisconnectedWhileHoldingLock = 122
	errLockNotGranted               = 123
)

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errConnectionFailed)
	}

	host := flag.String("host", cfg.Host, "server host")
	port := flag.Int("port", cfg.Port, "server port")
	clientID := flag.String("client-id", cfg.ClientID, "client id to report to the server")
	keepAlive := flag.Bool("keep-alive", false, "send periodic keepalives instead of passively probing the connection")
	keepAliveSecs := flag.Int("keep-alive-secs", 15, "seconds between keepalives (with --keep-alive; connection checks otherwise run every 5 seconds)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tnl-lock [flags] <lock-name>")
		os.Exit(errConnectionFailed)
	}
	lockName := flag.Arg(0)

	c, err := client.New(*host, *port, *clientID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errConnectionFailed)
	}

	if err := c.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errConnectionRefused)
	}
	defer c.Close()

	granted, err := c.Lock(lockName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errUnknown)
	}
	if !granted {
		fmt.Fprintf(os.Stderr, "ERROR: lock %q not granted by server\n", lockName)
		os.Exit(errLockNotGranted)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	interval := 5 * time.Second
	if *keepAlive {
		interval = time.Duration(*keepAliveSecs) * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			if err := c.Release(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(errUnknown)
			}
			return
		case <-ticker.C:
			if *keepAlive {
				if err := c.Keepalive(); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(errDisconnectedWhileHoldingLock)
				}
			} else {
				if err := c.CheckConnection(); err != nil {
					fmt.Fprintf(os.Stderr, "ERROR: unexpected disconnection while holding lock %q. Server killed?\n", lockName)
					os.Exit(errDisconnectedWhileHoldingLock)
				}
			}
		}
	}
}
