// Package client is the tcpnetlock client library: the counterpart to
// internal/lockserver that dials out instead of accepting, and speaks the
// same wire protocol from the other side. Grounded on
// tcpnetlock/client/client.py + client/action.py: a thin ClientAction
// wrapper (send one line, read and validate one response line) used for
// every action except lock, which also carries the name/client-id params.
package client

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
	"github.com/hgdeoro/tcpnetlock/internal/protocol"
)

// ErrUnexpectedResponse is returned when the server's response line isn't
// one of the action's valid responses — a protocol-level mismatch, not a
// recoverable condition (mirrors client/action.py's assert).
var ErrUnexpectedResponse = errors.New("client: unexpected response from server")

// ErrInvalidID is returned when a lock name or client id fails the shared
// ^[A-Za-z0-9_-]+$ character class before ever reaching the wire.
var ErrInvalidID = errors.New("client: invalid lock name or client id")

// Client holds one TCP connection to a tcpnetlock server and the lease
// state (if any) acquired over it.
type Client struct {
	host     string
	port     int
	clientID string

	conn     *protocol.Conn
	acquired bool
}

// New constructs a Client. clientID may be empty; if non-empty it must
// match ^[A-Za-z0-9_-]+$.
func New(host string, port int, clientID string) (*Client, error) {
	if clientID != "" && !lockserver.ValidNameRe.MatchString(clientID) {
		return nil, fmt.Errorf("%w: client id %q", ErrInvalidID, clientID)
	}
	return &Client{host: host, port: port, clientID: clientID}, nil
}

// Connect dials the server. Any previous connection is left untouched; call
// Close first if reconnecting.
func (c *Client) Connect() error {
	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", addr, err)
	}
	c.conn = protocol.NewConn(nc)
	return nil
}

// Close closes the underlying socket. If a lock is currently held, the
// server releases it as a side effect of the disconnect.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Lock requests name, with the client's id attached if one was given.
// It reports whether the lock was granted; `err` (bad lock name) and
// not-granted are both "not acquired", the Go analogue of acquired==false.
func (c *Client) Lock(name string) (bool, error) {
	if !lockserver.ValidNameRe.MatchString(name) {
		return false, fmt.Errorf("%w: lock name %q", ErrInvalidID, name)
	}

	msg := lockserver.ActionLock + ",name:" + name
	if c.clientID != "" {
		msg += ",client-id:" + c.clientID
	}

	resp, err := c.roundTrip(msg, lockserver.RespOK, lockserver.RespNotGranted, lockserver.RespErr)
	if err != nil {
		return false, err
	}
	c.acquired = resp == lockserver.RespOK
	return c.acquired, nil
}

// Acquired reports the outcome of the most recent Lock call.
func (c *Client) Acquired() bool {
	return c.acquired
}

// Release returns the held lease. The server closes the connection as part
// of handling it.
func (c *Client) Release() error {
	_, err := c.roundTrip(lockserver.ActionRelease, lockserver.RespReleased)
	return err
}

// Keepalive is a no-op liveness ping sent while a lease is held; it does
// not extend anything server-side (a held lease never ages out), it simply
// confirms the connection is still alive.
func (c *Client) Keepalive() error {
	_, err := c.roundTrip(lockserver.ActionKeepalive, lockserver.RespAlive)
	return err
}

// Ping is a bare liveness check, valid before any lock has been requested.
func (c *Client) Ping() error {
	_, err := c.roundTrip(lockserver.ActionPing, lockserver.RespPong)
	return err
}

// ServerShutdown asks the server to shut down. Only accepted from a
// loopback peer; a non-loopback caller gets bad-action back, which
// surfaces here as ErrUnexpectedResponse.
func (c *Client) ServerShutdown() error {
	_, err := c.roundTrip(lockserver.ActionServerShutdown, lockserver.RespShuttingDown)
	return err
}

// Stats fetches the server's .stats snapshot as the raw JSON payload
// (everything after "stats-coming,").
func (c *Client) Stats() (string, error) {
	if err := c.conn.Send(lockserver.ActionStats); err != nil {
		return "", err
	}
	line, _, err := c.conn.ReadLine(0)
	if err != nil {
		return "", err
	}
	payload, ok := strings.CutPrefix(line, lockserver.RespStatsComing+",")
	if !ok {
		return "", fmt.Errorf("%w: got %q", ErrUnexpectedResponse, line)
	}
	return payload, nil
}

// CheckConnection probes the socket for a peer-initiated close without
// blocking for a full line; used by tnl-lock when it is not sending
// keepalives, to detect a dead connection without a round trip.
func (c *Client) CheckConnection() error {
	return c.conn.CheckConnection()
}

func (c *Client) roundTrip(message string, validResponses ...string) (string, error) {
	if err := c.conn.Send(message); err != nil {
		return "", err
	}
	line, _, err := c.conn.ReadLine(0)
	if err != nil {
		return "", err
	}
	code, _, _ := strings.Cut(line, ",")
	for _, v := range validResponses {
		if code == v {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: got %q, expected one of %v", ErrUnexpectedResponse, line, validResponses)
}

// KeepaliveLoop runs Keepalive on interval until stop is closed, logging
// nothing itself — callers (the holder CLIs) own logging and error
// handling. It returns the first error encountered, or nil if stop fired
// first.
func (c *Client) KeepaliveLoop(interval time.Duration, stop <-chan struct{}) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if err := c.Keepalive(); err != nil {
				return err
			}
		}
	}
}
