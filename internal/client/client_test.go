package client_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgdeoro/tcpnetlock/internal/client"
	"github.com/hgdeoro/tcpnetlock/internal/config"
	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
)

func mustSplitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func newServer(t *testing.T) int {
	t.Helper()
	cfg := &config.ServerConfig{
		Listen:         "127.0.0.1",
		Port:           0,
		ReaperInterval: time.Hour,
		ReaperMinAge:   time.Hour,
	}
	srv := lockserver.NewServer(cfg, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Shutdown() })

	host, port := mustSplitAddr(t, srv.Addr().String())
	_ = host
	return port
}

func TestNew_RejectsInvalidClientID(t *testing.T) {
	_, err := client.New("localhost", 7654, "not a valid id")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrInvalidID)
}

func TestClient_FullLeaseLifecycle(t *testing.T) {
	port := newServer(t)

	c, err := client.New("127.0.0.1", port, "worker-1")
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	granted, err := c.Lock("my-resource")
	require.NoError(t, err)
	require.True(t, granted)
	assert.True(t, c.Acquired())

	require.NoError(t, c.Keepalive())
	require.NoError(t, c.Release())
}

func TestClient_KeepaliveLoopStopsOnSignal(t *testing.T) {
	port := newServer(t)

	c, err := client.New("127.0.0.1", port, "worker-1")
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	granted, err := c.Lock("my-resource")
	require.NoError(t, err)
	require.True(t, granted)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- c.KeepaliveLoop(5*time.Millisecond, stop) }()

	time.Sleep(30 * time.Millisecond)
	close(stop)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("KeepaliveLoop did not stop after signal")
	}

	require.NoError(t, c.Release())
}

func TestClient_PingAndStats(t *testing.T) {
	port := newServer(t)

	c, err := client.New("127.0.0.1", port, "")
	require.NoError(t, err)
	require.NoError(t, c.Connect())
	defer c.Close()

	require.NoError(t, c.Ping())

	c2, err := client.New("127.0.0.1", port, "")
	require.NoError(t, err)
	require.NoError(t, c2.Connect())
	defer c2.Close()
	payload, err := c2.Stats()
	require.NoError(t, err)
	assert.Contains(t, payload, "requests_count")
}
