package lockserver_test

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgdeoro/tcpnetlock/internal/config"
	"github.com/hgdeoro/tcpnetlock/internal/lockserver"
)

// The per-IP admission limiter (connlimit.go) is exercised here rather
// than with a unit test, since its fields are unexported and its only
// externally observable effect is "some connections get no response and
// are closed immediately".
func TestServer_ConnRateLimitRejectsBurst(t *testing.T) {
	cfg := &config.ServerConfig{
		Listen:         "127.0.0.1",
		Port:           0,
		ReaperInterval: time.Hour,
		ReaperMinAge:   time.Hour,
		ConnRateBurst:  1,
		ConnRatePerSec: 1,
	}
	srv := lockserver.NewServer(cfg, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Shutdown() })

	_, portStr, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	var rejected int
	for i := 0; i < 10; i++ {
		nc, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		nc.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		buf := make([]byte, 1)
		_, err = nc.Read(buf)
		if err == io.EOF {
			rejected++
		}
		nc.Close()
	}

	assert.Greater(t, rejected, 0, "a tight burst should trigger the per-IP admission limiter")
}
