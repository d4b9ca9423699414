package protocol_test

import (
	"net"
	"testing"
	"time"

	"github.com/hgdeoro/tcpnetlock/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConn_SendReadLineRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sc := protocol.NewConn(server)
	go func() {
		_ = sc.Send("ok")
	}()

	cc := protocol.NewConn(client)
	line, ok, err := cc.ReadLine(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", line)
}

func TestConn_MultipleLinesInOneWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("first\nsecond\n"))
	}()

	cc := protocol.NewConn(client)

	line1, ok, err := cc.ReadLine(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", line1)

	line2, ok, err := cc.ReadLine(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", line2)
}

func TestConn_ReadLineTimeoutReturnsNoLineYet(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := protocol.NewConn(client)
	line, ok, err := cc.ReadLine(50 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", line)
}

func TestConn_PeerDisconnectedOnClose(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	server.Close()

	cc := protocol.NewConn(client)
	_, _, err := cc.ReadLine(0)
	assert.ErrorIs(t, err, protocol.ErrPeerDisconnected)
}

func TestConn_ReadLine_OversizedLineWithoutTerminator(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	oversized := make([]byte, protocol.MaxLineLength+1)
	for i := range oversized {
		oversized[i] = 'x'
	}
	go func() {
		_, _ = server.Write(oversized)
	}()

	cc := protocol.NewConn(client)
	_, _, err := cc.ReadLine(0)
	assert.ErrorIs(t, err, protocol.ErrLineTooLong)
}

func TestConn_CheckConnection_TimeoutIsInconclusive(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := protocol.NewConn(client)
	err := cc.CheckConnection()
	assert.NoError(t, err)
}

func TestConn_CheckConnection_DetectsClose(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	server.Close()

	cc := protocol.NewConn(client)
	err := cc.CheckConnection()
	assert.ErrorIs(t, err, protocol.ErrPeerDisconnected)
}

func TestConn_CheckConnection_BuffersByteForReadLine(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_, _ = server.Write([]byte("x"))
		time.Sleep(20 * time.Millisecond)
		_, _ = server.Write([]byte("y\n"))
	}()

	cc := protocol.NewConn(client)
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, cc.CheckConnection())

	line, ok, err := cc.ReadLine(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "xy", line)
}
