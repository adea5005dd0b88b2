package peer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/wire"
)

func TestSessionPingAnsweredWithPong(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	pongCh := make(chan *wire.MsgPong, 1)
	sess := NewSession("test", NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, Handlers{})
	defer sess.Shutdown()

	go func() {
		wire.WriteMessage(clientConn, &wire.MsgPing{Nonce: 42}, wire.ProtocolVersion, wire.TestNet3)
	}()

	msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	pong, ok := msg.(*wire.MsgPong)
	require.True(t, ok)
	pongCh <- pong

	got := <-pongCh
	require.Equal(t, uint64(42), got.Nonce)
}

func TestSessionDispatchesHeaders(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan *wire.MsgHeaders, 1)
	sess := NewSession("test", NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, Handlers{
		OnHeaders: func(s *Session, m *wire.MsgHeaders) { done <- m },
	})
	defer sess.Shutdown()

	hdrs := &wire.MsgHeaders{Headers: []*wire.BlockHeader{{Version: 1}}}
	go wire.WriteMessage(clientConn, hdrs, wire.ProtocolVersion, wire.TestNet3)

	select {
	case got := <-done:
		require.Len(t, got.Headers, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for headers dispatch")
	}
}
