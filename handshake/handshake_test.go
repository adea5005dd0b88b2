package handshake

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/wire"
)

// fakePeer accepts one connection and performs the responder side of
// the version/verack exchange.
func fakePeer(t *testing.T, ln net.Listener) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	msg, _, err := wire.ReadMessage(conn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	_, ok := msg.(*wire.MsgVersion)
	require.True(t, ok)

	resp := &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Nonce:           999,
		UserAgent:       "/fakepeer:0.0.1/",
		AddrRecv:        wire.NetAddress{IP: net.IPv4zero},
		AddrFrom:        wire.NetAddress{IP: net.IPv4zero},
	}
	require.NoError(t, wire.WriteMessage(conn, resp, wire.ProtocolVersion, wire.TestNet3))
	require.NoError(t, wire.WriteMessage(conn, &wire.MsgVerAck{}, wire.ProtocolVersion, wire.TestNet3))

	msg, _, err = wire.ReadMessage(conn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	_, ok = msg.(*wire.MsgVerAck)
	require.True(t, ok)
}

func TestConnectCompletesHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go fakePeer(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sessions, err := Connect(ctx, []net.TCPAddr{*addr}, Params{
		Net:             wire.TestNet3,
		ProtocolVersion: int32(wire.ProtocolVersion),
		MinProtoVersion: 70001,
		UserAgent:       "/taller-go:test/",
		ConnectTimeout:  2 * time.Second,
		ReadTimeout:     2 * time.Second,
		PoolSize:        2,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessions[0].Shutdown()
}

func TestConnectNoPeersReachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	_, err := Connect(ctx, []net.TCPAddr{{IP: net.IPv4(127, 0, 0, 1), Port: 1}}, Params{
		Net:             wire.TestNet3,
		ProtocolVersion: int32(wire.ProtocolVersion),
		MinProtoVersion: 70001,
		ConnectTimeout:  200 * time.Millisecond,
		ReadTimeout:     time.Second,
		PoolSize:        1,
	})
	require.Error(t, err)
}
