// Package handshake dials candidate peer addresses through a bounded
// worker pool and performs the version/verack exchange described in
// the specification's §4.6, assembling the pool of live sessions the
// rest of the node runs on.
package handshake

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/wire"
)

var log btclog.Logger

// UseLogger wires a logger into this package.
func UseLogger(logger btclog.Logger) { log = logger }

func init() { DisableLog() }

// DisableLog silences this package's logging.
func DisableLog() { log = btclog.Disabled }

// Params is the subset of config this package needs, kept narrow so
// it doesn't import the config package directly.
type Params struct {
	Net             wire.BitcoinNet
	ProtocolVersion int32
	MinProtoVersion int32
	UserAgent       string
	StartHeight     int32
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	PoolSize        int
	Handlers        peer.Handlers
}

// nonce identifies this node's own outbound connections, so a
// self-connect (the DNS seed or a NAT loop handing us our own
// address) can be detected and dropped instead of counted as a peer.
var nonce = uint64(rand.Int63())

// Connect dials every candidate address through a worker pool of
// Params.PoolSize goroutines, performs the version/verack handshake on
// each successful dial, and returns the sessions that completed it.
// Candidates that fail to dial, time out, fail the handshake, or
// report a protocol version below MinProtoVersion are dropped. An
// empty result is reported as errs.KindNoPeers.
func Connect(ctx context.Context, candidates []net.TCPAddr, p Params) ([]*peer.Session, error) {
	if p.PoolSize < 1 {
		p.PoolSize = 1
	}

	jobs := make(chan net.TCPAddr)
	results := make(chan *peer.Session, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < p.PoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range jobs {
				sess, err := dialAndShake(ctx, addr, p)
				if err != nil {
					log.Debugf("handshake: %s: %v", addr.String(), err)
					continue
				}
				results <- sess
			}
		}()
	}

	go func() {
		for _, addr := range candidates {
			select {
			case jobs <- addr:
			case <-ctx.Done():
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var sessions []*peer.Session
	for sess := range results {
		sessions = append(sessions, sess)
	}

	if len(sessions) == 0 {
		return nil, errs.New(errs.KindNoPeers, fmt.Errorf("handshake: no peers reachable among %d candidates", len(candidates)))
	}
	return sessions, nil
}

func dialAndShake(ctx context.Context, addr net.TCPAddr, p Params) (*peer.Session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	conn.SetDeadline(time.Now().Add(p.ConnectTimeout))
	remoteVer, err := performHandshake(conn, addr, p)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})

	negotiated := p.ProtocolVersion
	if remoteVer < negotiated {
		negotiated = remoteVer
	}

	sess := peer.NewSession(addr.String(), peer.NewConnTransport(conn), p.Net, uint32(negotiated), p.ReadTimeout, p.Handlers)
	return sess, nil
}

// performHandshake runs the version/verack exchange on an already
// dialed connection and returns the peer's advertised protocol
// version.
func performHandshake(conn net.Conn, addr net.TCPAddr, p Params) (int32, error) {
	ourVersion := &wire.MsgVersion{
		ProtocolVersion: p.ProtocolVersion,
		Services:        0,
		Timestamp:       time.Now().Unix(),
		AddrRecv:        wire.NetAddress{IP: addr.IP, Port: uint16(addr.Port)},
		AddrFrom:        wire.NetAddress{IP: net.IPv4zero, Port: 0},
		Nonce:           nonce,
		UserAgent:       p.UserAgent,
		StartHeight:     p.StartHeight,
		Relay:           false,
	}
	if err := wire.WriteMessage(conn, ourVersion, wire.ProtocolVersion, p.Net); err != nil {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("writing version: %w", err))
	}

	msg, _, err := wire.ReadMessage(conn, wire.ProtocolVersion, p.Net, wire.MakeEmptyMessage)
	if err != nil {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("reading version: %w", err))
	}
	theirVersion, ok := msg.(*wire.MsgVersion)
	if !ok {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("expected version, got something else"))
	}
	if theirVersion.Nonce == nonce {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("self-connection detected"))
	}
	if theirVersion.ProtocolVersion < p.MinProtoVersion {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("peer protocol version %d below minimum %d", theirVersion.ProtocolVersion, p.MinProtoVersion))
	}

	if err := wire.WriteMessage(conn, &wire.MsgVerAck{}, wire.ProtocolVersion, p.Net); err != nil {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("writing verack: %w", err))
	}

	msg, _, err = wire.ReadMessage(conn, wire.ProtocolVersion, p.Net, wire.MakeEmptyMessage)
	if err != nil {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("reading verack: %w", err))
	}
	if _, ok := msg.(*wire.MsgVerAck); !ok {
		return 0, errs.New(errs.KindHandshake, fmt.Errorf("expected verack, got something else"))
	}

	return theirVersion.ProtocolVersion, nil
}
