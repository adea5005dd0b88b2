package peer

import (
	"io"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/wire"
)

// log is the package-level logger, silent until wired by logs.Init
// through UseLogger, following the teacher's per-package logger
// convention.
var log btclog.Logger

// UseLogger wires a logger into this package.
func UseLogger(logger btclog.Logger) { log = logger }

func init() { DisableLog() }

// DisableLog silences this package's logging.
func DisableLog() { log = btclog.Disabled }

// Handlers is the dispatch table a Session calls into for each
// recognized inbound message. Unset fields are no-ops. Handlers run
// on the Session's single reader goroutine and must not block.
type Handlers struct {
	OnHeaders    func(*Session, *wire.MsgHeaders)
	OnBlock      func(*Session, *wire.MsgBlock)
	OnInv        func(*Session, *wire.MsgInv)
	OnTx         func(*Session, *wire.MsgTx)
	OnGetData    func(*Session, *wire.MsgGetData)
	OnNotFound   func(*Session, *wire.MsgNotFound)
	OnDisconnect func(*Session, error)
}

// Session manages one connected peer: a reader goroutine dispatching
// inbound messages, a writer goroutine draining an outbound queue,
// and a pinger goroutine keeping the connection alive, mirroring the
// original node's per-node read loop but split across goroutines so a
// slow peer can't block the rest of the node.
type Session struct {
	Addr    string
	Net     wire.BitcoinNet
	Version uint32

	t        Transport
	handlers Handlers

	sendCh   chan wire.Message
	quitCh   chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup

	readTimeout time.Duration
}

// NewSession wraps an already-handshaken Transport in a running
// Session. pver is the negotiated protocol version from the version
// exchange.
func NewSession(addr string, t Transport, net wire.BitcoinNet, pver uint32, readTimeout time.Duration, h Handlers) *Session {
	s := &Session{
		Addr:        addr,
		Net:         net,
		Version:     pver,
		t:           t,
		handlers:    h,
		sendCh:      make(chan wire.Message, 64),
		quitCh:      make(chan struct{}),
		readTimeout: readTimeout,
	}
	s.wg.Add(3)
	go s.readLoop()
	go s.writeLoop()
	go s.pingLoop()
	return s
}

// Send enqueues msg for the writer goroutine without blocking the
// caller. If the outbound queue is full the message is dropped; a
// full queue means the peer is unresponsive and will be reaped by its
// read/ping deadlines regardless.
func (s *Session) Send(msg wire.Message) {
	select {
	case s.sendCh <- msg:
	case <-s.quitCh:
	default:
		log.Warnf("peer %s: send queue full, dropping %s", s.Addr, msg.Command())
	}
}

// Shutdown closes the transport and stops all three goroutines. Safe
// to call more than once and from any goroutine.
func (s *Session) Shutdown() {
	s.quitOnce.Do(func() {
		close(s.quitCh)
		s.t.Close()
	})
}

// Wait blocks until all three of the session's goroutines have exited.
func (s *Session) Wait() { s.wg.Wait() }

type transportReadWriter struct{ t Transport }

func (w transportReadWriter) Read(p []byte) (int, error) {
	if err := w.t.ReadExact(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w transportReadWriter) Write(p []byte) (int, error) {
	if err := w.t.WriteAll(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	rw := transportReadWriter{s.t}

	for {
		select {
		case <-s.quitCh:
			return
		default:
		}

		if s.readTimeout > 0 {
			s.t.SetDeadline(time.Now().Add(s.readTimeout))
		}

		msg, _, err := wire.ReadMessage(io.Reader(rw), s.Version, s.Net, wire.MakeEmptyMessage)
		if err != nil {
			s.disconnect(errs.New(errs.KindIoRead, err))
			return
		}
		if msg == nil {
			continue // unknown command, already discarded by ReadMessage
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.MsgHeaders:
		if s.handlers.OnHeaders != nil {
			s.handlers.OnHeaders(s, m)
		}
	case *wire.MsgBlock:
		if s.handlers.OnBlock != nil {
			s.handlers.OnBlock(s, m)
		}
	case *wire.MsgInv:
		if s.handlers.OnInv != nil {
			s.handlers.OnInv(s, m)
		}
	case *wire.MsgTx:
		if s.handlers.OnTx != nil {
			s.handlers.OnTx(s, m)
		}
	case *wire.MsgGetData:
		if s.handlers.OnGetData != nil {
			s.handlers.OnGetData(s, m)
		}
	case *wire.MsgNotFound:
		if s.handlers.OnNotFound != nil {
			s.handlers.OnNotFound(s, m)
		}
	case *wire.MsgPing:
		// Answered inline on the reader goroutine, the same as the
		// original node's listener did for ping, rather than routed
		// through a handler: a pong carries no state the rest of the
		// node needs to see.
		s.Send(&wire.MsgPong{Nonce: m.Nonce})
	case *wire.MsgPong:
		// no-op; pingLoop doesn't currently track round-trip latency
	}
}

func (s *Session) writeLoop() {
	defer s.wg.Done()
	rw := transportReadWriter{s.t}

	for {
		select {
		case <-s.quitCh:
			return
		case msg := <-s.sendCh:
			if err := wire.WriteMessage(io.Writer(rw), msg, s.Version, s.Net); err != nil {
				s.disconnect(errs.New(errs.KindIoWrite, err))
				return
			}
		}
	}
}

func (s *Session) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.quitCh:
			return
		case <-ticker.C:
			s.Send(&wire.MsgPing{Nonce: uint64(time.Now().UnixNano())})
		}
	}
}

func (s *Session) disconnect(err error) {
	if s.handlers.OnDisconnect != nil {
		s.handlers.OnDisconnect(s, err)
	}
	s.Shutdown()
}
