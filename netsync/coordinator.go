// Package netsync drives initial block download: a single header
// coordinator walking getheaders/headers against one peer at a time
// with rotation on failure, followed by a parallel block-fetcher pool
// that requests block bodies across every live peer with
// work-stealing requeue, grounded on the original node's
// single-node/multi-node IBD split in blockchain_download/mod.rs.
package netsync

import (
	"math/big"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/taller-go/btcspv/chainstore"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/wire"
)

var log btclog.Logger

// UseLogger wires a logger into this package.
func UseLogger(logger btclog.Logger) { log = logger }

func init() { DisableLog() }

// DisableLog silences this package's logging.
func DisableLog() { log = btclog.Disabled }

// blockFetchBatch is the number of block hashes requested per getdata
// message, per the specification's parallel fetch batching.
const blockFetchBatch = 16

// maxConsecutiveFailures is how many times a peer may fail the
// header exchange before it's evicted from rotation entirely.
const maxConsecutiveFailures = 2

// Params configures a Coordinator.
type Params struct {
	PowLimit     *big.Int
	SingleNode   bool
	StartHeight  int32 // skip block download for headers below this height
	FetchTimeout time.Duration
}

// Coordinator owns the inbound headers/block channels fed by each
// session's handlers, and drives IBD across the supplied peer pool.
type Coordinator struct {
	store *chainstore.Store

	headersCh chan headersEvent
	blocksCh  chan blocksEvent

	mu      sync.Mutex
	peers   []*peer.Session
	dead    map[*peer.Session]int
	onBlock func(height int32, block *wire.MsgBlock)
}

type headersEvent struct {
	sess    *peer.Session
	headers *wire.MsgHeaders
}

type blocksEvent struct {
	sess  *peer.Session
	block *wire.MsgBlock
}

// NewCoordinator constructs a Coordinator over store and peers.
// onBlock, if non-nil, is invoked synchronously for every block
// accepted into the store during IBD, in height order, so callers
// (the UTXO indexer) can fold it without re-scanning the store.
func NewCoordinator(store *chainstore.Store, peers []*peer.Session, onBlock func(int32, *wire.MsgBlock)) *Coordinator {
	return &Coordinator{
		store:     store,
		headersCh: make(chan headersEvent, 32),
		blocksCh:  make(chan blocksEvent, 256),
		peers:     peers,
		dead:      make(map[*peer.Session]int),
		onBlock:   onBlock,
	}
}

// Handlers returns the peer.Handlers this coordinator needs wired
// into every session it drives. Sessions must be constructed with
// these handlers (or ones that forward to them) so headers/blocks
// received after IBD completes keep flowing through the same path.
func (c *Coordinator) Handlers() peer.Handlers {
	return peer.Handlers{
		OnHeaders: func(s *peer.Session, m *wire.MsgHeaders) {
			select {
			case c.headersCh <- headersEvent{s, m}:
			default:
				log.Warnf("netsync: dropping headers from %s, coordinator busy", s.Addr)
			}
		},
		OnBlock: func(s *peer.Session, m *wire.MsgBlock) {
			select {
			case c.blocksCh <- blocksEvent{s, m}:
			default:
				log.Warnf("netsync: dropping block from %s, coordinator busy", s.Addr)
			}
		},
		OnInv: func(s *peer.Session, m *wire.MsgInv) {
			var want []*wire.InvVect
			for _, inv := range m.InvList {
				if inv.Type == wire.InvTypeBlock && !c.store.HasBlock(inv.Hash) {
					want = append(want, inv)
				}
			}
			if len(want) > 0 {
				gd := &wire.MsgGetData{}
				gd.InvList = want
				s.Send(gd)
			}
		},
		OnDisconnect: func(s *peer.Session, err error) {
			c.removePeer(s)
		},
	}
}

// removePeer drops a dead session from rotation.
func (c *Coordinator) removePeer(s *peer.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.peers {
		if p == s {
			c.peers = append(c.peers[:i], c.peers[i+1:]...)
			break
		}
	}
	delete(c.dead, s)
}

// SetPeers replaces the coordinator's peer set, for callers that build
// a Coordinator before the handshake phase has produced any sessions
// (so its Handlers() can be wired into each session as it's dialed)
// and only know the full live set once handshake.Connect returns.
func (c *Coordinator) SetPeers(peers []*peer.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers = peers
	c.dead = make(map[*peer.Session]int)
}

// LivePeers returns a snapshot of the sessions still in rotation, the
// set a caller can hand off to a peer.Pool for steady-state broadcast.
func (c *Coordinator) LivePeers() []*peer.Session {
	return c.livePeers()
}

// livePeers returns a snapshot of the currently live session list.
func (c *Coordinator) livePeers() []*peer.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*peer.Session, len(c.peers))
	copy(out, c.peers)
	return out
}

// markFailure records a header-sync failure for s and evicts it after
// maxConsecutiveFailures, per the specification's double-failure
// eviction rule.
func (c *Coordinator) markFailure(s *peer.Session) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead[s]++
	if c.dead[s] >= maxConsecutiveFailures {
		for i, p := range c.peers {
			if p == s {
				c.peers = append(c.peers[:i], c.peers[i+1:]...)
				break
			}
		}
		delete(c.dead, s)
		return true
	}
	return false
}

func (c *Coordinator) markSuccess(s *peer.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.dead, s)
}
