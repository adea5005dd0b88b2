package peer

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
	"github.com/taller-go/btcspv/wire"
)

// seenInvCacheSize bounds the steady-state transaction-inv dedup set,
// large enough to cover a burst of relay traffic without growing
// unbounded, the Go home for SPEC_FULL.md's "peer (seen-inventory
// dedup set)" domain-stack entry.
const seenInvCacheSize = 4096

// BlockSource is the read-only block storage capability a getdata
// request for a block is served from. *chainstore.Store satisfies it.
type BlockSource interface {
	HasBlock(hash chainhash.Hash) bool
	GetBlock(hash chainhash.Hash) (*wire.MsgBlock, error)
}

// TxSource is the read-only pending-transaction capability a getdata
// request for a transaction is served from. *wallet.Wallet satisfies
// it.
type TxSource interface {
	PendingTx(hash chainhash.Hash) (*wire.MsgTx, bool)
}

// SteadyState implements the inbound message handling a node needs once
// initial block download has caught it up to the network tip: relaying
// newly announced transactions, answering getdata for both blocks and
// transactions (with notfound for anything unknown), and forwarding
// delivered transactions for relevance checking. Grounded on
// handle_inv_message, handle_getdata_message, and handle_tx_message in
// the original node's message_handlers.rs.
type SteadyState struct {
	blocks BlockSource
	txs    TxSource
	onTx   func(*Session, *wire.MsgTx)

	seenTx *lru.Cache
}

// NewSteadyState returns a SteadyState serving blocks from blocks and
// pending transactions from txs, forwarding every delivered transaction
// to onTx (which decides whether it's relevant to a loaded account).
func NewSteadyState(blocks BlockSource, txs TxSource, onTx func(*Session, *wire.MsgTx)) *SteadyState {
	return &SteadyState{
		blocks: blocks,
		txs:    txs,
		onTx:   onTx,
		seenTx: lru.NewCache(seenInvCacheSize),
	}
}

// OnInv requests, via getdata, any transaction a peer announces that
// hasn't already been requested, the steady-state counterpart to
// netsync.Coordinator's block-inv handling during IBD.
func (ss *SteadyState) OnInv(s *Session, m *wire.MsgInv) {
	var want []*wire.InvVect
	for _, inv := range m.InvList {
		if inv.Type != wire.InvTypeTx || ss.seenTx.Contains(inv.Hash) {
			continue
		}
		ss.seenTx.Add(inv.Hash)
		want = append(want, inv)
	}
	if len(want) > 0 {
		gd := &wire.MsgGetData{}
		gd.InvList = want
		s.Send(gd)
	}
}

// OnTx forwards a delivered transaction to the relevance check supplied
// at construction time.
func (ss *SteadyState) OnTx(s *Session, m *wire.MsgTx) {
	if ss.onTx != nil {
		ss.onTx(s, m)
	}
}

// OnGetData serves a block from blocks or a transaction from txs for
// each requested inventory vector, replying notfound for anything
// neither source has, grounded on handle_getdata_message's MSG_BLOCK
// and unmatched branches.
func (ss *SteadyState) OnGetData(s *Session, m *wire.MsgGetData) {
	var notFound []*wire.InvVect
	for _, inv := range m.InvList {
		switch inv.Type {
		case wire.InvTypeTx:
			tx, ok := ss.txs.PendingTx(inv.Hash)
			if !ok {
				notFound = append(notFound, inv)
				continue
			}
			s.Send(tx)
		case wire.InvTypeBlock:
			if !ss.blocks.HasBlock(inv.Hash) {
				notFound = append(notFound, inv)
				continue
			}
			block, err := ss.blocks.GetBlock(inv.Hash)
			if err != nil {
				log.Warnf("peer %s: getdata for known block %s failed: %v", s.Addr, inv.Hash, err)
				notFound = append(notFound, inv)
				continue
			}
			s.Send(block)
		default:
			notFound = append(notFound, inv)
		}
	}
	if len(notFound) > 0 {
		nf := &wire.MsgNotFound{}
		nf.InvList = notFound
		s.Send(nf)
	}
}
