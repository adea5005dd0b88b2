// Package utxoindex tracks the set of unspent P2PKH outputs belonging
// to this node's watched addresses, grounded on update_accounts_utxo_set
// and the per-account UtxoTuple map in the original node's handler and
// account modules.
package utxoindex

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/taller-go/btcspv/txscript"
	"github.com/taller-go/btcspv/wire"
)

// UtxoRecord is one unspent output: its value and the script that
// locks it.
type UtxoRecord struct {
	Out      wire.OutPoint
	Value    int64
	PkScript []byte
}

// Index is a RWMutex-guarded map of unspent outputs, keyed both by
// outpoint (for spend lookups) and by the P2PKH hash that locks them
// (for balance queries), so applying a block touches only the
// addresses it actually involves.
type Index struct {
	mu sync.RWMutex

	byOutpoint map[wire.OutPoint]*UtxoRecord
	byPubHash  map[[20]byte]map[wire.OutPoint]struct{}

	appliedBlocks map[chainhash.Hash]struct{}
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byOutpoint:    make(map[wire.OutPoint]*UtxoRecord),
		byPubHash:     make(map[[20]byte]map[wire.OutPoint]struct{}),
		appliedBlocks: make(map[chainhash.Hash]struct{}),
	}
}

// Watch registers a pubkey hash whose outputs should be tracked. It
// must be called before ApplyBlock sees the address's first output,
// since the index only tracks outputs paying a hash it's been told to
// watch.
func (idx *Index) Watch(pubKeyHash [20]byte) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.byPubHash[pubKeyHash]; !ok {
		idx.byPubHash[pubKeyHash] = make(map[wire.OutPoint]struct{})
	}
}

// ApplyBlock folds a block's transactions into the index: spent
// outpoints are removed, and new P2PKH outputs paying a watched hash
// are added. Applying the same block hash twice is a no-op, so the
// fold can be re-run safely after a crash without double-booking
// balances.
func (idx *Index) ApplyBlock(block *wire.MsgBlock) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	hash := block.Header.BlockHash()
	if _, done := idx.appliedBlocks[hash]; done {
		return
	}
	idx.appliedBlocks[hash] = struct{}{}

	for _, tx := range block.Transactions {
		txHash := tx.TxHash()

		for _, in := range tx.TxIn {
			idx.removeLocked(in.PreviousOutPoint)
		}

		for i, out := range tx.TxOut {
			pkHash, ok := txscript.ExtractPubKeyHash(out.PkScript)
			if !ok {
				continue
			}
			set, watched := idx.byPubHash[pkHash]
			if !watched {
				continue
			}
			op := wire.OutPoint{Hash: txHash, Index: uint32(i)}
			idx.byOutpoint[op] = &UtxoRecord{Out: op, Value: out.Value, PkScript: out.PkScript}
			set[op] = struct{}{}
		}
	}
}

func (idx *Index) removeLocked(op wire.OutPoint) {
	rec, ok := idx.byOutpoint[op]
	if !ok {
		return
	}
	pkHash, ok := txscript.ExtractPubKeyHash(rec.PkScript)
	if ok {
		delete(idx.byPubHash[pkHash], op)
	}
	delete(idx.byOutpoint, op)
}

// Balance returns the sum of every unspent output locked to
// pubKeyHash, in satoshis.
func (idx *Index) Balance(pubKeyHash [20]byte) int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var total int64
	for op := range idx.byPubHash[pubKeyHash] {
		total += idx.byOutpoint[op].Value
	}
	return total
}

// UnspentFor returns every unspent output locked to pubKeyHash,
// unordered, for the transaction builder's input selection.
func (idx *Index) UnspentFor(pubKeyHash [20]byte) []*UtxoRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	recs := make([]*UtxoRecord, 0, len(idx.byPubHash[pubKeyHash]))
	for op := range idx.byPubHash[pubKeyHash] {
		recs = append(recs, idx.byOutpoint[op])
	}
	return recs
}

// IsRelevant reports whether tx either pays one of this index's watched
// pubkey hashes or spends an outpoint it already tracks, the check an
// unconfirmed inbound transaction needs before a wallet bothers holding
// onto it, grounded on check_if_tx_involves_user_account in the
// original node's listener.
func (idx *Index) IsRelevant(tx *wire.MsgTx) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, in := range tx.TxIn {
		if _, ok := idx.byOutpoint[in.PreviousOutPoint]; ok {
			return true
		}
	}
	for _, out := range tx.TxOut {
		pkHash, ok := txscript.ExtractPubKeyHash(out.PkScript)
		if !ok {
			continue
		}
		if _, watched := idx.byPubHash[pkHash]; watched {
			return true
		}
	}
	return false
}
