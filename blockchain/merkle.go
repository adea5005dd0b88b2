// Package blockchain validates headers and blocks against the
// specification's invariants: proof-of-work, header linkage, and
// merkle root agreement.
package blockchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/taller-go/btcspv/wire"
)

// MerkleRoot computes a block's merkle root from its ordered
// transaction hashes: the leaf layer is the txids themselves, and at
// every level an odd-sized layer duplicates its last node before
// pairing, exactly as the specification's data model describes.
func MerkleRoot(txHashes []chainhash.Hash) chainhash.Hash {
	if len(txHashes) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

func hashPair(left, right chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// TxHashes extracts txids, in order, from a block's transaction list.
func TxHashes(txs []*wire.MsgTx) []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}
	return hashes
}
