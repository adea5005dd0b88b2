package blockchain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/taller-go/btcspv/pow"
	"github.com/taller-go/btcspv/wire"
)

// Errors in the "BadHeader"/"BadBlock" families of the specification's
// error taxonomy.
var (
	ErrBadProofOfWork = errors.New("blockchain: header hash does not meet its target")
	ErrBadLinkage     = errors.New("blockchain: header does not extend the expected parent")
	ErrBadMerkleRoot  = errors.New("blockchain: block merkle root does not match its header")
	ErrBadBlockHash   = errors.New("blockchain: downloaded block hash does not match the requested hash")
)

// CheckHeaderPoW validates a single header's proof of work against its
// own n_bits field.
func CheckHeaderPoW(h *wire.BlockHeader, powLimit *big.Int) error {
	if !pow.CheckProofOfWork(h.BlockHash(), h.Bits, powLimit) {
		return fmt.Errorf("%w: hash %s bits %08x", ErrBadProofOfWork, h.BlockHash(), h.Bits)
	}
	return nil
}

// CheckHeaderLinkage validates that candidate's PrevHash equals the
// hash of parent, the chain-order invariant from the specification's
// data model.
func CheckHeaderLinkage(parent, candidate *wire.BlockHeader) error {
	parentHash := parent.BlockHash()
	if candidate.PrevHash != parentHash {
		return fmt.Errorf("%w: want parent %s got %s", ErrBadLinkage, parentHash, candidate.PrevHash)
	}
	return nil
}

// ValidateBlock checks a downloaded block's header proof of work and
// that its merkle root matches its transactions. It does not compare
// the block's hash against the hash that was requested.
func ValidateBlock(block *wire.MsgBlock, powLimit *big.Int) error {
	if err := CheckHeaderPoW(&block.Header, powLimit); err != nil {
		return err
	}

	got := MerkleRoot(TxHashes(block.Transactions))
	if got != block.Header.MerkleRoot {
		return fmt.Errorf("%w: computed %s header says %s", ErrBadMerkleRoot, got, block.Header.MerkleRoot)
	}
	return nil
}
