// Package pow implements Bitcoin's compact-bits target encoding and
// the proof-of-work check against it.
package pow

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// CompactToBig expands a compact ("n_bits") representation into a full
// target: target = mantissa << 8*(exponent-3). This is the same
// algorithm used throughout the Bitcoin reference implementations; see
// the specification's data model section for the formula.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := compact >> 24

	var target big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetInt64(int64(mantissa))
	} else {
		target.SetInt64(int64(mantissa))
		target.Lsh(&target, uint(8*(exponent-3)))
	}

	// The sign bit (bit 23 of the mantissa before masking) indicates a
	// negative target, which is never valid; callers should reject it
	// upstream via CheckProofOfWork's comparison against PowLimit.
	if compact&0x00800000 != 0 {
		target.Neg(&target)
	}

	return &target
}

// BigToCompact is the inverse of CompactToBig, used when constructing
// test fixtures and for completeness of the codec.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// HashToBig interprets a chain hash as a little-endian 256-bit integer,
// per the specification's "hash, interpreted as little-endian" rule.
func HashToBig(hash chainhash.Hash) *big.Int {
	var buf chainhash.Hash
	blen := len(hash)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = hash[blen-1-i], hash[i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// CheckProofOfWork reports whether hash, interpreted as a little-endian
// 256-bit integer, is less than or equal to the target encoded by
// bits, and that the target itself does not exceed powLimit.
func CheckProofOfWork(hash chainhash.Hash, bits uint32, powLimit *big.Int) bool {
	target := CompactToBig(bits)
	if target.Sign() <= 0 || target.Cmp(powLimit) > 0 {
		return false
	}
	return HashToBig(hash).Cmp(target) <= 0
}
