package addresses

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/taller-go/btcspv/chaincfg"
	"golang.org/x/crypto/ripemd160"
)

// Hash160 computes RIPEMD160(SHA256(b)), the digest Bitcoin uses to
// turn a public key into the 20-byte value carried by a P2PKH address.
func Hash160(b []byte) [20]byte {
	sha := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(sha[:])

	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

// AddressToPubKeyHash decodes a Base58Check P2PKH address and returns
// its 20-byte pubkey hash.
func AddressToPubKeyHash(addr string) ([20]byte, error) {
	var hash [20]byte

	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return hash, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if version != chaincfg.TestNetParams.PubKeyHashAddrID {
		return hash, fmt.Errorf("%w: unexpected version 0x%02x", ErrBadAddress, version)
	}
	if len(payload) != 20 {
		return hash, fmt.Errorf("%w: pubkey hash has %d bytes", ErrBadAddress, len(payload))
	}

	copy(hash[:], payload)
	return hash, nil
}

// PubKeyHashToAddress is the inverse of AddressToPubKeyHash.
func PubKeyHashToAddress(hash [20]byte) string {
	return base58.CheckEncode(hash[:], chaincfg.TestNetParams.PubKeyHashAddrID)
}

// ValidateAddressAgainstSecret checks that hash160(pubkey derived from
// secret) equals the pubkey hash encoded by addr.
func ValidateAddressAgainstSecret(secret [32]byte, compressed bool, addr string) error {
	want, err := AddressToPubKeyHash(addr)
	if err != nil {
		return err
	}
	got := Hash160(PubKeyFromSecret(secret, compressed))
	if got != want {
		return ErrKeyMismatch
	}
	return nil
}
