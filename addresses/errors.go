// Package addresses implements Bitcoin testnet WIF decoding, P2PKH
// address encoding/decoding, and the HASH160/Base58Check primitives
// they're built from.
package addresses

import "errors"

var (
	ErrBadWifPrefix   = errors.New("addresses: wrong WIF version byte for testnet")
	ErrBadWifChecksum = errors.New("addresses: WIF checksum mismatch")
	ErrBadWifLength   = errors.New("addresses: WIF payload has unexpected length")
	ErrBadAddress     = errors.New("addresses: invalid address checksum or length")
	ErrKeyMismatch    = errors.New("addresses: private key does not derive the given address")
)
