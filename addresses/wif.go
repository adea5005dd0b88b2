package addresses

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/taller-go/btcspv/chaincfg"
)

// DecodeWIF decodes a testnet WIF-encoded private key, returning the
// 32-byte secret and whether the encoding marks the derived public key
// as compressed (a trailing 0x01 byte after the secret).
func DecodeWIF(s string) (secret [32]byte, compressed bool, err error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return secret, false, fmt.Errorf("%w: %v", ErrBadWifChecksum, err)
	}
	if version != chaincfg.TestNetParams.PrivateKeyID {
		return secret, false, fmt.Errorf("%w: got 0x%02x", ErrBadWifPrefix, version)
	}

	switch len(payload) {
	case 32:
		compressed = false
	case 33:
		if payload[32] != 0x01 {
			return secret, false, fmt.Errorf("%w: unexpected compression flag 0x%02x", ErrBadWifLength, payload[32])
		}
		compressed = true
	default:
		return secret, false, fmt.Errorf("%w: got %d bytes", ErrBadWifLength, len(payload))
	}

	copy(secret[:], payload[:32])
	return secret, compressed, nil
}

// EncodeWIF is the inverse of DecodeWIF.
func EncodeWIF(secret [32]byte, compressed bool) string {
	payload := make([]byte, 32, 33)
	copy(payload, secret[:])
	if compressed {
		payload = append(payload, 0x01)
	}
	return base58.CheckEncode(payload, chaincfg.TestNetParams.PrivateKeyID)
}

// PubKeyFromSecret derives the SEC1-encoded public key (33 bytes
// compressed, 65 uncompressed) for a secp256k1 secret key.
func PubKeyFromSecret(secret [32]byte, compressed bool) []byte {
	_, pub := btcec.PrivKeyFromBytes(secret[:])
	if compressed {
		return pub.SerializeCompressed()
	}
	return pub.SerializeUncompressed()
}
