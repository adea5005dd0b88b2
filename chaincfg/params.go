// Package chaincfg holds the network parameters this node runs
// against. Only Bitcoin testnet3 is supported, per the specification's
// non-goals (no mainnet deployment).
package chaincfg

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/taller-go/btcspv/wire"
)

// Params groups together the network-specific constants a node needs:
// wire magic, default port, DNS seed, address/WIF version bytes, the
// genesis header, and the proof-of-work limit.
type Params struct {
	Name        string
	Net         wire.BitcoinNet
	DefaultPort string
	DNSSeed     string

	GenesisHeader wire.BlockHeader

	// PowLimit is the highest allowed proof-of-work target expressed as
	// a big integer; PowLimitBits is the same value in n_bits form.
	PowLimit     *big.Int
	PowLimitBits uint32

	// PubKeyHashAddrID and PrivateKeyID are the Base58Check version
	// bytes for P2PKH addresses and WIF private keys.
	PubKeyHashAddrID byte
	PrivateKeyID     byte
}

var bigOne = big.NewInt(1)

// testNet3PowLimit is the highest proof-of-work value a testnet3 block
// may have, 2^224-1, matching Bitcoin Core's testnet3 parameters.
var testNet3PowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// TestNetGenesisHeader is the canonical Bitcoin testnet3 genesis block
// header. The specification's Open Question #1 directs implementers to
// use this value rather than the mismatched constant carried by the
// original source.
var TestNetGenesisHeader = wire.BlockHeader{
	Version:    1,
	PrevHash:   chainhash.Hash{},
	MerkleRoot: mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
	Timestamp:  1296688602,
	Bits:       0x1d00ffff,
	Nonce:      414098458,
}

// TestNetParams are the Bitcoin testnet3 network parameters this node
// uses exclusively.
var TestNetParams = Params{
	Name:        "testnet3",
	Net:         wire.TestNet3,
	DefaultPort: "18333",
	DNSSeed:     "seed.testnet.bitcoin.sprovoost.nl",

	GenesisHeader: TestNetGenesisHeader,

	PowLimit:     testNet3PowLimit,
	PowLimitBits: 0x1d00ffff,

	PubKeyHashAddrID: 0x6f,
	PrivateKeyID:     0xef,
}
