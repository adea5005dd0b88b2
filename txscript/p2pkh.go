// Package txscript builds and recognizes the P2PKH script template,
// the only script class this node understands (per the specification's
// non-goal of full script validation).
package txscript

import (
	"bytes"
	"fmt"
)

// Opcodes used by the P2PKH template.
const (
	OpDup         = 0x76
	OpHash160     = 0xa9
	OpData20      = 0x14
	OpEqualVerify = 0x88
	OpCheckSig    = 0xac
)

// P2PKHScriptLen is the fixed length of a pay-to-pubkey-hash
// scriptPubKey: 5 opcode/length bytes plus the 20-byte hash.
const P2PKHScriptLen = 25

// PayToPubKeyHash builds the scriptPubKey
// OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG
// locking an output to pubKeyHash.
func PayToPubKeyHash(pubKeyHash [20]byte) []byte {
	script := make([]byte, 0, P2PKHScriptLen)
	script = append(script, OpDup, OpHash160, OpData20)
	script = append(script, pubKeyHash[:]...)
	script = append(script, OpEqualVerify, OpCheckSig)
	return script
}

// ExtractPubKeyHash recognizes a P2PKH scriptPubKey and returns the
// 20-byte pubkey hash it pays to. It returns false for any other
// script shape, including malformed or truncated P2PKH-looking scripts.
func ExtractPubKeyHash(script []byte) (hash [20]byte, ok bool) {
	if len(script) != P2PKHScriptLen {
		return hash, false
	}
	if script[0] != OpDup || script[1] != OpHash160 || script[2] != OpData20 {
		return hash, false
	}
	if script[23] != OpEqualVerify || script[24] != OpCheckSig {
		return hash, false
	}
	copy(hash[:], script[3:23])
	return hash, true
}

// IsPayToPubKeyHash reports whether script is exactly the P2PKH
// template, independent of whose hash it carries.
func IsPayToPubKeyHash(script []byte) bool {
	_, ok := ExtractPubKeyHash(script)
	return ok
}

// BuildSignatureScript assembles a P2PKH scriptSig:
// <sig_len> <sig> <pubkey_len> <pubkey>.
func BuildSignatureScript(sig, pubKey []byte) ([]byte, error) {
	if len(sig) == 0 || len(sig) > 0xff {
		return nil, fmt.Errorf("txscript: signature length %d out of range", len(sig))
	}
	if len(pubKey) == 0 || len(pubKey) > 0xff {
		return nil, fmt.Errorf("txscript: pubkey length %d out of range", len(pubKey))
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(len(sig)))
	buf.Write(sig)
	buf.WriteByte(byte(len(pubKey)))
	buf.Write(pubKey)
	return buf.Bytes(), nil
}
