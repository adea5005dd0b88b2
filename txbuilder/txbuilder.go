// Package txbuilder constructs and signs P2PKH transactions spending
// a single account's unspent outputs, grounded on Account.make_transaction
// and has_balance in the original node's account module, made concrete
// with SIGHASH_ALL signing since the original left signing unimplemented.
package txbuilder

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/taller-go/btcspv/addresses"
	"github.com/taller-go/btcspv/errs"
	"github.com/taller-go/btcspv/txscript"
	"github.com/taller-go/btcspv/utxoindex"
	"github.com/taller-go/btcspv/wire"
)

// SighashAll is the only sighash type this node produces, matching
// the specification's "SIGHASH_ALL only" non-goal around script
// flexibility.
const SighashAll = 0x01

// DustThreshold is both the minimum fee this builder will accept and
// the minimum satoshi value a change output may carry; a fee below it
// is rejected outright rather than silently raised, and a change
// remainder below it is folded into the fee instead of being sent
// back, per the specification's Open Question resolution.
const DustThreshold = 1000

// ErrInsufficientFunds is returned when the selected inputs can't
// cover amount+fee even using every available UTXO.
var ErrInsufficientFunds = fmt.Errorf("txbuilder: insufficient funds")

// ErrDustFee is returned when the caller-supplied fee is below
// DustThreshold. The builder never raises a fee on the caller's
// behalf.
var ErrDustFee = fmt.Errorf("txbuilder: fee below dust threshold")

// Build selects inputs from utxos (greedily, largest absolute value
// first is not required by the specification, so insertion order is
// used) to cover amount+fee, signs every input with SIGHASH_ALL, and
// returns the finished transaction. changePubKeyHash receives any
// leftover of at least DustThreshold; a smaller remainder is left in
// the fee rather than creating a dust output.
func Build(utxos []*utxoindex.UtxoRecord, secret [32]byte, compressed bool, changePubKeyHash, toPubKeyHash [20]byte, amount, fee int64) (*wire.MsgTx, error) {
	if amount <= 0 {
		return nil, errs.New(errs.KindInsufficientFunds, fmt.Errorf("txbuilder: amount must be positive"))
	}
	if fee < DustThreshold {
		return nil, errs.New(errs.KindInsufficientFunds, ErrDustFee)
	}

	var selected []*utxoindex.UtxoRecord
	var total int64
	need := amount + fee
	for _, u := range utxos {
		selected = append(selected, u)
		total += u.Value
		if total >= need {
			break
		}
	}
	if total < need {
		return nil, errs.New(errs.KindInsufficientFunds, ErrInsufficientFunds)
	}

	tx := &wire.MsgTx{Version: 1, LockTime: 0}
	for _, u := range selected {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{
			PreviousOutPoint: u.Out,
			Sequence:         0xffffffff,
		})
	}

	tx.TxOut = append(tx.TxOut, &wire.TxOut{
		Value:    amount,
		PkScript: txscript.PayToPubKeyHash(toPubKeyHash),
	})

	change := total - need
	if change >= DustThreshold {
		tx.TxOut = append(tx.TxOut, &wire.TxOut{
			Value:    change,
			PkScript: txscript.PayToPubKeyHash(changePubKeyHash),
		})
	}

	pubKey := addresses.PubKeyFromSecret(secret, compressed)
	privKey, _ := btcec.PrivKeyFromBytes(secret[:])

	for i, u := range selected {
		sigHash := computeSighash(tx, i, u.PkScript)
		sig := ecdsa.Sign(privKey, sigHash[:])
		derSig := append(sig.Serialize(), SighashAll)

		sigScript, err := txscript.BuildSignatureScript(derSig, pubKey)
		if err != nil {
			return nil, fmt.Errorf("txbuilder: %w", err)
		}
		tx.TxIn[i].SignatureScript = sigScript
	}

	return tx, nil
}

// computeSighash builds the SIGHASH_ALL preimage for input idx: every
// other input's script is blanked and the spent input's script is set
// to prevPkScript, per Bitcoin's legacy signature hash algorithm.
func computeSighash(tx *wire.MsgTx, idx int, prevPkScript []byte) chainhash.Hash {
	cp := tx.Copy()
	for i, in := range cp.TxIn {
		if i == idx {
			in.SignatureScript = prevPkScript
		} else {
			in.SignatureScript = nil
		}
	}

	var buf bytes.Buffer
	cp.Serialize(&buf)
	buf.Write([]byte{SighashAll, 0, 0, 0})

	return chainhash.DoubleHashH(buf.Bytes())
}
