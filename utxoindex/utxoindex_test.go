package utxoindex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/txscript"
	"github.com/taller-go/btcspv/wire"
)

func TestApplyBlockCreditsWatchedAddress(t *testing.T) {
	idx := New()
	var pkHash [20]byte
	pkHash[0] = 0xAB
	idx.Watch(pkHash)

	tx := &wire.MsgTx{
		TxOut: []*wire.TxOut{
			{Value: 5000, PkScript: txscript.PayToPubKeyHash(pkHash)},
			{Value: 1000, PkScript: []byte{0x00}}, // unwatched/non-standard
		},
	}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}

	idx.ApplyBlock(block)
	require.EqualValues(t, 5000, idx.Balance(pkHash))
}

func TestApplyBlockIsIdempotent(t *testing.T) {
	idx := New()
	var pkHash [20]byte
	idx.Watch(pkHash)

	tx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 1000, PkScript: txscript.PayToPubKeyHash(pkHash)}}}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}

	idx.ApplyBlock(block)
	idx.ApplyBlock(block)
	require.EqualValues(t, 1000, idx.Balance(pkHash))
}

func TestApplyBlockSpendsRemoveUtxo(t *testing.T) {
	idx := New()
	var pkHash [20]byte
	idx.Watch(pkHash)

	creditTx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 2000, PkScript: txscript.PayToPubKeyHash(pkHash)}}}
	creditBlock := &wire.MsgBlock{Transactions: []*wire.MsgTx{creditTx}}
	idx.ApplyBlock(creditBlock)
	require.EqualValues(t, 2000, idx.Balance(pkHash))

	spendTx := &wire.MsgTx{
		TxIn: []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Hash: creditTx.TxHash(), Index: 0}}},
	}
	spendBlock := &wire.MsgBlock{Header: wire.BlockHeader{Nonce: 1}, Transactions: []*wire.MsgTx{spendTx}}
	idx.ApplyBlock(spendBlock)
	require.EqualValues(t, 0, idx.Balance(pkHash))
}

func TestIsRelevantMatchesWatchedOutputAndSpend(t *testing.T) {
	idx := New()
	var pkHash [20]byte
	pkHash[0] = 0xCD
	idx.Watch(pkHash)

	payingTx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 3000, PkScript: txscript.PayToPubKeyHash(pkHash)}}}
	require.True(t, idx.IsRelevant(payingTx))

	unrelatedTx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 3000, PkScript: []byte{0x00}}}}
	require.False(t, idx.IsRelevant(unrelatedTx))

	idx.ApplyBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{payingTx}})
	spendingTx := &wire.MsgTx{TxIn: []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Hash: payingTx.TxHash(), Index: 0}}}}
	require.True(t, idx.IsRelevant(spendingTx))
}
