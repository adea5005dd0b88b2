package wallet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/txscript"
	"github.com/taller-go/btcspv/utxoindex"
	"github.com/taller-go/btcspv/wire"
)

const (
	testWIF     = "cQojsQ5fSonENC5EnrzzTAWSGX8PB4TBh6GunBxcCdGMJJiLULwZ"
	testAddress = "mpzx6iZ1WX8hLSeDRKdkLatXXPN1GDWVaF"
)

func TestAddAccountRejectsMismatchedAddress(t *testing.T) {
	idx := utxoindex.New()
	w := New(idx, peer.NewPool(nil))

	_, err := w.AddAccount(testWIF, "mnEvYsxexfDEkCx2YLEfzhjrwKKcyAhMqV")
	require.Error(t, err)
}

func TestAddAccountWatchesAddressInIndex(t *testing.T) {
	idx := utxoindex.New()
	w := New(idx, peer.NewPool(nil))

	account, err := w.AddAccount(testWIF, testAddress)
	require.NoError(t, err)

	tx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 7777, PkScript: txscript.PayToPubKeyHash(account.PubKeyHash)}}}
	block := &wire.MsgBlock{Transactions: []*wire.MsgTx{tx}}
	idx.ApplyBlock(block)

	require.EqualValues(t, 7777, w.Balance(account))
}

func TestMakeTransactionBroadcastsInvToPool(t *testing.T) {
	idx := utxoindex.New()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	sess := peer.NewSession("peer", peer.NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, peer.Handlers{})
	defer sess.Shutdown()

	w := New(idx, peer.NewPool([]*peer.Session{sess}))

	account, err := w.AddAccount(testWIF, testAddress)
	require.NoError(t, err)

	fundingTx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 100000, PkScript: txscript.PayToPubKeyHash(account.PubKeyHash)}}}
	idx.ApplyBlock(&wire.MsgBlock{Transactions: []*wire.MsgTx{fundingTx}})

	recvDone := make(chan *wire.MsgInv, 1)
	go func() {
		msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
		if err != nil {
			return
		}
		if inv, ok := msg.(*wire.MsgInv); ok {
			recvDone <- inv
		}
	}()

	var toHash [20]byte
	toHash[0] = 0x01
	toAddr := "mnEvYsxexfDEkCx2YLEfzhjrwKKcyAhMqV"

	txHash, err := w.MakeTransaction(account, toAddr, 5000, 1000)
	require.NoError(t, err)

	inv := <-recvDone
	require.Len(t, inv.InvList, 1)
	require.Equal(t, wire.InvTypeTx, inv.InvList[0].Type)
	require.Equal(t, txHash, inv.InvList[0].Hash)
}

func TestHandleTxHoldsOnlyRelevantTransactions(t *testing.T) {
	idx := utxoindex.New()
	w := New(idx, peer.NewPool(nil))

	account, err := w.AddAccount(testWIF, testAddress)
	require.NoError(t, err)

	relevant := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 4000, PkScript: txscript.PayToPubKeyHash(account.PubKeyHash)}}}
	w.HandleTx(nil, relevant)
	_, ok := w.PendingTx(relevant.TxHash())
	require.True(t, ok)

	var otherHash [20]byte
	otherHash[0] = 0x02
	irrelevant := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 4000, PkScript: txscript.PayToPubKeyHash(otherHash)}}}
	w.HandleTx(nil, irrelevant)
	_, ok = w.PendingTx(irrelevant.TxHash())
	require.False(t, ok)
}
