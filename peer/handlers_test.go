package peer

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/wire"
)

type fakeBlocks struct {
	blocks map[chainhash.Hash]*wire.MsgBlock
}

func (f *fakeBlocks) HasBlock(hash chainhash.Hash) bool { _, ok := f.blocks[hash]; return ok }
func (f *fakeBlocks) GetBlock(hash chainhash.Hash) (*wire.MsgBlock, error) {
	b, ok := f.blocks[hash]
	if !ok {
		return nil, errors.New("block not found")
	}
	return b, nil
}

type fakeTxs struct {
	txs map[chainhash.Hash]*wire.MsgTx
}

func (f *fakeTxs) PendingTx(hash chainhash.Hash) (*wire.MsgTx, bool) {
	tx, ok := f.txs[hash]
	return tx, ok
}

func newHandlerTestSession(t *testing.T, h Handlers) (*Session, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })
	sess := NewSession("test", NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, h)
	t.Cleanup(sess.Shutdown)
	return sess, clientConn
}

func TestSteadyStateOnInvRequestsUnseenTxOnly(t *testing.T) {
	ss := NewSteadyState(&fakeBlocks{}, &fakeTxs{}, nil)
	sess, clientConn := newHandlerTestSession(t, Handlers{})

	var txHash, blockHash chainhash.Hash
	txHash[0] = 0x01
	blockHash[0] = 0x02
	inv := &wire.MsgInv{}
	inv.InvList = []*wire.InvVect{
		{Type: wire.InvTypeTx, Hash: txHash},
		{Type: wire.InvTypeBlock, Hash: blockHash},
	}

	ss.OnInv(sess, inv)
	msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	gd, ok := msg.(*wire.MsgGetData)
	require.True(t, ok)
	require.Len(t, gd.InvList, 1)
	require.Equal(t, wire.InvTypeTx, gd.InvList[0].Type)
	require.Equal(t, txHash, gd.InvList[0].Hash)

	// A repeat announcement of the same tx is deduped and requests nothing.
	ss.OnInv(sess, inv)
	done := make(chan struct{})
	go func() {
		wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("expected no further getdata for an already-seen tx inv")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSteadyStateOnGetDataServesBlockAndNotFound(t *testing.T) {
	block := &wire.MsgBlock{Header: wire.BlockHeader{Nonce: 7}}
	blocks := &fakeBlocks{blocks: map[chainhash.Hash]*wire.MsgBlock{block.Header.BlockHash(): block}}
	ss := NewSteadyState(blocks, &fakeTxs{txs: map[chainhash.Hash]*wire.MsgTx{}}, nil)
	sess, clientConn := newHandlerTestSession(t, Handlers{})

	var missingHash chainhash.Hash
	missingHash[0] = 0xFF
	gd := &wire.MsgGetData{}
	gd.InvList = []*wire.InvVect{
		{Type: wire.InvTypeBlock, Hash: block.Header.BlockHash()},
		{Type: wire.InvTypeTx, Hash: missingHash},
	}
	ss.OnGetData(sess, gd)

	msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	gotBlock, ok := msg.(*wire.MsgBlock)
	require.True(t, ok)
	require.Equal(t, block.Header.BlockHash(), gotBlock.Header.BlockHash())

	msg, _, err = wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	nf, ok := msg.(*wire.MsgNotFound)
	require.True(t, ok)
	require.Len(t, nf.InvList, 1)
	require.Equal(t, missingHash, nf.InvList[0].Hash)
}

func TestSteadyStateOnTxForwardsToCallback(t *testing.T) {
	received := make(chan *wire.MsgTx, 1)
	ss := NewSteadyState(&fakeBlocks{}, &fakeTxs{}, func(s *Session, tx *wire.MsgTx) { received <- tx })
	sess, _ := newHandlerTestSession(t, Handlers{})

	tx := &wire.MsgTx{TxOut: []*wire.TxOut{{Value: 100}}}
	ss.OnTx(sess, tx)

	select {
	case got := <-received:
		require.Equal(t, tx.TxHash(), got.TxHash())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnTx callback")
	}
}
