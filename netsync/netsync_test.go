package netsync

import (
	"context"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"github.com/taller-go/btcspv/chainstore"
	"github.com/taller-go/btcspv/peer"
	"github.com/taller-go/btcspv/pow"
	"github.com/taller-go/btcspv/wire"
)

func openTestStore(t *testing.T) *chainstore.Store {
	t.Helper()
	store, err := chainstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// mineHeader bumps nonce until the header's hash satisfies powLimit,
// the same brute-force approach a regtest-difficulty chain expects.
func mineHeader(h *wire.BlockHeader, powLimit *big.Int) {
	for {
		if pow.CheckProofOfWork(h.BlockHash(), h.Bits, powLimit) {
			return
		}
		h.Nonce++
	}
}

func TestSyncHeadersFromOnePeerAppendsChain(t *testing.T) {
	store := openTestStore(t)
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	genesis := wire.BlockHeader{Version: 1, Bits: pow.BigToCompact(powLimit)}
	mineHeader(&genesis, powLimit)
	_, err := store.AppendHeader(genesis)
	require.NoError(t, err)

	next := wire.BlockHeader{Version: 1, PrevHash: genesis.BlockHash(), Bits: pow.BigToCompact(powLimit)}
	mineHeader(&next, powLimit)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	coord := NewCoordinator(store, nil, nil)
	sess := peer.NewSession("test", peer.NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, coord.Handlers())
	defer sess.Shutdown()

	go func() {
		msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
		if err != nil {
			return
		}
		_, ok := msg.(*wire.MsgGetHeaders)
		require.True(t, ok)
		wire.WriteMessage(clientConn, &wire.MsgHeaders{Headers: []*wire.BlockHeader{&next}}, wire.ProtocolVersion, wire.TestNet3)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	caughtUp, err := coord.syncHeadersFromOnePeer(ctx, sess, Params{PowLimit: powLimit})
	require.NoError(t, err)
	require.True(t, caughtUp)
	require.True(t, store.HasHeader(next.BlockHash()))
}

// TestFetchBatchRejectsBadMerkleRoot covers the block-validation gap a
// peer could otherwise exploit: a block whose body doesn't match its
// own header must never reach the store, even though its header alone
// satisfies proof of work.
func TestFetchBatchRejectsBadMerkleRoot(t *testing.T) {
	store := openTestStore(t)
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	header := wire.BlockHeader{Version: 1, Bits: pow.BigToCompact(powLimit)}
	mineHeader(&header, powLimit)
	block := &wire.MsgBlock{
		Header:       header,
		Transactions: []*wire.MsgTx{{TxOut: []*wire.TxOut{{Value: 1}}}},
	}
	// block.Header.MerkleRoot (zero) doesn't match the one real tx above.

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	coord := NewCoordinator(store, nil, nil)
	sess := peer.NewSession("test", peer.NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, coord.Handlers())
	defer sess.Shutdown()

	go func() {
		msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
		if err != nil {
			return
		}
		if _, ok := msg.(*wire.MsgGetData); ok {
			wire.WriteMessage(clientConn, block, wire.ProtocolVersion, wire.TestNet3)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	fetched, missing, err := coord.fetchBatch(ctx, sess, []chainhash.Hash{header.BlockHash()}, nil, powLimit)
	require.NoError(t, err)
	require.Equal(t, 0, fetched)
	require.Contains(t, missing, header.BlockHash())
	require.False(t, store.HasBlock(header.BlockHash()))
}

// TestRunSteadyStateAppendsHeaderAndRequestsBlock covers the post-IBD
// path: a header arriving after Run has returned must still be
// validated, appended, and followed by a getdata for its block, rather
// than silently dropped once nothing is draining the IBD channels.
func TestRunSteadyStateAppendsHeaderAndRequestsBlock(t *testing.T) {
	store := openTestStore(t)
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))

	genesis := wire.BlockHeader{Version: 1, Bits: pow.BigToCompact(powLimit)}
	mineHeader(&genesis, powLimit)
	_, err := store.AppendHeader(genesis)
	require.NoError(t, err)

	next := wire.BlockHeader{Version: 1, PrevHash: genesis.BlockHash(), Bits: pow.BigToCompact(powLimit)}
	mineHeader(&next, powLimit)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	coord := NewCoordinator(store, nil, nil)
	sess := peer.NewSession("test", peer.NewConnTransport(serverConn), wire.TestNet3, wire.ProtocolVersion, 0, coord.Handlers())
	defer sess.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go coord.RunSteadyState(ctx, powLimit)

	wire.WriteMessage(clientConn, &wire.MsgHeaders{Headers: []*wire.BlockHeader{&next}}, wire.ProtocolVersion, wire.TestNet3)

	msg, _, err := wire.ReadMessage(clientConn, wire.ProtocolVersion, wire.TestNet3, wire.MakeEmptyMessage)
	require.NoError(t, err)
	gd, ok := msg.(*wire.MsgGetData)
	require.True(t, ok)
	require.Equal(t, next.BlockHash(), gd.InvList[0].Hash)
	require.True(t, store.HasHeader(next.BlockHash()))
}
