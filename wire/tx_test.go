package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTx() *MsgTx {
	return &MsgTx{
		Version: 1,
		TxIn: []*TxIn{
			{
				PreviousOutPoint: OutPoint{Index: 0},
				SignatureScript:  []byte{0x01, 0x02, 0x03},
				Sequence:         0xffffffff,
			},
		},
		TxOut: []*TxOut{
			{Value: 5000, PkScript: []byte{0x76, 0xa9, 0x14}},
			{Value: 1000, PkScript: nil},
		},
		LockTime: 0,
	}
}

func TestMsgTxRoundTrip(t *testing.T) {
	tx := sampleTx()
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	got := new(MsgTx)
	require.NoError(t, got.Deserialize(&buf))
	require.Equal(t, tx, got)
}

func TestMsgTxHashMatchesDoubleSha256OfSerialization(t *testing.T) {
	tx := sampleTx()
	hash := tx.TxHash()

	// A differently-constructed but byte-identical tx must hash the same.
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	replay := new(MsgTx)
	require.NoError(t, replay.Deserialize(bytes.NewReader(buf.Bytes())))
	require.Equal(t, hash, replay.TxHash())
}

func TestMsgBlockRoundTrip(t *testing.T) {
	block := &MsgBlock{
		Header: BlockHeader{
			Version:    1,
			Timestamp:  1296688602,
			Bits:       0x1d00ffff,
			Nonce:      414098458,
		},
		Transactions: []*MsgTx{sampleTx(), sampleTx()},
	}

	var buf bytes.Buffer
	require.NoError(t, block.BtcEncode(&buf, ProtocolVersion))

	got := new(MsgBlock)
	require.NoError(t, got.BtcDecode(&buf, ProtocolVersion))
	require.Equal(t, block, got)
}

func TestCoinbaseInputRecognized(t *testing.T) {
	in := &TxIn{PreviousOutPoint: CoinbasePreviousOutPoint}
	require.True(t, in.IsCoinbase())

	notCoinbase := &TxIn{PreviousOutPoint: OutPoint{Index: 3}}
	require.False(t, notCoinbase.IsCoinbase())
}
