package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayToPubKeyHashTemplateBytes(t *testing.T) {
	var hash [20]byte
	for i := range hash {
		hash[i] = byte(i)
	}

	script := PayToPubKeyHash(hash)
	require.Len(t, script, P2PKHScriptLen)
	require.Equal(t, byte(OpDup), script[0])
	require.Equal(t, byte(OpHash160), script[1])
	require.Equal(t, byte(OpData20), script[2])
	require.Equal(t, byte(OpEqualVerify), script[23])
	require.Equal(t, byte(OpCheckSig), script[24])

	got, ok := ExtractPubKeyHash(script)
	require.True(t, ok)
	require.Equal(t, hash, got)
}

func TestExtractPubKeyHashRejectsOtherScripts(t *testing.T) {
	_, ok := ExtractPubKeyHash([]byte{0x51})
	require.False(t, ok)

	tampered := PayToPubKeyHash([20]byte{})
	tampered[0] = 0x00
	require.False(t, IsPayToPubKeyHash(tampered))
}

func TestBuildSignatureScript(t *testing.T) {
	sig := []byte{0x30, 0x01, 0x02}
	pub := []byte{0x02, 0x03, 0x04}

	script, err := BuildSignatureScript(sig, pub)
	require.NoError(t, err)
	require.Equal(t, byte(len(sig)), script[0])
	require.Equal(t, sig, script[1:1+len(sig)])
	require.Equal(t, byte(len(pub)), script[1+len(sig)])
	require.Equal(t, pub, script[2+len(sig):])
}
