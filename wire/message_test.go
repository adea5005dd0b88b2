package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	ping := &MsgPing{Nonce: 0xdeadbeefcafebabe}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ping, ProtocolVersion, TestNet3))

	got, cmd, err := ReadMessage(&buf, ProtocolVersion, TestNet3, MakeEmptyMessage)
	require.NoError(t, err)
	require.Equal(t, CmdPing, cmd)
	require.Equal(t, ping, got)
}

func TestReadMessageRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &MsgVerAck{}, ProtocolVersion, TestNet3))

	raw := buf.Bytes()
	raw[0] ^= 0xff // corrupt the magic

	_, _, err := ReadMessage(bytes.NewReader(raw), ProtocolVersion, TestNet3, MakeEmptyMessage)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestReadMessageRejectsBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &MsgPing{Nonce: 7}, ProtocolVersion, TestNet3))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff // corrupt the payload without touching the header

	_, _, err := ReadMessage(bytes.NewReader(raw), ProtocolVersion, TestNet3, MakeEmptyMessage)
	require.ErrorIs(t, err, ErrBadChecksum)
}

func TestReadMessageSkipsUnknownCommand(t *testing.T) {
	var payload bytes.Buffer
	payload.WriteString("unused payload")

	var buf bytes.Buffer
	require.NoError(t, writeHeader(&buf, TestNet3, "frobnicate", uint32(payload.Len()), checksum(payload.Bytes())))
	buf.Write(payload.Bytes())

	// A trailing, well-formed message should still be readable after
	// the unknown one was skipped.
	require.NoError(t, WriteMessage(&buf, &MsgVerAck{}, ProtocolVersion, TestNet3))

	msg, cmd, err := ReadMessage(&buf, ProtocolVersion, TestNet3, MakeEmptyMessage)
	require.NoError(t, err)
	require.Nil(t, msg)
	require.Equal(t, "frobnicate", cmd)

	msg, cmd, err = ReadMessage(&buf, ProtocolVersion, TestNet3, MakeEmptyMessage)
	require.NoError(t, err)
	require.Equal(t, CmdVerAck, cmd)
	require.IsType(t, &MsgVerAck{}, msg)
}
