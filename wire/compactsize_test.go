package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCompactSizeBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		want  []byte
	}{
		{252, []byte{0xfc}},
		{253, []byte{0xfd, 0xfd, 0x00}},
		{65535, []byte{0xfd, 0xff, 0xff}},
		{65536, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{4294967295, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		{4294967296, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteCompactSize(&buf, tc.value))
		require.Equal(t, tc.want, buf.Bytes())
	}
}

func TestReadCompactSizeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 252, 253, 500, 65535, 65536, 100000, 4294967295, 4294967296, 5000000000}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteCompactSize(&buf, v))
		got, err := ReadCompactSize(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, 0, buf.Len())
	}
}

func TestReadCompactSizeTruncated(t *testing.T) {
	_, err := ReadCompactSize(bytes.NewReader([]byte{0xfd, 0x01}))
	require.ErrorIs(t, err, ErrMalformedVarint)
}
