package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeaderLen is the fixed 80-byte wire size of a BlockHeader.
const BlockHeaderLen = 80

// BlockHeader is the 80-byte block header described in the
// specification's data model: version, previous block hash, merkle
// root, time, compact-encoded difficulty target, and nonce.
type BlockHeader struct {
	Version    int32
	PrevHash   chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Serialize writes the canonical 80-byte header encoding to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	buf := make([]byte, BlockHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Version))
	copy(buf[4:36], h.PrevHash[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(buf[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	_, err := w.Write(buf)
	return err
}

// Deserialize reads an 80-byte header from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	buf := make([]byte, BlockHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("block header: %w", err)
	}
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.PrevHash[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return nil
}

// Bytes returns the canonical 80-byte serialization.
func (h *BlockHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	_ = h.Serialize(&buf)
	return buf.Bytes()
}

// BlockHash returns the double-SHA-256 hash of the header's 80-byte
// serialization, as a little-endian-interpreted chain hash.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	return chainhash.DoubleHashH(h.Bytes())
}
