package wire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxBlockLocatorsPerMsg bounds the number of locator hashes a
// getheaders message may carry.
const MaxBlockLocatorsPerMsg = 500

// MsgGetHeaders requests headers following the best match against its
// locator hashes, stopping at HashStop (the zero hash means "as many
// as the peer is willing to send").
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }

func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], msg.ProtocolVersion)
	if _, err := w.Write(ver[:]); err != nil {
		return err
	}
	if err := WriteCompactSize(w, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, h := range msg.BlockLocatorHashes {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	_, err := w.Write(msg.HashStop[:])
	return err
}

func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	var ver [4]byte
	if _, err := io.ReadFull(r, ver[:]); err != nil {
		return err
	}
	msg.ProtocolVersion = binary.LittleEndian.Uint32(ver[:])

	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.BlockLocatorHashes = make([]chainhash.Hash, count)
	for i := range msg.BlockLocatorHashes {
		if _, err := io.ReadFull(r, msg.BlockLocatorHashes[i][:]); err != nil {
			return err
		}
	}

	_, err = io.ReadFull(r, msg.HashStop[:])
	return err
}

// MaxHeadersPerMsg is the largest batch of headers a single "headers"
// message may carry; a batch smaller than this terminates IBD's
// header phase.
const MaxHeadersPerMsg = 2000

// MsgHeaders carries a batch of block headers with no transactions
// (the trailing tx_count is always zero on the wire).
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (msg *MsgHeaders) Command() string { return CmdHeaders }

func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteCompactSize(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, h := range msg.Headers {
		if err := h.Serialize(w); err != nil {
			return err
		}
		if err := WriteCompactSize(w, 0); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		h := new(BlockHeader)
		if err := h.Deserialize(r); err != nil {
			return err
		}
		if _, err := ReadCompactSize(r); err != nil {
			return err
		}
		msg.Headers[i] = h
	}
	return nil
}
