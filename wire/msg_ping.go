package wire

import (
	"encoding/binary"
	"io"
)

// MsgPing is the liveness-check "ping" message: an 8-byte nonce.
type MsgPing struct {
	Nonce uint64
}

func (msg *MsgPing) Command() string { return CmdPing }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], msg.Nonce)
	_, err := w.Write(buf[:])
	return err
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	msg.Nonce = binary.LittleEndian.Uint64(buf[:])
	return nil
}

// MsgPong echoes a ping's nonce.
type MsgPong struct {
	Nonce uint64
}

func (msg *MsgPong) Command() string { return CmdPong }

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], msg.Nonce)
	_, err := w.Write(buf[:])
	return err
}

func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	msg.Nonce = binary.LittleEndian.Uint64(buf[:])
	return nil
}
