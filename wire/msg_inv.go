package wire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// InvType identifies what an inventory vector refers to.
type InvType uint32

const (
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

// InvVect is a single inventory vector: a type tag plus the hash of
// the object being advertised or requested.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

func (iv *InvVect) serialize(w io.Writer) error {
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], uint32(iv.Type))
	if _, err := w.Write(t[:]); err != nil {
		return err
	}
	_, err := w.Write(iv.Hash[:])
	return err
}

func (iv *InvVect) deserialize(r io.Reader) error {
	var t [4]byte
	if _, err := io.ReadFull(r, t[:]); err != nil {
		return err
	}
	iv.Type = InvType(binary.LittleEndian.Uint32(t[:]))
	_, err := io.ReadFull(r, iv.Hash[:])
	return err
}

// invList is shared wire shape for inv/getdata/notfound: a CompactSize
// count followed by that many 36-byte inventory vectors.
type invList struct {
	InvList []*InvVect
}

func (msg *invList) encode(w io.Writer) error {
	if err := WriteCompactSize(w, uint64(len(msg.InvList))); err != nil {
		return err
	}
	for _, iv := range msg.InvList {
		if err := iv.serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (msg *invList) decode(r io.Reader) error {
	count, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.InvList = make([]*InvVect, count)
	for i := range msg.InvList {
		iv := new(InvVect)
		if err := iv.deserialize(r); err != nil {
			return err
		}
		msg.InvList[i] = iv
	}
	return nil
}

// MsgInv announces objects the sender has.
type MsgInv struct{ invList }

func (msg *MsgInv) Command() string                         { return CmdInv }
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }

// MsgGetData requests the full objects named by its inventory vectors.
type MsgGetData struct{ invList }

func (msg *MsgGetData) Command() string                         { return CmdGetData }
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }

// MsgNotFound answers a getdata for objects the peer does not have.
type MsgNotFound struct{ invList }

func (msg *MsgNotFound) Command() string                         { return CmdNotFound }
func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
