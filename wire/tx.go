package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutPoint identifies a single transaction output by the hash of the
// transaction that created it and its index within that transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash, o.Index)
}

// TxIn is a single transaction input, spending a prior output.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// CoinbasePreviousOutPoint is the well-known zero outpoint used by
// coinbase inputs: an all-zero hash and index 0xFFFFFFFF.
var CoinbasePreviousOutPoint = OutPoint{Index: 0xffffffff}

// IsCoinbase reports whether in references the coinbase outpoint.
func (in *TxIn) IsCoinbase() bool {
	return in.PreviousOutPoint == CoinbasePreviousOutPoint
}

func (in *TxIn) serialize(w io.Writer) error {
	if _, err := w.Write(in.PreviousOutPoint.Hash[:]); err != nil {
		return err
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], in.PreviousOutPoint.Index)
	if _, err := w.Write(idx[:]); err != nil {
		return err
	}
	if err := WriteCompactSize(w, uint64(len(in.SignatureScript))); err != nil {
		return err
	}
	if _, err := w.Write(in.SignatureScript); err != nil {
		return err
	}
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], in.Sequence)
	_, err := w.Write(seq[:])
	return err
}

func (in *TxIn) deserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, in.PreviousOutPoint.Hash[:]); err != nil {
		return err
	}
	var idx [4]byte
	if _, err := io.ReadFull(r, idx[:]); err != nil {
		return err
	}
	in.PreviousOutPoint.Index = binary.LittleEndian.Uint32(idx[:])

	scriptLen, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	in.SignatureScript = make([]byte, scriptLen)
	if scriptLen > 0 {
		if _, err := io.ReadFull(r, in.SignatureScript); err != nil {
			return err
		}
	}

	var seq [4]byte
	if _, err := io.ReadFull(r, seq[:]); err != nil {
		return err
	}
	in.Sequence = binary.LittleEndian.Uint32(seq[:])
	return nil
}

// TxOut is a single transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

func (out *TxOut) serialize(w io.Writer) error {
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], uint64(out.Value))
	if _, err := w.Write(val[:]); err != nil {
		return err
	}
	if err := WriteCompactSize(w, uint64(len(out.PkScript))); err != nil {
		return err
	}
	_, err := w.Write(out.PkScript)
	return err
}

func (out *TxOut) deserialize(r io.Reader) error {
	var val [8]byte
	if _, err := io.ReadFull(r, val[:]); err != nil {
		return err
	}
	out.Value = int64(binary.LittleEndian.Uint64(val[:]))

	scriptLen, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	out.PkScript = nil
	if scriptLen > 0 {
		out.PkScript = make([]byte, scriptLen)
		if _, err := io.ReadFull(r, out.PkScript); err != nil {
			return err
		}
	}
	return nil
}

// MsgTx is a Bitcoin transaction: version, inputs, outputs, lock time.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

func (msg *MsgTx) Command() string { return CmdTx }

// Serialize writes the canonical transaction encoding to w.
func (msg *MsgTx) Serialize(w io.Writer) error {
	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], uint32(msg.Version))
	if _, err := w.Write(ver[:]); err != nil {
		return err
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, in := range msg.TxIn {
		if err := in.serialize(w); err != nil {
			return err
		}
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, out := range msg.TxOut {
		if err := out.serialize(w); err != nil {
			return err
		}
	}

	var lt [4]byte
	binary.LittleEndian.PutUint32(lt[:], msg.LockTime)
	_, err := w.Write(lt[:])
	return err
}

// Deserialize reads a transaction from r.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var ver [4]byte
	if _, err := io.ReadFull(r, ver[:]); err != nil {
		return err
	}
	msg.Version = int32(binary.LittleEndian.Uint32(ver[:]))

	inCount, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := range msg.TxIn {
		in := new(TxIn)
		if err := in.deserialize(r); err != nil {
			return err
		}
		msg.TxIn[i] = in
	}

	outCount, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		out := new(TxOut)
		if err := out.deserialize(r); err != nil {
			return err
		}
		msg.TxOut[i] = out
	}

	var lt [4]byte
	if _, err := io.ReadFull(r, lt[:]); err != nil {
		return err
	}
	msg.LockTime = binary.LittleEndian.Uint32(lt[:])
	return nil
}

func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error { return msg.Serialize(w) }
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error { return msg.Deserialize(r) }

// Bytes returns the canonical serialization of msg.
func (msg *MsgTx) Bytes() []byte {
	var buf bytes.Buffer
	_ = msg.Serialize(&buf)
	return buf.Bytes()
}

// TxHash returns the double-SHA-256 hash of msg's canonical
// serialization (the txid).
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.DoubleHashH(msg.Bytes())
}

// Copy returns a deep copy of msg, used by the signer to build the
// per-input sighash preimage without mutating the original.
func (msg *MsgTx) Copy() *MsgTx {
	cp := &MsgTx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		TxIn:     make([]*TxIn, len(msg.TxIn)),
		TxOut:    make([]*TxOut, len(msg.TxOut)),
	}
	for i, in := range msg.TxIn {
		script := make([]byte, len(in.SignatureScript))
		copy(script, in.SignatureScript)
		cp.TxIn[i] = &TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  script,
			Sequence:         in.Sequence,
		}
	}
	for i, out := range msg.TxOut {
		script := make([]byte, len(out.PkScript))
		copy(script, out.PkScript)
		cp.TxOut[i] = &TxOut{Value: out.Value, PkScript: script}
	}
	return cp
}
