package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Message is implemented by every payload type this package knows how
// to encode/decode. Unknown commands are skipped by the framing layer
// without ever being handed a Message implementation.
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
}

// messageHeader is the fixed 24-byte preamble that precedes every
// message's payload on the wire.
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

// emptyChecksum is the checksum of a zero-length payload,
// doubleSHA256(nil)[:4].
var emptyChecksum = func() [4]byte {
	var c [4]byte
	copy(c[:], chainhash.DoubleHashB(nil))
	return c
}()

func checksum(payload []byte) [4]byte {
	var c [4]byte
	copy(c[:], chainhash.DoubleHashB(payload))
	return c
}

// writeHeader serializes a message header to w.
func writeHeader(w io.Writer, net BitcoinNet, command string, length uint32, sum [4]byte) error {
	var cmdBuf [CommandSize]byte
	if len(command) > CommandSize {
		return fmt.Errorf("%w: %q longer than %d bytes", ErrBadCommand, command, CommandSize)
	}
	copy(cmdBuf[:], command)

	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(net))
	copy(buf[4:16], cmdBuf[:])
	binary.LittleEndian.PutUint32(buf[16:20], length)
	copy(buf[20:24], sum[:])
	_, err := w.Write(buf)
	return err
}

// readHeader reads and validates the 24-byte message header, checking
// the network magic, the command field's NUL padding, and the payload
// size cap, but not whether the command is a recognized one (unknown
// commands are a caller concern so they can be skipped rather than
// rejected).
func readHeader(r io.Reader, net BitcoinNet) (*messageHeader, error) {
	var buf [24]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	gotMagic := BitcoinNet(binary.LittleEndian.Uint32(buf[0:4]))
	if gotMagic != net {
		return nil, fmt.Errorf("%w: got 0x%08x want 0x%08x", ErrBadMagic, uint32(gotMagic), uint32(net))
	}

	cmdBuf := buf[4:16]
	nul := bytes.IndexByte(cmdBuf, 0)
	if nul == -1 {
		nul = len(cmdBuf)
	}
	for _, b := range cmdBuf[nul:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: not NUL-padded", ErrBadCommand)
		}
	}
	command := string(cmdBuf[:nul])

	length := binary.LittleEndian.Uint32(buf[16:20])
	if length > MaxMessagePayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizedPayload, length)
	}

	var sum [4]byte
	copy(sum[:], buf[20:24])

	return &messageHeader{magic: gotMagic, command: command, length: length, checksum: sum}, nil
}

// WriteMessage serializes msg, framed with the 24-byte header, to w.
func WriteMessage(w io.Writer, msg Message, pver uint32, net BitcoinNet) error {
	var payload bytes.Buffer
	if err := msg.BtcEncode(&payload, pver); err != nil {
		return err
	}
	if payload.Len() > MaxMessagePayload {
		return fmt.Errorf("%w: %d bytes", ErrOversizedPayload, payload.Len())
	}

	sum := emptyChecksum
	if payload.Len() > 0 {
		sum = checksum(payload.Bytes())
	}

	if err := writeHeader(w, net, msg.Command(), uint32(payload.Len()), sum); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadMessageHeader reads the framing header of the next message
// without interpreting its payload, returning the command name and
// the payload length so the caller can dispatch or skip it.
func ReadMessageHeader(r io.Reader, net BitcoinNet) (command string, payloadLen uint32, err error) {
	hdr, err := readHeader(r, net)
	if err != nil {
		return "", 0, err
	}
	return hdr.command, hdr.length, nil
}

// ReadPayload reads exactly n bytes of payload, verifies the checksum
// against wantSum, and decodes it into msg.
func ReadPayload(r io.Reader, n uint32, wantSum [4]byte, msg Message, pver uint32) error {
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return err
		}
	}

	gotSum := emptyChecksum
	if n > 0 {
		gotSum = checksum(payload)
	}
	if gotSum != wantSum {
		return ErrBadChecksum
	}

	return msg.BtcDecode(bytes.NewReader(payload), pver)
}

// ReadMessage reads one full framed message from r, dispatching on
// command name via makeEmptyMessage. If the command is unrecognized,
// ReadMessage discards the payload and returns (nil, command, nil) so
// callers can skip unknown messages per the wire specification.
func ReadMessage(r io.Reader, pver uint32, net BitcoinNet, makeEmptyMessage func(command string) Message) (Message, string, error) {
	hdr, err := readHeader(r, net)
	if err != nil {
		return nil, "", err
	}

	msg := makeEmptyMessage(hdr.command)
	if msg == nil {
		// Unknown command: discard the declared payload length and
		// move on, per the wire specification's "unknown commands
		// MUST be skipped" rule.
		if _, err := io.CopyN(io.Discard, r, int64(hdr.length)); err != nil {
			return nil, hdr.command, err
		}
		return nil, hdr.command, nil
	}

	if err := ReadPayload(r, hdr.length, hdr.checksum, msg, pver); err != nil {
		return nil, hdr.command, err
	}
	return msg, hdr.command, nil
}
