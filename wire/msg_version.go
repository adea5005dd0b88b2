package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// NetAddress is the 26-byte (for version messages, no timestamp)
// network address structure embedded in a version message.
type NetAddress struct {
	Services ServiceFlag
	IP       net.IP
	Port     uint16
}

func (na *NetAddress) serialize(w io.Writer) error {
	var buf [26]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(na.Services))
	ip := na.IP.To16()
	if ip == nil {
		ip = make(net.IP, 16)
	}
	copy(buf[8:24], ip)
	binary.BigEndian.PutUint16(buf[24:26], na.Port)
	_, err := w.Write(buf[:])
	return err
}

func (na *NetAddress) deserialize(r io.Reader) error {
	var buf [26]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	na.Services = ServiceFlag(binary.LittleEndian.Uint64(buf[0:8]))
	na.IP = make(net.IP, 16)
	copy(na.IP, buf[8:24])
	na.Port = binary.BigEndian.Uint16(buf[24:26])
	return nil
}

// writeVarString / readVarString implement Bitcoin's var_str: a
// CompactSize length prefix followed by that many bytes of string data.
func writeVarString(w io.Writer, s string) error {
	if err := WriteCompactSize(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readVarString(r io.Reader) (string, error) {
	n, err := ReadCompactSize(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

// MsgVersion is the handshake "version" message.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	var head [20]byte
	binary.LittleEndian.PutUint32(head[0:4], uint32(msg.ProtocolVersion))
	binary.LittleEndian.PutUint64(head[4:12], uint64(msg.Services))
	binary.LittleEndian.PutUint64(head[12:20], uint64(msg.Timestamp))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	if err := msg.AddrRecv.serialize(w); err != nil {
		return err
	}
	if err := msg.AddrFrom.serialize(w); err != nil {
		return err
	}
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], msg.Nonce)
	if _, err := w.Write(nonce[:]); err != nil {
		return err
	}
	if err := writeVarString(w, msg.UserAgent); err != nil {
		return err
	}
	var tail [4]byte
	binary.LittleEndian.PutUint32(tail[:], uint32(msg.StartHeight))
	if _, err := w.Write(tail[:]); err != nil {
		return err
	}
	relay := byte(0)
	if msg.Relay {
		relay = 1
	}
	_, err := w.Write([]byte{relay})
	return err
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	var head [20]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return err
	}
	msg.ProtocolVersion = int32(binary.LittleEndian.Uint32(head[0:4]))
	msg.Services = ServiceFlag(binary.LittleEndian.Uint64(head[4:12]))
	msg.Timestamp = int64(binary.LittleEndian.Uint64(head[12:20]))

	if err := msg.AddrRecv.deserialize(r); err != nil {
		return fmt.Errorf("version addr_recv: %w", err)
	}
	if err := msg.AddrFrom.deserialize(r); err != nil {
		return fmt.Errorf("version addr_from: %w", err)
	}

	var nonce [8]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return err
	}
	msg.Nonce = binary.LittleEndian.Uint64(nonce[:])

	ua, err := readVarString(r)
	if err != nil {
		return err
	}
	msg.UserAgent = ua

	var tail [4]byte
	if _, err := io.ReadFull(r, tail[:]); err != nil {
		return err
	}
	msg.StartHeight = int32(binary.LittleEndian.Uint32(tail[:]))

	var relay [1]byte
	if _, err := io.ReadFull(r, relay[:]); err != nil {
		return err
	}
	msg.Relay = relay[0] != 0
	return nil
}

// MsgVerAck is the empty-payload "verack" message.
type MsgVerAck struct{}

func (msg *MsgVerAck) Command() string                        { return CmdVerAck }
func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }
