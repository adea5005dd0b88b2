// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the Bitcoin testnet peer-to-peer wire protocol:
// CompactSize encoding, 24-byte message framing, and the message
// codecs this node speaks (version, verack, ping, pong, getheaders,
// headers, inv, getdata, notfound, tx, block).
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ProtocolVersion is the latest protocol version this package supports.
	ProtocolVersion uint32 = 70015

	// BIP0031Version is the protocol version AFTER which a pong message
	// and nonce field in ping were added (pver > BIP0031Version).
	BIP0031Version uint32 = 60000
)

// MaxMessagePayload is the maximum bytes a message payload may be before
// the framing layer rejects it outright.
const MaxMessagePayload = 32 * 1024 * 1024 // 32 MiB

// CommandSize is the fixed width of the NUL-padded ASCII command name in
// a message header.
const CommandSize = 12

// Recognized command strings.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdTx          = "tx"
	CmdBlock       = "block"
)

// ServiceFlag identifies services supported by a bitcoin peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork is a flag used to indicate a peer is a full node.
	SFNodeNetwork ServiceFlag = 1 << iota
)

// HasFlag returns a bool indicating if the service has the given flag.
func (f ServiceFlag) HasFlag(s ServiceFlag) bool {
	return f&s == s
}

var sfStrings = map[ServiceFlag]string{
	SFNodeNetwork: "SFNodeNetwork",
}

// String returns the ServiceFlag in human-readable form.
func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}
	s := ""
	if f.HasFlag(SFNodeNetwork) {
		s += sfStrings[SFNodeNetwork] + "|"
		f -= SFNodeNetwork
	}
	s = strings.TrimRight(s, "|")
	if f != 0 {
		s += "|0x" + strconv.FormatUint(uint64(f), 16)
	}
	return strings.TrimLeft(s, "|")
}

// BitcoinNet represents which bitcoin network a message belongs to.
type BitcoinNet uint32

const (
	// TestNet3 represents the test network (version 3). Written in the
	// specification as 0x0B110907 with the bytes in the order they're
	// read off the wire; as a little-endian uint32 that is 0x0709110b.
	TestNet3 BitcoinNet = 0x0709110b
)

// String returns the BitcoinNet in human-readable form.
func (n BitcoinNet) String() string {
	if n == TestNet3 {
		return "TestNet3"
	}
	return fmt.Sprintf("Unknown BitcoinNet (%d)", uint32(n))
}
