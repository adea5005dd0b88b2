// Package errs defines the error kind taxonomy shared across this
// node's components, per the specification's error handling design.
package errs

import "errors"

// Kind classifies an error for the propagation policy described in the
// specification's §7: which errors drop a message, drop a peer, rotate
// peers, or are fatal to the whole process.
type Kind int

const (
	KindConfig Kind = iota
	KindDNSResolution
	KindNoPeers
	KindHandshake
	KindIoRead
	KindIoWrite
	KindMalformedVarint
	KindBadMagic
	KindBadCommand
	KindOversizedPayload
	KindBadChecksum
	KindBadHeader
	KindBadBlock
	KindBadTransaction
	KindBadAddress
	KindBadWif
	KindInsufficientFunds
	KindStore
	KindLock
	KindChannelClosed
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "Config"
	case KindDNSResolution:
		return "DnsResolution"
	case KindNoPeers:
		return "NoPeers"
	case KindHandshake:
		return "Handshake"
	case KindIoRead:
		return "IoRead"
	case KindIoWrite:
		return "IoWrite"
	case KindMalformedVarint:
		return "MalformedVarint"
	case KindBadMagic:
		return "BadMagic"
	case KindBadCommand:
		return "BadCommand"
	case KindOversizedPayload:
		return "OversizedPayload"
	case KindBadChecksum:
		return "BadChecksum"
	case KindBadHeader:
		return "BadHeader"
	case KindBadBlock:
		return "BadBlock"
	case KindBadTransaction:
		return "BadTransaction"
	case KindBadAddress:
		return "BadAddress"
	case KindBadWif:
		return "BadWif"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindStore:
		return "Store"
	case KindLock:
		return "Lock"
	case KindChannelClosed:
		return "ChannelClosed"
	case KindShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Error pairs a Kind with an underlying cause, implementing the
// standard unwrap interface so callers can still errors.Is/As against
// the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. If err is nil, New returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err (or anything it wraps) was tagged with kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
