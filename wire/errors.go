package wire

import "errors"

// Framing and codec errors, per the taxonomy in the specification's
// error handling design.
var (
	ErrBadMagic         = errors.New("wire: bad network magic")
	ErrBadCommand       = errors.New("wire: malformed command name")
	ErrOversizedPayload = errors.New("wire: payload exceeds maximum message size")
	ErrBadChecksum      = errors.New("wire: payload checksum mismatch")
)
