// Package logs wires up the node's three log streams (error, info,
// and wire-message traffic) as described in the specification's
// external interfaces section, using the same btclog/logrotate
// combination the teacher repo's own subsystems use for their
// package-level loggers.
package logs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Error, Info, and Message are the three named loggers this node
// writes to. They default to btclog.Disabled until Init is called, so
// packages that reference them before startup never panic.
var (
	Error   btclog.Logger = btclog.Disabled
	Info    btclog.Logger = btclog.Disabled
	Message btclog.Logger = btclog.Disabled
)

// rotators are kept around so Close can flush and release them.
var rotators []*rotator.Rotator

func openRotator(path string) (*rotator.Rotator, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}
	r, err := rotator.New(path, 10*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("logs: %w", err)
	}
	return r, nil
}

// Init opens the three configured log files through logrotate and
// wires a dedicated btclog logger to each one.
func Init(errorPath, infoPath, messagePath string) error {
	paths := []struct {
		path   string
		tag    string
		target *btclog.Logger
	}{
		{errorPath, "ERRR", &Error},
		{infoPath, "INFO", &Info},
		{messagePath, "MESG", &Message},
	}

	for _, p := range paths {
		r, err := openRotator(p.path)
		if err != nil {
			return err
		}
		rotators = append(rotators, r)

		backend := btclog.NewBackend(r)
		*p.target = backend.Logger(p.tag)
	}
	return nil
}

// Close flushes and releases the underlying log rotators.
func Close() {
	for _, r := range rotators {
		r.Close()
	}
	rotators = nil
}
