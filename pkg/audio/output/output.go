// ABOUTME: Audio output device interface definition
// ABOUTME: Common contract for callback-driven playback backends
package output

import (
	"fmt"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

// Callback fills out with raw little-endian sample bytes in the format
// the device was started with. It runs on the backend's audio thread
// and must return within the device period: no blocking I/O, no
// unbounded allocation.
type Callback func(out []byte)

// Device is a playback output fed by a pull callback.
type Device interface {
	// Start builds the hardware stream for the format and begins
	// invoking cb to fill it.
	Start(format audio.Format, cb Callback) error

	// Close stops the stream and releases the device.
	Close() error
}

// New returns the backend with the given name: "malgo" (default) or "oto".
func New(backend string) (Device, error) {
	switch backend {
	case "", "malgo":
		return NewMalgo(), nil
	case "oto":
		return NewOto(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
