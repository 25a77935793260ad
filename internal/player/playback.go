// ABOUTME: Real-time playback sink feeding a hardware output device
// ABOUTME: Lazily starts the stream on first write, finalize waits for drain
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/audio/output"
)

// DefaultBufferMs is the jitter buffer size used when none is given.
const DefaultBufferMs = 150

var (
	// ErrFormatLocked is returned for UpdateFormat after playback started.
	ErrFormatLocked = errors.New("playback format locked after stream start")

	// ErrFinalized is returned for writes after Finalize.
	ErrFinalized = errors.New("playback sink finalized")
)

// PlaybackSink renders the stream to an audio output device in real
// time. Network pushes land in a ring buffer; the device callback pops
// whole frames at the hardware cadence, emitting silence on underrun.
type PlaybackSink struct {
	dev       output.Device
	ring      *Ring
	format    audio.Format
	bufferMs  int
	hasFormat bool
	started   bool
	finalized bool
}

// NewPlaybackSink creates a sink on the named backend with a jitter
// buffer of bufferMs milliseconds.
func NewPlaybackSink(backend string, bufferMs int) (*PlaybackSink, error) {
	dev, err := output.New(backend)
	if err != nil {
		return nil, err
	}
	return newPlaybackSink(dev, bufferMs), nil
}

// newPlaybackSink wires a sink to an explicit device; tests inject a
// fake device here.
func newPlaybackSink(dev output.Device, bufferMs int) *PlaybackSink {
	if bufferMs <= 0 {
		bufferMs = DefaultBufferMs
	}
	return &PlaybackSink{dev: dev, bufferMs: bufferMs}
}

// UpdateFormat sets the negotiated format. It may only be called before
// the stream starts; sample-width dispatch is resolved once per session.
func (s *PlaybackSink) UpdateFormat(format audio.Format) error {
	if s.started {
		return ErrFormatLocked
	}
	if err := format.Validate(); err != nil {
		return err
	}
	s.format = format
	s.hasFormat = true
	return nil
}

// Write pushes raw sample bytes toward the device. The hardware stream
// is built and started on the first call, once the format is known.
func (s *PlaybackSink) Write(data []byte) error {
	if s.finalized {
		return ErrFinalized
	}
	if !s.hasFormat {
		return errors.New("playback sink: format not set")
	}
	if !s.started {
		frameBytes := s.format.FrameBytes()
		capacity := s.format.SampleRate * frameBytes * s.bufferMs / 1000
		s.ring = NewRing(capacity, frameBytes)
		if err := s.dev.Start(s.format, s.ring.ReadFrame); err != nil {
			return fmt.Errorf("start playback: %w", err)
		}
		s.started = true
	}
	return s.ring.Push(data)
}

// Finalize waits until everything pushed has been played, then stops
// and releases the device. Further writes are rejected.
func (s *PlaybackSink) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	if !s.started {
		return nil
	}

	// The drain signal fires when the ring empties; the device is still
	// sounding its final period, so the deadline only guards against a
	// dead callback.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.ring.WaitDrained(ctx)

	s.ring.Close()
	if cerr := s.dev.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
