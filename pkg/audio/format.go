// ABOUTME: Audio format descriptor shared by the wire codec, WAV files and playback
// ABOUTME: Single source of truth for the sample-rate/channels/bit-depth/kind tuple
package audio

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for bit-depth/sample-kind combinations
// outside the supported matrix.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SampleKind distinguishes integer from floating-point PCM samples.
type SampleKind uint8

const (
	Int SampleKind = iota
	Float
)

func (k SampleKind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Format describes a PCM audio stream. It round-trips losslessly through
// the wire codec, the WAV container and the playback device configuration.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Kind       SampleKind
}

// Validate rejects formats outside the supported matrix:
// Int 16/32-bit and Float 32-bit.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels <= 0 || f.Channels > 255 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}
	switch f.Kind {
	case Int:
		if f.BitDepth != 16 && f.BitDepth != 32 {
			return fmt.Errorf("%w: %d-bit int", ErrUnsupportedFormat, f.BitDepth)
		}
	case Float:
		if f.BitDepth != 32 {
			return fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, f.BitDepth)
		}
	default:
		return fmt.Errorf("%w: sample kind %d", ErrUnsupportedFormat, uint8(f.Kind))
	}
	return nil
}

// BytesPerSample returns the width of a single sample in bytes.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// FrameBytes returns the size of one frame (one sample per channel).
func (f Format) FrameBytes() int {
	return f.Channels * f.BytesPerSample()
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %d-bit %s", f.SampleRate, f.Channels, f.BitDepth, f.Kind)
}
