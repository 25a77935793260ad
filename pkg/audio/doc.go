// ABOUTME: Audio fundamentals package providing core types
// ABOUTME: Defines the Format description shared by wire and playback code
// Package audio provides the fundamental audio types shared across the
// rstream library.
//
// Format describes a raw PCM stream: sample rate, channel count, bit
// depth and sample kind (signed integer or IEEE float). The supported
// matrix is 16- and 32-bit integer plus 32-bit float; Validate rejects
// anything else so every layer above can trust a Format it is handed.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   16,
//	    Kind:       audio.Int,
//	}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	frame := make([]byte, format.FrameBytes())
package audio
