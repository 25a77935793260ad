// ABOUTME: Audio capture package for the default input device
// ABOUTME: Provides a malgo capture stream and a record-to-WAV helper
// Package input captures audio from the default input device.
//
// Capture is push-based: the backend invokes a Callback on its own
// audio thread with each period of raw little-endian sample bytes.
//
// Example:
//
//	err := input.Record(ctx, "out.wav", 3*time.Second, input.DefaultFormat)
package input
