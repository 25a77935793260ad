// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Device interface with malgo and oto backends
// Package output provides audio playback devices.
//
// Playback is pull-based: the backend invokes a Callback on its own
// audio thread to fill each output period, and the callback must never
// block. The malgo backend covers the full Int16/Int32/Float32 matrix;
// the pure-Go oto backend covers Int16 and Float32.
//
// Example:
//
//	dev, err := output.New("malgo")
//	err = dev.Start(format, fillFrames)
//	defer dev.Close()
package output
