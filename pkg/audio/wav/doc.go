// ABOUTME: WAV container package for PCM audio files
// ABOUTME: Provides sample-aligned Reader and Writer for Int16/Int32/Float32
// Package wav reads and writes PCM WAV files in the formats the wire
// protocol carries: 16-bit int, 32-bit int and 32-bit float, any sample
// rate and channel count.
//
// Samples cross the package boundary as raw little-endian bytes, which
// is also their wire representation, so streaming a file is a straight
// copy. Reads and writes are always whole-sample aligned.
//
// Example:
//
//	r, err := wav.Open("input.wav")
//	buf := make([]byte, 4096)
//	n, err := r.Read(buf)
package wav
