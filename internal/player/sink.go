// ABOUTME: Audio sink interface and WAV file sink
// ABOUTME: Sinks receive the session's format once, then raw payload bytes
package player

import (
	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/audio/wav"
)

// Sink consumes the audio byte stream of one session. The orchestrator
// holds zero or more sinks and fans every Data payload out to all of
// them. UpdateFormat is called exactly once, before the first Write;
// Finalize exactly once, after the last.
type Sink interface {
	UpdateFormat(format audio.Format) error
	Write(data []byte) error
	Finalize() error
}

// FileSink persists the stream to a WAV file.
type FileSink struct {
	w *wav.Writer
}

// NewFileSink creates a sink writing to the named path. The file is
// created when the format arrives.
func NewFileSink(path string) *FileSink {
	return &FileSink{w: wav.NewWriter(path)}
}

func (s *FileSink) UpdateFormat(format audio.Format) error {
	return s.w.SetFormat(format)
}

func (s *FileSink) Write(data []byte) error {
	_, err := s.w.Write(data)
	return err
}

func (s *FileSink) Finalize() error {
	return s.w.Finalize()
}
