// ABOUTME: Oto-based playback backend
// ABOUTME: Pure-Go output for Int16 and Float32 streams via a pull reader
package output

import (
	"fmt"
	"log"

	"github.com/ebitengine/oto/v3"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

// Oto plays audio through the default output device using the oto
// library. oto has no Int32 output format; callers needing the full
// matrix should use the malgo backend.
type Oto struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOto creates an unstarted oto output.
func NewOto() *Oto {
	return &Oto{}
}

// callbackReader adapts the pull callback to the io.Reader oto drives
// from its audio thread.
type callbackReader struct {
	cb Callback
}

func (r *callbackReader) Read(p []byte) (int, error) {
	r.cb(p)
	return len(p), nil
}

func otoFormat(f audio.Format) (oto.Format, error) {
	switch {
	case f.Kind == audio.Int && f.BitDepth == 16:
		return oto.FormatSignedInt16LE, nil
	case f.Kind == audio.Float && f.BitDepth == 32:
		return oto.FormatFloat32LE, nil
	default:
		return 0, fmt.Errorf("%w: %s not supported by oto backend", audio.ErrUnsupportedFormat, f)
	}
}

// Start builds the oto context and begins pulling samples through cb.
func (o *Oto) Start(format audio.Format, cb Callback) error {
	if o.ctx != nil {
		return fmt.Errorf("oto output already started")
	}
	sampleFormat, err := otoFormat(format)
	if err != nil {
		return err
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       sampleFormat,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("create oto context: %w", err)
	}
	<-readyChan

	o.ctx = ctx
	o.player = ctx.NewPlayer(&callbackReader{cb: cb})
	o.player.Play()

	log.Printf("Audio output started: %s (oto)", format)
	return nil
}

// Close stops playback. oto contexts cannot be torn down per process,
// so the context is suspended instead.
func (o *Oto) Close() error {
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.ctx != nil {
		if err := o.ctx.Suspend(); err != nil {
			log.Printf("Warning: oto context suspend error: %v", err)
		}
		o.ctx = nil
	}
	return nil
}
