// ABOUTME: FLAC source decoding frames to interleaved PCM bytes
// ABOUTME: 16-bit streams map to Int16, 24-bit streams widen to Int32
package source

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

type flacSource struct {
	stream *flac.Stream
	format audio.Format
	// pending holds decoded interleaved bytes not yet handed out.
	pending []byte
	eof     bool
}

func openFLAC(path string) (Source, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flac: %w", err)
	}
	info := stream.Info

	format := audio.Format{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		Kind:       audio.Int,
	}
	switch info.BitsPerSample {
	case 16:
		format.BitDepth = 16
	case 24:
		// Widen to the supported 32-bit container.
		format.BitDepth = 32
	default:
		stream.Close()
		return nil, fmt.Errorf("%w: %d-bit flac", audio.ErrUnsupportedFormat, info.BitsPerSample)
	}

	return &flacSource{stream: stream, format: format}, nil
}

func (s *flacSource) Format() audio.Format { return s.format }

func (s *flacSource) Read(p []byte) (int, error) {
	width := s.format.BytesPerSample()
	if len(p) < width {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)-len(p)%width]

	for len(s.pending) < len(p) && !s.eof {
		if err := s.decodeFrame(); err != nil {
			if err == io.EOF {
				s.eof = true
				break
			}
			return 0, err
		}
	}

	n := copy(p, s.pending)
	n -= n % width
	s.pending = s.pending[n:]
	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (s *flacSource) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}
	nsamples := frame.Subframes[0].NSamples
	for i := 0; i < nsamples; i++ {
		for _, sub := range frame.Subframes {
			sample := sub.Samples[i]
			switch s.format.BitDepth {
			case 16:
				var b [2]byte
				binary.LittleEndian.PutUint16(b[:], uint16(int16(sample)))
				s.pending = append(s.pending, b[:]...)
			case 32:
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(sample<<8))
				s.pending = append(s.pending, b[:]...)
			}
		}
	}
	return nil
}

func (s *flacSource) Close() error {
	return s.stream.Close()
}
