// ABOUTME: MP3 source decoding to 16-bit stereo PCM
// ABOUTME: Wraps go-mp3 with whole-sample read alignment
package source

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

// mp3Source streams a file through go-mp3, which always emits 16-bit
// stereo little-endian PCM at the source sample rate.
type mp3Source struct {
	f      *os.File
	r      *alignReader
	format audio.Format
}

func openMP3(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	format := audio.Format{
		SampleRate: dec.SampleRate(),
		Channels:   2,
		BitDepth:   16,
		Kind:       audio.Int,
	}
	return &mp3Source{
		f:      f,
		r:      newAlignReader(dec, format.BytesPerSample()),
		format: format,
	}, nil
}

func (s *mp3Source) Format() audio.Format { return s.format }

func (s *mp3Source) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *mp3Source) Close() error { return s.f.Close() }

// alignReader serves only whole samples from an underlying reader,
// carrying partial-sample tails between calls.
type alignReader struct {
	r     io.Reader
	width int
	carry []byte
	eof   bool
}

func newAlignReader(r io.Reader, width int) *alignReader {
	return &alignReader{r: r, width: width, carry: make([]byte, 0, width)}
}

func (a *alignReader) Read(p []byte) (int, error) {
	if len(p) < a.width {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)-len(p)%a.width]

	n := copy(p, a.carry)
	a.carry = a.carry[:0]

	for n < len(p) && !a.eof {
		m, err := a.r.Read(p[n:])
		n += m
		if err == io.EOF {
			a.eof = true
			break
		}
		if err != nil {
			return 0, err
		}
		if m == 0 {
			break
		}
	}

	if rem := n % a.width; rem != 0 {
		a.carry = append(a.carry, p[n-rem:n]...)
		n -= rem
	}
	if n == 0 {
		if a.eof {
			return 0, io.EOF
		}
	}
	return n, nil
}
