// ABOUTME: WAV file reader producing whole-sample little-endian bytes
// ABOUTME: Parses the RIFF container and exposes the recovered audio format
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// ErrNotWAV is returned when the file is not a RIFF/WAVE container.
var ErrNotWAV = errors.New("not a WAV file")

// Reader decodes interleaved PCM samples from a WAV file.
type Reader struct {
	f         *os.File
	format    audio.Format
	remaining int64
}

// Open parses the container header of the named file and positions the
// reader at the first sample.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	r := &Reader{f: f}
	if err := r.parseHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Format returns the audio format recovered from the file header.
func (r *Reader) Format() audio.Format {
	return r.format
}

// Read fills p with as many whole samples as fit and returns the byte
// count. It never writes a partial sample. End of stream is io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	width := r.format.BytesPerSample()
	if len(p) < width {
		return 0, io.ErrShortBuffer
	}
	want := int64(len(p) - len(p)%width)
	if want > r.remaining {
		want = r.remaining
	}
	n, err := io.ReadFull(r.f, p[:want])
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// Header promised more data than the file holds. Keep the whole
		// samples we got and end the stream.
		r.remaining = 0
		n -= n % width
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read wav samples: %w", err)
	}
	r.remaining -= int64(n)
	return n, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// parseHeader walks the RIFF chunks until the data chunk, extracting the
// format along the way.
func (r *Reader) parseHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.f, riff[:]); err != nil {
		return fmt.Errorf("%w: short header", ErrNotWAV)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("%w: missing RIFF/WAVE marker", ErrNotWAV)
	}

	haveFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r.f, chunk[:]); err != nil {
			return fmt.Errorf("%w: no data chunk", ErrNotWAV)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if err := r.parseFmt(int64(size)); err != nil {
				return err
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			r.remaining = int64(size)
			return nil
		default:
			// Skip ancillary chunks (LIST, fact, ...), padded to even size.
			skip := int64(size)
			if skip%2 == 1 {
				skip++
			}
			if _, err := r.f.Seek(skip, io.SeekCurrent); err != nil {
				return fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}

func (r *Reader) parseFmt(size int64) error {
	if size < 16 {
		return fmt.Errorf("%w: fmt chunk of %d bytes", ErrNotWAV, size)
	}
	var spec [16]byte
	if _, err := io.ReadFull(r.f, spec[:]); err != nil {
		return fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
	}
	if size > 16 {
		skip := size - 16
		if skip%2 == 1 {
			skip++
		}
		if _, err := r.f.Seek(skip, io.SeekCurrent); err != nil {
			return fmt.Errorf("skip fmt extension: %w", err)
		}
	}

	tag := binary.LittleEndian.Uint16(spec[0:2])
	var kind audio.SampleKind
	switch tag {
	case formatPCM:
		kind = audio.Int
	case formatIEEEFloat:
		kind = audio.Float
	default:
		return fmt.Errorf("%w: format tag %d", audio.ErrUnsupportedFormat, tag)
	}

	f := audio.Format{
		SampleRate: int(binary.LittleEndian.Uint32(spec[4:8])),
		Channels:   int(binary.LittleEndian.Uint16(spec[2:4])),
		BitDepth:   int(binary.LittleEndian.Uint16(spec[14:16])),
		Kind:       kind,
	}
	if err := f.Validate(); err != nil {
		return err
	}
	r.format = f
	return nil
}
