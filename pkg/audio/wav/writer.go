// ABOUTME: WAV file writer consuming raw little-endian sample bytes
// ABOUTME: Lazily creates the file once the format is known, finalizes once
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

const headerSize = 44

// ErrNoFormat is returned for writes attempted before the format is set.
var ErrNoFormat = errors.New("wav writer: format not set")

// Writer encodes raw little-endian PCM bytes into a WAV file. The
// physical file is created on SetFormat, since the container header
// cannot be written before the format is known.
type Writer struct {
	path      string
	f         *os.File
	bw        *bufio.Writer
	format    audio.Format
	dataBytes uint32
	open      bool
	finalized bool
}

// NewWriter prepares a writer for the named path without touching the
// filesystem.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// SetFormat fixes the output format and creates the file with a
// placeholder header. Calling it again once set is a no-op.
func (w *Writer) SetFormat(f audio.Format) error {
	if w.open {
		return nil
	}
	if w.finalized {
		return errors.New("wav writer: already finalized")
	}
	if err := f.Validate(); err != nil {
		return err
	}
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	w.f = file
	w.bw = bufio.NewWriter(file)
	w.format = f
	w.open = true
	// Sizes are patched in Finalize.
	return w.writeHeader(0)
}

// Write appends raw sample bytes, discarding any trailing bytes that do
// not form a whole sample.
func (w *Writer) Write(data []byte) (int, error) {
	if w.finalized {
		return 0, errors.New("wav writer: write after finalize")
	}
	if !w.open {
		return 0, ErrNoFormat
	}
	width := w.format.BytesPerSample()
	n := len(data) - len(data)%width
	if n == 0 {
		return 0, nil
	}
	if _, err := w.bw.Write(data[:n]); err != nil {
		return 0, fmt.Errorf("write wav samples: %w", err)
	}
	w.dataBytes += uint32(n)
	return n, nil
}

// Finalize patches the container sizes and closes the file. It runs at
// most once; if no format was ever set there is nothing to flush.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	if !w.open {
		return nil
	}
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flush wav: %w", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		w.f.Close()
		return fmt.Errorf("seek wav header: %w", err)
	}
	if err := w.writeHeaderTo(w.f, w.dataBytes); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func (w *Writer) writeHeader(dataBytes uint32) error {
	return w.writeHeaderTo(w.bw, dataBytes)
}

func (w *Writer) writeHeaderTo(dst io.Writer, dataBytes uint32) error {
	f := w.format
	tag := uint16(formatPCM)
	if f.Kind == audio.Float {
		tag = formatIEEEFloat
	}
	blockAlign := uint16(f.FrameBytes())
	byteRate := uint32(f.SampleRate) * uint32(blockAlign)

	var hdr [headerSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], headerSize-8+dataBytes)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], tag)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(f.BitDepth))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataBytes)

	if _, err := dst.Write(hdr[:]); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	return nil
}
