// ABOUTME: Tests for source resolution and sample alignment
// ABOUTME: WAV resolution uses real files, alignment uses a chunky reader
package source

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/audio/wav"
)

func TestOpenRejectsUnknownExtension(t *testing.T) {
	if _, err := Open("stream.ogg"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestOpenResolvesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16, Kind: audio.Int}

	w := wav.NewWriter(path)
	if err := w.SetFormat(format); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte{1, 0, 2, 0, 3, 0}); err != nil {
		t.Fatal(err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if src.Format() != format {
		t.Errorf("format: expected %v, got %v", format, src.Format())
	}
	buf := make([]byte, 16)
	n, err := src.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{1, 0, 2, 0, 3, 0}) {
		t.Errorf("unexpected samples %v", buf[:n])
	}
}

// chunkyReader returns a fixed stream in awkward chunk sizes.
type chunkyReader struct {
	data  []byte
	chunk int
}

func (r *chunkyReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestAlignReaderEmitsWholeSamplesOnly(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r := newAlignReader(&chunkyReader{data: data, chunk: 3}, 4)

	var got []byte
	buf := make([]byte, 4)
	for {
		n, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if n%4 != 0 {
			t.Fatalf("partial sample: %d bytes", n)
		}
		got = append(got, buf[:n]...)
	}

	// 10 input bytes hold two whole 4-byte samples.
	if !bytes.Equal(got, data[:8]) {
		t.Errorf("expected %v, got %v", data[:8], got)
	}
}

func TestAlignReaderShortBuffer(t *testing.T) {
	r := newAlignReader(&chunkyReader{data: []byte{1, 2, 3, 4}, chunk: 4}, 4)
	if _, err := r.Read(make([]byte, 2)); err != io.ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}
