// ABOUTME: Server-side audio sources resolved by file extension
// ABOUTME: WAV is served natively, MP3 and FLAC are decoded to PCM
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/audio/wav"
)

// Source yields a stream's format and its samples as raw little-endian
// bytes, whole samples per read, io.EOF at end.
type Source interface {
	Format() audio.Format
	Read(p []byte) (int, error)
	Close() error
}

// Open resolves a source for the named file by extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Open(path)
	case ".mp3":
		return openMP3(path)
	case ".flac":
		return openFLAC(path)
	default:
		return nil, fmt.Errorf("unsupported source file %q", path)
	}
}
