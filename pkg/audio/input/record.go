// ABOUTME: Record helper capturing the default input device to a WAV file
// ABOUTME: Runs for a fixed duration or until the context is cancelled
package input

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rstream-protocol/rstream-go/pkg/audio"
	"github.com/rstream-protocol/rstream-go/pkg/audio/wav"
)

// Record captures the default input device into a WAV file at path for
// the given duration. Cancelling ctx stops earlier; the file is
// finalized either way.
func Record(ctx context.Context, path string, duration time.Duration, format audio.Format) error {
	writer := wav.NewWriter(path)
	if err := writer.SetFormat(format); err != nil {
		return err
	}

	// The capture callback and the finalize path race on the writer;
	// the mutex keeps sample writes off a closed file.
	var mu sync.Mutex
	done := false

	capture, err := Start(format, func(in []byte) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		if _, err := writer.Write(in); err != nil {
			log.Printf("Warning: dropping captured period: %v", err)
		}
	})
	if err != nil {
		mu.Lock()
		done = true
		mu.Unlock()
		writer.Finalize()
		return err
	}

	log.Printf("Recording %s for %s", path, duration)
	select {
	case <-time.After(duration):
	case <-ctx.Done():
	}

	capture.Close()

	mu.Lock()
	done = true
	mu.Unlock()

	if err := writer.Finalize(); err != nil {
		return err
	}
	log.Printf("Recording %s complete", path)
	return nil
}
