// ABOUTME: Malgo-based playback backend via miniaudio
// ABOUTME: Covers the full S16/S32/F32 format matrix with a real-time data callback
package output

import (
	"fmt"
	"log"

	"github.com/gen2brain/malgo"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

// Malgo plays audio through the default output device via miniaudio.
type Malgo struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMalgo creates an unstarted malgo output.
func NewMalgo() *Malgo {
	return &Malgo{}
}

func malgoFormat(f audio.Format) (malgo.FormatType, error) {
	switch {
	case f.Kind == audio.Int && f.BitDepth == 16:
		return malgo.FormatS16, nil
	case f.Kind == audio.Int && f.BitDepth == 32:
		return malgo.FormatS32, nil
	case f.Kind == audio.Float && f.BitDepth == 32:
		return malgo.FormatF32, nil
	default:
		return 0, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, f)
	}
}

// Start builds and starts the playback stream. cb is invoked on the
// miniaudio device thread once per period.
func (m *Malgo) Start(format audio.Format, cb Callback) error {
	if m.device != nil {
		return fmt.Errorf("malgo output already started")
	}
	sampleFormat, err := malgoFormat(format)
	if err != nil {
		return err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutput, _ []byte, _ uint32) {
		cb(pOutput)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start playback device: %w", err)
	}

	m.ctx = ctx
	m.device = device
	log.Printf("Audio output started: %s (malgo)", format)
	return nil
}

// Close stops the device and tears down the context.
func (m *Malgo) Close() error {
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		if err := m.ctx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}
