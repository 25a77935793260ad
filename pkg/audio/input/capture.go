// ABOUTME: Malgo-based capture stream from the default input device
// ABOUTME: Pushes raw little-endian sample bytes to a caller callback
package input

import (
	"fmt"
	"log"

	"github.com/gen2brain/malgo"
	"github.com/rstream-protocol/rstream-go/pkg/audio"
)

// DefaultFormat is the capture format requested from the default input
// device; miniaudio converts from the hardware's native configuration.
var DefaultFormat = audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16, Kind: audio.Int}

// Callback receives each captured period as raw little-endian sample
// bytes. It runs on the capture device thread.
type Callback func(in []byte)

// Capture is a running input stream on the default capture device.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

func captureFormat(f audio.Format) (malgo.FormatType, error) {
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

// Start opens the default input device and begins delivering periods
// to cb.
func Start(format audio.Format, cb Callback) (*Capture, error) {
	sampleFormat, err := captureFormat(format)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = sampleFormat
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(_, pInput []byte, _ uint32) {
		cb(pInput)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start capture device: %w", err)
	}

	log.Printf("Audio capture started: %s", format)
	return &Capture{ctx: ctx, device: device}, nil
}

// Close stops the capture stream and releases the device.
func (c *Capture) Close() error {
	if c.device != nil {
		if err := c.device.Stop(); err != nil {
			log.Printf("Warning: capture stop error: %v", err)
		}
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}
	return nil
}
