// Package capture acquires microphone audio for the live session. It
// wraps a miniaudio capture device and re-chunks whatever period size
// the backend delivers into fixed frames, so downstream consumers see a
// steady cadence of equally sized blocks.
package capture

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/mahir-live/mahir/pkg/audio"
)

const (
	// DefaultSampleRate is the capture rate the live API expects.
	DefaultSampleRate = 16000
	// DefaultFrameSamples is the per-frame sample count delivered to the
	// frame callback.
	DefaultFrameSamples = 4096
)

// Config specifies the capture format.
type Config struct {
	SampleRate   int
	FrameSamples int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.FrameSamples <= 0 {
		c.FrameSamples = DefaultFrameSamples
	}
	return c
}

// FrameFunc receives one fixed-size frame of mono float samples plus
// the frame's meter level in [0, 1].
type FrameFunc func(samples []float32, level float64)

// Device is an open microphone. It holds the hardware handle
// exclusively until Close releases it.
type Device struct {
	cfg Config

	ctx *malgo.AllocatedContext
	dev *malgo.Device

	mu      sync.Mutex
	frames  *framer
	onFrame FrameFunc
	started bool
	closed  bool
}

// Open acquires the default capture device as mono 16-bit PCM at the
// configured rate. The device does not deliver data until Start is
// called. Failure to acquire the device (missing hardware, permission
// denied) is returned here, before any session is established.
func Open(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	malgoCtx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	d := &Device{
		cfg:    cfg,
		ctx:    malgoCtx,
		frames: newFramer(cfg.FrameSamples),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			d.ingest(input)
		},
	}

	dev, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	d.dev = dev
	return d, nil
}

// Start begins delivering frames to fn. Frames arrive on the audio
// backend's thread; fn must not block.
func (d *Device) Start(fn FrameFunc) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("capture device is closed")
	}
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("capture already started")
	}
	d.onFrame = fn
	d.started = true
	d.mu.Unlock()

	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	return nil
}

// ingest buffers raw device bytes and emits full frames.
func (d *Device) ingest(input []byte) {
	d.mu.Lock()
	if d.closed || d.onFrame == nil {
		d.mu.Unlock()
		return
	}
	frames := d.frames.push(input)
	fn := d.onFrame
	d.mu.Unlock()

	for _, samples := range frames {
		fn(samples, audio.Level(samples))
	}
}

// Close stops capture and releases the hardware. Safe to call more
// than once.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.onFrame = nil
	d.frames.reset()
	d.mu.Unlock()

	if d.dev != nil {
		d.dev.Uninit()
		d.dev = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}
