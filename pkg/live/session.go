// Package live runs the spoken interpreter session: microphone frames
// stream to the Gemini live endpoint while model audio streams back
// into a gap-free playback timeline. One controller owns at most one
// session at a time.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahir-live/mahir/pkg/audio"
	"github.com/mahir-live/mahir/pkg/capture"
	"github.com/mahir-live/mahir/pkg/creds"
	"github.com/mahir-live/mahir/pkg/live/protocol"
	"github.com/mahir-live/mahir/pkg/playback"
)

// ErrSessionCancelled reports that Disconnect arrived while a connect
// attempt was still in flight.
var ErrSessionCancelled = errors.New("live: session cancelled during connect")

// Microphone delivers capture frames. Implemented by capture.Device.
type Microphone interface {
	Start(fn capture.FrameFunc) error
	Close() error
}

// Output receives decoded model audio. Implemented by
// playback.Scheduler.
type Output interface {
	Schedule(buf audio.Buffer) (time.Time, error)
	Interrupt()
	Stop() error
}

// Controller drives the live session lifecycle. All methods are safe
// for concurrent use.
type Controller struct {
	cfg Config
	log *slog.Logger

	// Seams for tests and embedding. Set before first Connect.
	dial      Dialer
	openMic   func(cfg capture.Config) (Microphone, error)
	newOutput func(sampleRate int) (Output, error)
	lookupKey func() (string, error)

	mu        sync.Mutex
	state     State
	gen       int
	mic       Microphone
	transport Transport
	output    Output
	volume    float64

	events chan Event
}

// NewController creates an idle controller with production wiring:
// real microphone, real speaker, credentials from the local store or
// environment.
func NewController(cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		cfg:   cfg.withDefaults(),
		log:   log,
		state: StateIdle,
		dial:  DialLive,
		openMic: func(cfg capture.Config) (Microphone, error) {
			return capture.Open(cfg)
		},
		newOutput: func(sampleRate int) (Output, error) {
			sink, err := playback.NewOtoSink(sampleRate)
			if err != nil {
				return nil, err
			}
			return playback.NewScheduler(sink), nil
		},
		lookupKey: func() (string, error) {
			return creds.DefaultStore().Lookup()
		},
		events: make(chan Event, 64),
	}
}

// Events yields controller events. The channel is never closed; frames
// are dropped rather than buffered when the consumer lags.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Volume returns the microphone level of the most recent frame.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Connect establishes a session: credential lookup, microphone and
// speaker acquisition, websocket handshake, then audio flow. It is a
// no-op if a session is already connecting or live. Any failure
// releases everything acquired so far and leaves the controller idle.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.emit(StateChangedEvent{State: StateConnecting})

	// Credentials are checked before touching any hardware, so a
	// missing key never grabs the microphone.
	key, err := c.lookupKey()
	if err != nil {
		return c.failConnect(gen, nil, nil, nil, err)
	}

	mic, err := c.openMic(capture.Config{
		SampleRate:   c.cfg.InputSampleRate,
		FrameSamples: c.cfg.FrameSamples,
	})
	if err != nil {
		return c.failConnect(gen, nil, nil, nil, fmt.Errorf("open microphone: %w", err))
	}

	output, err := c.newOutput(c.cfg.OutputSampleRate)
	if err != nil {
		return c.failConnect(gen, mic, nil, nil, fmt.Errorf("open speaker: %w", err))
	}

	transport, err := c.dial(ctx, key)
	if err != nil {
		return c.failConnect(gen, mic, output, nil, err)
	}

	if err := transport.Send(protocol.NewSetup(c.cfg.Model, c.cfg.Voice, c.cfg.SystemInstruction)); err != nil {
		return c.failConnect(gen, mic, output, transport, fmt.Errorf("send setup: %w", err))
	}
	if err := c.awaitSetup(transport); err != nil {
		return c.failConnect(gen, mic, output, transport, err)
	}

	// Re-validate under the lock: Disconnect may have raced the
	// handshake, in which case this generation is already dead and the
	// fresh resources must not be installed.
	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		_ = mic.Close()
		_ = output.Stop()
		_ = transport.Close()
		return ErrSessionCancelled
	}
	c.mic = mic
	c.output = output
	c.transport = transport
	c.state = StateLive
	c.mu.Unlock()
	c.emit(StateChangedEvent{State: StateLive})
	c.log.Info("live session established", "model", c.cfg.Model, "voice", c.cfg.Voice)

	if err := mic.Start(func(samples []float32, level float64) {
		c.onFrame(gen, samples, level)
	}); err != nil {
		c.teardown(gen, fmt.Errorf("start microphone: %w", err))
		return err
	}

	go c.readLoop(gen, transport, output)
	return nil
}

// Disconnect ends the current session, releasing the microphone,
// speaker, and connection. Safe to call at any time, repeatedly.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.teardown(gen, nil)
}

// awaitSetup reads frames until the server acknowledges the setup
// message.
func (c *Controller) awaitSetup(t Transport) error {
	for {
		msg, err := t.Receive()
		if err != nil {
			return fmt.Errorf("await setup: %w", err)
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

// onFrame runs on the audio backend's thread for every capture frame.
func (c *Controller) onFrame(gen int, samples []float32, level float64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateLive {
		c.mu.Unlock()
		return
	}
	c.volume = level
	transport := c.transport
	c.mu.Unlock()

	c.emit(VolumeEvent{Level: level})
	chunk := protocol.NewAudioChunk(c.cfg.InputSampleRate, audio.EncodePCM16(samples))
	if err := transport.Send(chunk); err != nil {
		c.teardown(gen, fmt.Errorf("send audio: %w", err))
	}
}

func (c *Controller) readLoop(gen int, transport Transport, output Output) {
	for {
		msg, err := transport.Receive()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.teardown(gen, nil)
			} else {
				c.teardown(gen, fmt.Errorf("live stream: %w", err))
			}
			return
		}

		if msg.GoAway != nil {
			c.log.Warn("server requested shutdown", "time_left", msg.GoAway.TimeLeft)
		}

		content := msg.ServerContent
		if content == nil {
			continue
		}
		if content.Interrupted {
			// Barge-in: the user spoke over the model. Everything
			// queued is stale.
			output.Interrupt()
			continue
		}
		for _, data := range content.AudioData() {
			buf, err := audio.DecodePCM16(data, c.cfg.OutputSampleRate)
			if err != nil {
				c.teardown(gen, fmt.Errorf("decode model audio: %w", err))
				return
			}
			if _, err := output.Schedule(buf); err != nil {
				c.teardown(gen, err)
				return
			}
		}
	}
}

// failConnect releases partially acquired resources and returns the
// controller to idle. Resources not yet acquired are passed as nil.
func (c *Controller) failConnect(gen int, mic Microphone, output Output, transport Transport, cause error) error {
	if mic != nil {
		_ = mic.Close()
	}
	if output != nil {
		_ = output.Stop()
	}
	if transport != nil {
		_ = transport.Close()
	}

	c.mu.Lock()
	active := c.gen == gen && c.state == StateConnecting
	if active {
		c.state = StateIdle
		c.volume = 0
	}
	c.mu.Unlock()

	if active {
		c.log.Error("live connect failed", "error", cause)
		c.emit(ErrorEvent{Err: cause})
		c.emit(StateChangedEvent{State: StateIdle})
	}
	return cause
}

// teardown ends the session for the given generation. Stale calls
// (from a read loop or frame callback that lost the race) are no-ops,
// so teardown never fires twice for one session.
func (c *Controller) teardown(gen int, cause error) {
	c.mu.Lock()
	if c.gen != gen || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.gen++
	mic := c.mic
	output := c.output
	transport := c.transport
	c.mic = nil
	c.output = nil
	c.transport = nil
	c.state = StateIdle
	c.volume = 0
	c.mu.Unlock()

	if mic != nil {
		_ = mic.Close()
	}
	if output != nil {
		_ = output.Stop()
	}
	if transport != nil {
		_ = transport.Close()
	}

	if cause != nil {
		c.log.Error("live session ended", "error", cause)
		c.emit(ErrorEvent{Err: cause})
	} else {
		c.log.Info("live session ended")
	}
	c.emit(StateChangedEvent{State: StateIdle})
}

// emit delivers an event without ever blocking the audio or read
// loops.
func (c *Controller) emit(event Event) {
	select {
	case c.events <- event:
	default:
	}
}
