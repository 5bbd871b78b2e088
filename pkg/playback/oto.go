package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays 16-bit mono PCM through the system speaker via oto.
// Audio is pulled by the oto player through Read; Write only enqueues.
type OtoSink struct {
	otoCtx *oto.Context
	player *oto.Player

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []byte
	playing bool
	closed  bool
}

// NewOtoSink opens the speaker at the given rate, mono 16-bit.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		// Small buffer for low latency; glitches beat talking over the user.
		BufferSize: 100 * time.Millisecond,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	s := &OtoSink{
		otoCtx: otoCtx,
		buf:    make([]byte, 0, sampleRate*4),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Write enqueues PCM and starts the player on first data.
func (s *OtoSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("speaker is closed")
	}
	s.buf = append(s.buf, pcm...)

	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.cond.Signal()
	return nil
}

// Read implements io.Reader for the oto player. Blocks until data is
// available; returns silence after close so oto can drain gracefully.
func (s *OtoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}

	if s.closed && len(s.buf) == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Reset drops all queued audio and tears down the current player so
// already-submitted samples stop immediately. The next Write starts a
// fresh player.
func (s *OtoSink) Reset() {
	s.mu.Lock()
	s.buf = s.buf[:0]

	if s.player != nil && s.playing {
		s.playing = false
		player := s.player
		s.player = nil
		s.mu.Unlock()

		// Pause first so no further samples render, then clear oto's
		// internal buffer before closing.
		player.Pause()
		player.Reset()
		player.Close()
		return
	}
	s.mu.Unlock()
}

// WaitIdle blocks until everything written has actually left the
// speaker: both the sink's queue and the player's internal buffer are
// empty. Closing or resetting right after the scheduled window ends
// would otherwise clip the buffered tail.
func (s *OtoSink) WaitIdle(ctx context.Context) error {
	return waitIdle(ctx, func() int {
		s.mu.Lock()
		pending := len(s.buf)
		player := s.player
		s.mu.Unlock()
		if player != nil {
			pending += player.BufferedSize()
		}
		return pending
	})
}

// waitIdle polls pending until it reports zero or ctx is done.
func waitIdle(ctx context.Context, pending func() int) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if pending() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops playback and releases the speaker.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cond.Broadcast()
	player := s.player
	s.player = nil
	s.playing = false
	s.mu.Unlock()

	if player != nil {
		player.Close()
	}
	return nil
}
