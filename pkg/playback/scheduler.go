// Package playback schedules decoded audio segments onto a single
// output timeline. Segments arrive out of real time and at irregular
// intervals; the scheduler lines them up back to back so playback is
// gap-free and order-preserving, and cuts everything off at once when
// the remote service signals a barge-in.
package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahir-live/mahir/pkg/audio"
)

// Sink receives raw 16-bit little-endian PCM for immediate queued
// playback. Reset discards everything queued but not yet played.
type Sink interface {
	Write(pcm []byte) error
	Reset()
	Close() error
}

type segment struct {
	id    string
	start time.Time
	end   time.Time
	timer *time.Timer
}

// Scheduler owns the output timeline. All mutation happens under one
// mutex; completion timers re-enter through complete() and re-validate
// against the pending set, so a segment stopped by an interruption
// never fires twice.
type Scheduler struct {
	sink Sink
	now  func() time.Time

	mu       sync.Mutex
	nextFree time.Time
	pending  map[string]*segment
	empty    chan struct{}
	closed   bool
}

// NewScheduler creates a scheduler writing to sink.
func NewScheduler(sink Sink) *Scheduler {
	return &Scheduler{
		sink:    sink,
		now:     time.Now,
		pending: make(map[string]*segment),
	}
}

// Schedule queues a decoded segment at max(next free slot, now) and
// advances the slot by the segment's duration. Returns the scheduled
// start time.
func (s *Scheduler) Schedule(buf audio.Buffer) (time.Time, error) {
	d := buf.Duration()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return time.Time{}, fmt.Errorf("playback scheduler is stopped")
	}

	now := s.now()
	start := s.nextFree
	if start.Before(now) {
		start = now
	}
	end := start.Add(d)
	s.nextFree = end

	seg := &segment{id: uuid.NewString(), start: start, end: end}
	if len(s.pending) == 0 {
		s.empty = make(chan struct{})
	}
	s.pending[seg.id] = seg
	seg.timer = time.AfterFunc(end.Sub(now), func() { s.complete(seg.id) })
	s.mu.Unlock()

	if err := s.sink.Write(buf.PCM16()); err != nil {
		return start, fmt.Errorf("playback write: %w", err)
	}
	return start, nil
}

// complete releases a segment whose playback window has elapsed.
func (s *Scheduler) complete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return // already stopped by an interruption
	}
	delete(s.pending, id)
	if len(s.pending) == 0 && s.empty != nil {
		close(s.empty)
		s.empty = nil
	}
}

// Interrupt implements the barge-in protocol: stop every pending
// segment, clear the set, and pull the next free slot back to now so
// nothing ever plays over a new user utterance. Stopped segments are
// not replayed.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	for id, seg := range s.pending {
		seg.timer.Stop()
		delete(s.pending, id)
	}
	s.nextFree = s.now()
	if s.empty != nil {
		close(s.empty)
		s.empty = nil
	}
	s.mu.Unlock()

	s.sink.Reset()
}

// Drain blocks until every pending segment has finished playing, or
// the context is cancelled. An interruption also releases waiters.
func (s *Scheduler) Drain(ctx context.Context) error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	done := s.empty
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts all playback and closes the sink. The scheduler
// accepts no further segments. Safe to call more than once.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, seg := range s.pending {
		seg.timer.Stop()
		delete(s.pending, id)
	}
	s.nextFree = time.Time{}
	if s.empty != nil {
		close(s.empty)
		s.empty = nil
	}
	s.mu.Unlock()

	s.sink.Reset()
	return s.sink.Close()
}

// Pending returns the number of scheduled-but-unfinished segments.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextFree returns the current next-free-slot timestamp.
func (s *Scheduler) NextFree() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextFree
}
