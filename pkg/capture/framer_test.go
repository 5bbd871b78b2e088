package capture

import (
	"testing"

	"github.com/mahir-live/mahir/pkg/audio"
)

func pcmOf(samples []float32) []byte {
	return audio.Float32ToPCM16(samples)
}

func TestFramerEmitsFixedFrames(t *testing.T) {
	f := newFramer(4)

	// 3 samples: not enough for a frame yet.
	frames := f.push(pcmOf([]float32{0.1, 0.2, 0.3}))
	if len(frames) != 0 {
		t.Fatalf("got %d frames, want 0", len(frames))
	}

	// 6 more: 9 buffered -> two frames of 4, 1 left over.
	frames = f.push(pcmOf([]float32{0.4, 0.5, 0.6, 0.7, 0.8, 0.9}))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	for _, fr := range frames {
		if len(fr) != 4 {
			t.Errorf("frame size %d, want 4", len(fr))
		}
	}
}

func TestFramerPreservesOrder(t *testing.T) {
	f := newFramer(2)
	in := []float32{0.1, 0.2, 0.3, 0.4}
	frames := f.push(pcmOf(in))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	// The framer only re-slices bytes, so against the quantized input
	// the frames must match exactly.
	want := audio.PCM16ToFloat32(pcmOf(in))
	got := append(append([]float32{}, frames[0]...), frames[1]...)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d out of order or corrupted: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFramerReset(t *testing.T) {
	f := newFramer(4)
	f.push(pcmOf([]float32{0.1, 0.2, 0.3}))
	f.reset()
	frames := f.push(pcmOf([]float32{0.4}))
	if len(frames) != 0 {
		t.Fatalf("leftover survived reset: got %d frames", len(frames))
	}
}
