package capture

import "github.com/mahir-live/mahir/pkg/audio"

// framer re-chunks arbitrarily sized device periods into fixed frames.
// Not safe for concurrent use; the caller serializes pushes.
type framer struct {
	frameBytes int
	pending    []byte
}

func newFramer(frameSamples int) *framer {
	return &framer{
		frameBytes: frameSamples * 2,
		pending:    make([]byte, 0, frameSamples*4),
	}
}

// push buffers raw 16-bit PCM bytes and returns every complete frame
// now available, in capture order. Leftover bytes stay buffered for the
// next push.
func (f *framer) push(input []byte) [][]float32 {
	f.pending = append(f.pending, input...)

	var frames [][]float32
	for len(f.pending) >= f.frameBytes {
		frames = append(frames, audio.PCM16ToFloat32(f.pending[:f.frameBytes]))
		f.pending = f.pending[f.frameBytes:]
	}
	return frames
}

func (f *framer) reset() {
	f.pending = f.pending[:0]
}
