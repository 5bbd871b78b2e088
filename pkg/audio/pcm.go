// Package audio provides PCM codec helpers shared by the capture,
// playback, and transport layers. All audio in this codebase is mono
// 16-bit little-endian PCM; the live API carries it base64-encoded.
package audio

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Buffer is a decoded block of mono float samples at a known rate.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playback duration of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || len(b.Samples) == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// PCM16 returns the buffer as 16-bit little-endian PCM bytes.
func (b Buffer) PCM16() []byte {
	return Float32ToPCM16(b.Samples)
}

// FromPCM16 wraps raw 16-bit little-endian PCM bytes in a Buffer.
// Trailing odd bytes are dropped.
func FromPCM16(pcm []byte, sampleRate int) Buffer {
	return Buffer{Samples: PCM16ToFloat32(pcm), SampleRate: sampleRate}
}

// EncodePCM16 converts float samples in [-1, 1] to a base64 token of
// 16-bit little-endian PCM, ready for the realtime transport. Samples
// are clamped; negative values scale by 32768 and non-negative by 32767
// so both rails map onto the full int16 range.
func EncodePCM16(samples []float32) string {
	return base64.StdEncoding.EncodeToString(Float32ToPCM16(samples))
}

// DecodePCM16 is the inverse of EncodePCM16: base64 token to a playable
// Buffer at the declared sample rate.
func DecodePCM16(token string, sampleRate int) (Buffer, error) {
	if sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("decode pcm: invalid sample rate %d", sampleRate)
	}
	pcm, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode pcm: %w", err)
	}
	if len(pcm)%2 != 0 {
		return Buffer{}, fmt.Errorf("decode pcm: odd byte count %d", len(pcm))
	}
	return FromPCM16(pcm, sampleRate), nil
}

// Float32ToPCM16 converts float samples in [-1, 1] to 16-bit
// little-endian PCM bytes.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		var s int16
		if f < 0 {
			s = int16(f * 32768)
		} else {
			s = int16(f * 32767)
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// PCM16ToFloat32 converts 16-bit little-endian PCM bytes to float
// samples. Floats are scaled by 1/32768, matching the wire convention
// of the remote service.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}
