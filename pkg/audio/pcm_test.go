package audio

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
	}{
		{name: "silence", samples: []float32{0, 0, 0, 0}},
		{name: "rails", samples: []float32{1, -1, 1, -1}},
		{name: "mixed", samples: []float32{0.5, -0.25, 0.125, -0.9, 0.333}},
		{name: "tiny", samples: []float32{1.0 / 40000, -1.0 / 40000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := EncodePCM16(tt.samples)
			buf, err := DecodePCM16(token, 16000)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(buf.Samples) != len(tt.samples) {
				t.Fatalf("got %d samples, want %d", len(buf.Samples), len(tt.samples))
			}
			for i := range tt.samples {
				diff := math.Abs(float64(buf.Samples[i]) - float64(tt.samples[i]))
				if diff > 1.0/32768 {
					t.Errorf("sample %d: got %v, want %v (diff %v)", i, buf.Samples[i], tt.samples[i], diff)
				}
			}
		})
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	token := EncodePCM16([]float32{2.5, -3})
	buf, err := DecodePCM16(token, 16000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := buf.Samples[0]; math.Abs(float64(got)-1) > 1.0/32768 {
		t.Errorf("positive clamp: got %v, want ~1", got)
	}
	if got := buf.Samples[1]; got != -1 {
		t.Errorf("negative clamp: got %v, want -1", got)
	}
}

func TestRoundTripIsStable(t *testing.T) {
	// The encode scale is asymmetric (negatives x32768, positives
	// x32767) while decode always divides by 32768, so re-encoding a
	// positive sample truncates one LSB downward. A second pass may
	// therefore drift by at most 1/32768, and only toward zero;
	// negative and zero samples must reproduce exactly.
	samples := []float32{0.7, -0.6, 0.1, -0.001, 0.999, 0}
	once, err := DecodePCM16(EncodePCM16(samples), 24000)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	twice, err := DecodePCM16(EncodePCM16(once.Samples), 24000)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	for i := range once.Samples {
		drift := float64(once.Samples[i]) - float64(twice.Samples[i])
		if once.Samples[i] <= 0 {
			if drift != 0 {
				t.Errorf("sample %d drifted: %v -> %v", i, once.Samples[i], twice.Samples[i])
			}
			continue
		}
		if drift < 0 || drift > 1.0/32768 {
			t.Errorf("sample %d drifted beyond one LSB: %v -> %v", i, once.Samples[i], twice.Samples[i])
		}
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		token string
		rate  int
	}{
		{name: "not base64", token: "%%%not-base64%%%", rate: 24000},
		{name: "odd byte count", token: "AAAA", rate: 24000}, // decodes to 3 bytes
		{name: "zero rate", token: "AAChAA==", rate: 0},
		{name: "negative rate", token: "AAChAA==", rate: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePCM16(tt.token, tt.rate); err == nil {
				t.Errorf("expected error for %q rate=%d", tt.token, tt.rate)
			}
		})
	}
}

func TestBufferDuration(t *testing.T) {
	buf := Buffer{Samples: make([]float32, 24000), SampleRate: 24000}
	if got := buf.Duration(); got != time.Second {
		t.Errorf("got %v, want 1s", got)
	}
	empty := Buffer{SampleRate: 24000}
	if got := empty.Duration(); got != 0 {
		t.Errorf("empty buffer: got %v, want 0", got)
	}
}

func TestEncodeProducesBase64(t *testing.T) {
	token := EncodePCM16([]float32{0.25, 0.5})
	if strings.ContainsAny(token, " \n") {
		t.Errorf("token contains whitespace: %q", token)
	}
	if len(token) == 0 {
		t.Error("empty token for non-empty frame")
	}
}
