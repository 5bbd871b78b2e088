package audio

import "math"

// RMS computes the root-mean-square energy of a block of float samples.
// Returns a value between 0.0 and 1.0 for samples in [-1, 1].
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Level maps a frame's RMS energy onto a [0, 1] meter value for the
// volume display. The 5x gain keeps normal speech in the visible range.
func Level(samples []float32) float64 {
	return math.Min(1, RMS(samples)*5)
}
