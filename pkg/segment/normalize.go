package segment

import (
	"fmt"
	"time"
)

// Normalizer converts a variable-length Segment into the fixed-shape float
// buffer the recognizer requires: exactly FixedSamples float32 samples in
// [-1.0, 1.0], in one contiguous allocation suitable for direct hardware
// transfer. Shorter inputs are zero-padded at the tail; longer inputs keep
// only the earliest FixedSamples samples.
//
// The normalizer does no resampling: the segment's sample rate must equal
// the configured rate, which is verified at configuration time and again
// here as a fail-fast check.
type Normalizer struct {
	sampleRate   int
	fixedSamples int
}

// NewNormalizer creates a Normalizer producing buffers of fixed duration at
// the given sample rate (e.g. 30s at 16kHz = 480000 samples).
func NewNormalizer(sampleRate int, fixed time.Duration) (*Normalizer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("segment: sample rate must be positive, got %d", sampleRate)
	}
	if fixed <= 0 {
		return nil, fmt.Errorf("segment: fixed duration must be positive, got %v", fixed)
	}
	return &Normalizer{
		sampleRate:   sampleRate,
		fixedSamples: int(float64(sampleRate) * fixed.Seconds()),
	}, nil
}

// FixedSamples returns the output buffer length.
func (n *Normalizer) FixedSamples() int {
	return n.fixedSamples
}

// SampleRate returns the expected input sample rate.
func (n *Normalizer) SampleRate() int {
	return n.sampleRate
}

// Normalize converts seg into the fixed-shape float buffer.
func (n *Normalizer) Normalize(seg *Segment) ([]float32, error) {
	if seg == nil || len(seg.Frames) == 0 {
		return nil, fmt.Errorf("segment: cannot normalize empty segment")
	}
	if seg.SampleRate != n.sampleRate {
		return nil, fmt.Errorf("segment: sample rate mismatch: segment %d Hz, normalizer %d Hz",
			seg.SampleRate, n.sampleRate)
	}

	out := make([]float32, n.fixedSamples)

	i := 0
fill:
	for f := range seg.Frames {
		for _, s := range seg.Frames[f].Samples {
			if i >= n.fixedSamples {
				break fill
			}
			out[i] = float32(s) / 32768.0
			i++
		}
	}
	// Remaining samples (if any) stay zero: tail padding.

	return out, nil
}

// Fit forces an existing float buffer to the fixed length with the same
// pad/truncate rule. Fitting a buffer that is already FixedSamples long
// returns it unchanged, so normalization is idempotent.
func (n *Normalizer) Fit(buf []float32) []float32 {
	if len(buf) == n.fixedSamples {
		return buf
	}
	out := make([]float32, n.fixedSamples)
	copy(out, buf)
	return out
}
