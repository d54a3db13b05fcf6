// Package segment turns the continuous frame stream into bounded speech
// segments (endpointing) and normalizes them into the fixed-shape buffer the
// recognizer requires.
package segment

import (
	"time"

	"github.com/google/uuid"

	"github.com/Djarid/vinput/pkg/audioio"
)

// Segment is one bounded speech episode: the frames accumulated while voice
// activity was detected, plus a short trailing context of non-speech frames.
// A finalized segment is never empty.
type Segment struct {
	// ID identifies the segment in logs and downstream diagnostics.
	ID uuid.UUID

	// Frames are the accumulated frames in capture order.
	Frames []audioio.Frame

	// SampleRate is the rate shared by all frames.
	SampleRate int
}

// NumSamples returns the total number of samples across all frames.
func (s *Segment) NumSamples() int {
	n := 0
	for i := range s.Frames {
		n += len(s.Frames[i].Samples)
	}
	return n
}

// Duration returns the total audio duration of the segment.
func (s *Segment) Duration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(s.NumSamples()) / float64(s.SampleRate) * float64(time.Second))
}

// Samples concatenates all frame samples into a single slice.
func (s *Segment) Samples() []int16 {
	out := make([]int16, 0, s.NumSamples())
	for i := range s.Frames {
		out = append(out, s.Frames[i].Samples...)
	}
	return out
}
