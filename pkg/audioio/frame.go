package audioio

import "time"

// Frame is a fixed-size chunk of captured audio.
// Frames are immutable once produced and are consumed exactly once by the
// segmenter downstream of the Bridge.
type Frame struct {
	// Samples contains mono PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate this frame was captured at.
	SampleRate int

	// Seq is a monotonic sequence number assigned by the capture source.
	// Gaps in Seq at the consumer indicate dropped frames.
	Seq uint64
}

// Duration returns the duration of this frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// Bytes returns the raw little-endian bytes of the frame samples.
func (f *Frame) Bytes() []byte {
	return SamplesToBytes(f.Samples)
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
