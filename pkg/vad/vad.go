// Package vad provides per-frame voice activity detection.
//
// A Detector classifies each fixed-size PCM16 frame as speech or non-speech.
// Detection is synchronous and must not block: it runs inline in the
// segmenter's frame loop.
package vad

// Detector classifies audio frames as speech or non-speech.
// A Detector is stateful (hysteresis, smoothing) and is not safe for
// concurrent use; the segmenter owns exactly one.
type Detector interface {
	// IsSpeech reports whether the frame is considered speech.
	IsSpeech(samples []int16) bool

	// Reset clears all accumulated detection state.
	Reset()
}
