package segment

import (
	"testing"
	"time"

	"github.com/Djarid/vinput/pkg/audioio"
)

func TestNewNormalizer(t *testing.T) {
	n, err := NewNormalizer(16000, 30*time.Second)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}
	if got := n.FixedSamples(); got != 480000 {
		t.Errorf("FixedSamples = %d, want 480000", got)
	}
	if got := n.SampleRate(); got != 16000 {
		t.Errorf("SampleRate = %d, want 16000", got)
	}

	if _, err := NewNormalizer(0, 30*time.Second); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewNormalizer(16000, 0); err == nil {
		t.Error("Expected error for zero duration")
	}
}

func TestNormalizer_PadsShortInput(t *testing.T) {
	n, err := NewNormalizer(testRate, time.Second)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	seg := &Segment{
		SampleRate: testRate,
		Frames:     []audioio.Frame{speechFrame(1)}, // 1600 samples of 12000
	}

	out, err := n.Normalize(seg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != testRate {
		t.Fatalf("Output length = %d, want %d", len(out), testRate)
	}

	want := float32(12000) / 32768.0
	if out[0] != want {
		t.Errorf("out[0] = %v, want %v", out[0], want)
	}
	if out[testFrameLen-1] != want {
		t.Errorf("Last real sample = %v, want %v", out[testFrameLen-1], want)
	}
	for i := testFrameLen; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("Tail padding not zero at %d: %v", i, out[i])
		}
	}
}

func TestNormalizer_TruncatesLongInputKeepingEarliest(t *testing.T) {
	// 3200-sample target, feed 3 frames (4800 samples) where each frame
	// carries a distinct value.
	n, err := NewNormalizer(testRate, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	mk := func(value int16) audioio.Frame {
		samples := make([]int16, testFrameLen)
		for i := range samples {
			samples[i] = value
		}
		return audioio.Frame{Samples: samples, SampleRate: testRate}
	}
	seg := &Segment{
		SampleRate: testRate,
		Frames:     []audioio.Frame{mk(100), mk(200), mk(300)},
	}

	out, err := n.Normalize(seg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 3200 {
		t.Fatalf("Output length = %d, want 3200", len(out))
	}
	if out[0] != float32(100)/32768.0 {
		t.Errorf("First sample from third frame? got %v", out[0])
	}
	if out[3199] != float32(200)/32768.0 {
		t.Errorf("Expected last kept sample from second frame, got %v", out[3199])
	}
}

func TestNormalizer_RejectsEmptyAndMismatched(t *testing.T) {
	n, err := NewNormalizer(testRate, time.Second)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	if _, err := n.Normalize(nil); err == nil {
		t.Error("Expected error for nil segment")
	}
	if _, err := n.Normalize(&Segment{SampleRate: testRate}); err == nil {
		t.Error("Expected error for empty segment")
	}

	seg := &Segment{
		SampleRate: 8000,
		Frames:     []audioio.Frame{speechFrame(1)},
	}
	if _, err := n.Normalize(seg); err == nil {
		t.Error("Expected error for sample rate mismatch")
	}
}

func TestNormalizer_FitIsIdempotent(t *testing.T) {
	n, err := NewNormalizer(testRate, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	seg := &Segment{
		SampleRate: testRate,
		Frames:     []audioio.Frame{speechFrame(1)},
	}
	out, err := n.Normalize(seg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	refit := n.Fit(out)
	if len(refit) != n.FixedSamples() {
		t.Fatalf("Fit length = %d, want %d", len(refit), n.FixedSamples())
	}
	if &refit[0] != &out[0] {
		t.Error("Fit on exact-length buffer should return it unchanged")
	}

	short := n.Fit([]float32{0.5})
	if len(short) != n.FixedSamples() {
		t.Errorf("Fit of short buffer length = %d, want %d", len(short), n.FixedSamples())
	}
	if short[0] != 0.5 || short[1] != 0 {
		t.Error("Fit of short buffer should copy then zero-pad")
	}
}
