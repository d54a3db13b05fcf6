package segment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Djarid/vinput/pkg/audioio"
)

// markDetector classifies a frame as speech when its first sample is
// non-zero, making tests deterministic regardless of energy thresholds.
type markDetector struct{}

func (markDetector) IsSpeech(samples []int16) bool {
	return len(samples) > 0 && samples[0] != 0
}

func (markDetector) Reset() {}

const (
	testRate     = 16000
	testFrameDur = 100 * time.Millisecond
	testFrameLen = 1600 // samples per 100ms at 16kHz
)

func speechFrame(seq uint64) audioio.Frame {
	samples := make([]int16, testFrameLen)
	for i := range samples {
		samples[i] = 12000
	}
	return audioio.Frame{Samples: samples, SampleRate: testRate, Seq: seq}
}

func silenceFrame(seq uint64) audioio.Frame {
	return audioio.Frame{Samples: make([]int16, testFrameLen), SampleRate: testRate, Seq: seq}
}

func newTestSegmenter(bridgeCap int, cfg Config) (*Segmenter, *audioio.Bridge) {
	b := audioio.NewBridge(bridgeCap)
	s := NewSegmenter(b, markDetector{}, cfg, nil)
	return s, b
}

func TestSegmenter_PureSilenceNeverFinalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PullTimeout = 50 * time.Millisecond
	s, b := newTestSegmenter(256, cfg)

	var seq uint64
	for i := 0; i < 100; i++ {
		seq++
		b.Push(silenceFrame(seq))
	}

	_, err := s.Next(context.Background())
	if !errors.Is(err, audioio.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout on pure silence, got %v", err)
	}
	if got := s.Segments(); got != 0 {
		t.Errorf("Expected 0 segments finalized, got %d", got)
	}
}

func TestSegmenter_OneSegmentPerEpisode(t *testing.T) {
	cfg := Config{
		SilenceThreshold: 500 * time.Millisecond,
		MaxSegment:       30 * time.Second,
		PullTimeout:      100 * time.Millisecond,
	}
	s, b := newTestSegmenter(256, cfg)

	var seq uint64
	const speechCount = 8
	for i := 0; i < speechCount; i++ {
		seq++
		b.Push(speechFrame(seq))
	}
	for i := 0; i < 10; i++ {
		seq++
		b.Push(silenceFrame(seq))
	}

	seg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	// 500ms threshold at 100ms frames: 5 trailing silence frames are kept
	// as context, the rest of the silence is discarded.
	const wantFrames = speechCount + 5
	if len(seg.Frames) != wantFrames {
		t.Errorf("Expected %d frames, got %d", wantFrames, len(seg.Frames))
	}
	if seg.SampleRate != testRate {
		t.Errorf("Expected sample rate %d, got %d", testRate, seg.SampleRate)
	}
	if seg.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Expected a segment ID")
	}

	// The remaining silence does not produce a second segment.
	_, err = s.Next(context.Background())
	if !errors.Is(err, audioio.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout after episode, got %v", err)
	}
	if got := s.Segments(); got != 1 {
		t.Errorf("Expected exactly 1 segment, got %d", got)
	}
}

func TestSegmenter_TrailingReturnsToSpeech(t *testing.T) {
	cfg := Config{
		SilenceThreshold: 300 * time.Millisecond,
		MaxSegment:       30 * time.Second,
		PullTimeout:      100 * time.Millisecond,
	}
	s, b := newTestSegmenter(256, cfg)

	// speech, short pause (below threshold), speech again, then real silence.
	var seq uint64
	push := func(f func(uint64) audioio.Frame, n int) {
		for i := 0; i < n; i++ {
			seq++
			b.Push(f(seq))
		}
	}
	push(speechFrame, 3)
	push(silenceFrame, 2) // 200ms < 300ms threshold
	push(speechFrame, 3)
	push(silenceFrame, 3) // 300ms >= threshold

	seg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	// All frames up to and including the final trailing context belong to
	// one segment: 3 + 2 + 3 + 3.
	if len(seg.Frames) != 11 {
		t.Errorf("Expected 11 frames, got %d", len(seg.Frames))
	}
}

func TestSegmenter_TimeoutMidSpeechFinalizes(t *testing.T) {
	cfg := Config{
		SilenceThreshold: 500 * time.Millisecond,
		MaxSegment:       30 * time.Second,
		PullTimeout:      50 * time.Millisecond,
	}
	s, b := newTestSegmenter(256, cfg)

	b.Push(speechFrame(1))
	b.Push(speechFrame(2))

	seg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Expected finalized segment on stalled stream, got error: %v", err)
	}
	if len(seg.Frames) != 2 {
		t.Errorf("Expected 2 frames, got %d", len(seg.Frames))
	}
}

func TestSegmenter_MaxSegmentForceFinalizes(t *testing.T) {
	cfg := Config{
		SilenceThreshold: 500 * time.Millisecond,
		MaxSegment:       300 * time.Millisecond, // 3 frames at 100ms
		PullTimeout:      100 * time.Millisecond,
	}
	s, b := newTestSegmenter(256, cfg)

	// Continuous speech far beyond the cap.
	for seq := uint64(1); seq <= 20; seq++ {
		b.Push(speechFrame(seq))
	}

	seg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(seg.Frames) != 3 {
		t.Errorf("Expected force-finalize at 3 frames, got %d", len(seg.Frames))
	}

	// The stream keeps going; the next call produces another capped segment.
	seg2, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Second Next failed: %v", err)
	}
	if len(seg2.Frames) != 3 {
		t.Errorf("Expected second capped segment of 3 frames, got %d", len(seg2.Frames))
	}
	if seg2.ID == seg.ID {
		t.Error("Expected distinct segment IDs")
	}
}

func TestSegmenter_Cancellation(t *testing.T) {
	cfg := DefaultConfig()
	s, _ := newTestSegmenter(8, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestSegment_Accessors(t *testing.T) {
	seg := &Segment{
		SampleRate: testRate,
		Frames: []audioio.Frame{
			speechFrame(1),
			silenceFrame(2),
		},
	}

	if got := seg.NumSamples(); got != 2*testFrameLen {
		t.Errorf("NumSamples = %d, want %d", got, 2*testFrameLen)
	}
	if got := seg.Duration(); got != 200*time.Millisecond {
		t.Errorf("Duration = %v, want 200ms", got)
	}
	samples := seg.Samples()
	if len(samples) != 2*testFrameLen {
		t.Fatalf("Samples length = %d, want %d", len(samples), 2*testFrameLen)
	}
	if samples[0] != 12000 || samples[testFrameLen] != 0 {
		t.Error("Samples not concatenated in frame order")
	}
}
