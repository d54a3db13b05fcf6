package segment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Djarid/vinput/pkg/audioio"
	"github.com/Djarid/vinput/pkg/vad"
)

// state is the segmenter's endpointing state.
type state int

const (
	// stateSilence: no utterance in progress.
	stateSilence state = iota
	// stateSpeech: voice activity detected, segment accumulating.
	stateSpeech
	// stateTrailing: utterance possibly ending, counting silence frames.
	stateTrailing
)

// Config holds segmenter timing parameters.
type Config struct {
	// SilenceThreshold is how much trailing silence ends an utterance.
	// Default: 500ms.
	SilenceThreshold time.Duration `yaml:"silence_threshold" json:"silence_threshold"`

	// MaxSegment force-finalizes a segment that exceeds this duration, so
	// stuck-open speech cannot grow memory without bound. Default: 30s.
	MaxSegment time.Duration `yaml:"max_segment" json:"max_segment"`

	// PullTimeout bounds each wait for a frame from the bridge.
	// Default: audioio.DefaultPullTimeout (2s).
	PullTimeout time.Duration `yaml:"pull_timeout" json:"pull_timeout"`
}

// DefaultConfig returns the default segmenter timing parameters.
func DefaultConfig() Config {
	return Config{
		SilenceThreshold: 500 * time.Millisecond,
		MaxSegment:       30 * time.Second,
		PullTimeout:      audioio.DefaultPullTimeout,
	}
}

// Segmenter consumes frames from a Bridge, classifies each with a VAD
// detector, and emits exactly one Segment per completed speech episode.
//
// State machine:
//
//	Silence  + speech     -> Speech (start segment, append)
//	Speech   + speech     -> append, reset trailing count
//	Speech   + non-speech -> Trailing (append as context, count = 1)
//	Trailing + speech     -> Speech (append, reset count)
//	Trailing + non-speech -> append, count++; finalize once the counted
//	                         silence reaches SilenceThreshold
//
// A bridge timeout mid-utterance is treated as an implicit end of utterance
// and finalizes; a timeout during silence propagates audioio.ErrTimeout.
type Segmenter struct {
	bridge *audioio.Bridge
	det    vad.Detector
	cfg    Config
	logger *slog.Logger

	st       state
	current  *Segment
	trailing int

	segments uint64
}

// NewSegmenter creates a Segmenter reading from bridge and classifying with det.
func NewSegmenter(bridge *audioio.Bridge, det vad.Detector, cfg Config, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = 500 * time.Millisecond
	}
	if cfg.MaxSegment <= 0 {
		cfg.MaxSegment = 30 * time.Second
	}
	return &Segmenter{
		bridge: bridge,
		det:    det,
		cfg:    cfg,
		logger: logger,
	}
}

// Next blocks until a speech segment completes and returns it.
// Returns audioio.ErrTimeout when no frames arrive during silence, io.EOF
// when the bridge is closed with nothing accumulated, and ctx.Err() on
// cancellation.
func (s *Segmenter) Next(ctx context.Context) (*Segment, error) {
	for {
		frame, err := s.bridge.Pull(ctx, s.cfg.PullTimeout)
		if err != nil {
			if errors.Is(err, audioio.ErrTimeout) || errors.Is(err, io.EOF) {
				// Mid-utterance, a stalled or closed stream is an
				// implicit end of utterance.
				if s.st != stateSilence && s.current != nil && len(s.current.Frames) > 0 {
					return s.finalize("stream stalled"), nil
				}
			}
			return nil, err
		}

		isSpeech := s.det.IsSpeech(frame.Samples)

		switch s.st {
		case stateSilence:
			if isSpeech {
				s.current = &Segment{
					ID:         uuid.New(),
					SampleRate: frame.SampleRate,
				}
				s.current.Frames = append(s.current.Frames, frame)
				s.trailing = 0
				s.st = stateSpeech
				s.logger.Debug("speech started", "segment", s.current.ID, "seq", frame.Seq)
			}
			// Non-speech during silence is discarded.

		case stateSpeech:
			s.current.Frames = append(s.current.Frames, frame)
			if isSpeech {
				s.trailing = 0
			} else {
				s.st = stateTrailing
				s.trailing = 1
				if s.trailingDuration(frame) >= s.cfg.SilenceThreshold {
					return s.finalize("silence threshold"), nil
				}
			}

		case stateTrailing:
			s.current.Frames = append(s.current.Frames, frame)
			if isSpeech {
				s.st = stateSpeech
				s.trailing = 0
			} else {
				s.trailing++
				if s.trailingDuration(frame) >= s.cfg.SilenceThreshold {
					return s.finalize("silence threshold"), nil
				}
			}
		}

		if s.current != nil && s.current.Duration() >= s.cfg.MaxSegment {
			return s.finalize("max segment duration"), nil
		}
	}
}

// trailingDuration returns the duration of counted trailing silence.
func (s *Segmenter) trailingDuration(frame audioio.Frame) time.Duration {
	return time.Duration(s.trailing) * frame.Duration()
}

// finalize hands off the accumulated segment and resets to silence.
func (s *Segmenter) finalize(reason string) *Segment {
	seg := s.current
	s.current = nil
	s.trailing = 0
	s.st = stateSilence
	s.det.Reset()
	s.segments++

	s.logger.Info("segment finalized",
		"segment", seg.ID,
		"frames", len(seg.Frames),
		"duration", seg.Duration(),
		"reason", reason,
	)
	return seg
}

// Segments returns the number of segments finalized so far.
func (s *Segmenter) Segments() uint64 {
	return s.segments
}
