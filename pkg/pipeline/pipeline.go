// Package pipeline threads the voice-to-gamepad stages together: frames
// from the capture source flow through the bridge into the segmenter, and
// each finalized segment is normalized, recognized, matched and executed,
// one at a time. The orchestrator owns failure recovery: a bad utterance is
// logged and retried after a backoff, never fatal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Djarid/vinput/pkg/audioio"
	"github.com/Djarid/vinput/pkg/command"
	"github.com/Djarid/vinput/pkg/recognizer"
	"github.com/Djarid/vinput/pkg/segment"
	"github.com/Djarid/vinput/pkg/sequencer"
)

// State is the pipeline's current stage. Stages run strictly one at a time
// per iteration; only frame capture runs concurrently with them.
type State int32

const (
	StateIdle State = iota
	StateCapturing
	StateSegmenting
	StateNormalizing
	StateRecognizing
	StateMatching
	StateExecuting
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSegmenting:
		return "segmenting"
	case StateNormalizing:
		return "normalizing"
	case StateRecognizing:
		return "recognizing"
	case StateMatching:
		return "matching"
	case StateExecuting:
		return "executing"
	case StateShuttingDown:
		return "shutting down"
	}
	return "unknown"
}

// DefaultBackoff is the pause after a stage failure before the loop resumes.
const DefaultBackoff = 1 * time.Second

// Config holds orchestrator parameters.
type Config struct {
	// Backoff is the pause after a stage failure. Default: DefaultBackoff.
	Backoff time.Duration `yaml:"backoff" json:"backoff"`

	// Warmup runs one silent buffer through the recognizer before the
	// loop starts, so the first utterance does not pay cold-start cost.
	Warmup bool `yaml:"warmup" json:"warmup"`
}

// Event is a pipeline observation pushed to an optional listener (the web
// dashboard). Fields besides Type are populated per event kind.
type Event struct {
	Type      string    `json:"type"`
	State     string    `json:"state,omitempty"`
	Text      string    `json:"text,omitempty"`
	Phrase    string    `json:"phrase,omitempty"`
	SegmentID string    `json:"segment_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	At        time.Time `json:"at"`
}

// Deps are the stage implementations the orchestrator drives.
type Deps struct {
	Source     audioio.Source
	Bridge     *audioio.Bridge
	Segmenter  *segment.Segmenter
	Normalizer *segment.Normalizer
	Recognizer recognizer.Recognizer
	Matcher    *command.Matcher
	Sequencer  *sequencer.Sequencer
}

// Pipeline is the orchestrator. Create with New, drive with Run.
type Pipeline struct {
	deps    Deps
	backoff time.Duration
	warmup  bool
	logger  *slog.Logger
	notify  func(Event)

	state atomic.Int32

	lastMu     sync.Mutex
	lastText   string
	lastPhrase string

	segments    atomic.Uint64
	transcripts atomic.Uint64
	matches     atomic.Uint64
	noMatches   atomic.Uint64
	failures    atomic.Uint64
}

// New creates a pipeline. notify may be nil; when set it is called inline
// from the consumer loop and must not block.
func New(deps Deps, cfg Config, logger *slog.Logger, notify func(Event)) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Pipeline{
		deps:    deps,
		backoff: backoff,
		warmup:  cfg.Warmup,
		logger:  logger,
		notify:  notify,
	}
}

// Run starts capture and processes utterances until ctx is cancelled. On
// return the capture source is stopped and every held gamepad input has
// been released, regardless of which stage was active.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.deps.Source.Start(ctx); err != nil {
		return fmt.Errorf("pipeline: start capture: %w", err)
	}

	defer func() {
		p.setState(StateShuttingDown)
		if err := p.deps.Sequencer.ReleaseAll(); err != nil {
			p.logger.Error("failed to release held inputs", "error", err)
		}
		if err := p.deps.Source.Stop(); err != nil {
			p.logger.Error("failed to stop capture", "error", err)
		}
		p.deps.Bridge.Close()
		p.logger.Info("pipeline stopped")
	}()

	if p.warmup {
		p.warmupRecognizer(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.produce(ctx) })
	g.Go(func() error { return p.consume(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// produce moves frames from the capture source into the bridge. Push never
// blocks; a slow consumer costs dropped frames, never capture latency.
func (p *Pipeline) produce(ctx context.Context) error {
	for {
		frame, err := p.deps.Source.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return err
			}
			p.logger.Warn("capture read failed", "error", err)
			if werr := p.sleep(ctx, p.backoff); werr != nil {
				return werr
			}
			continue
		}
		p.deps.Bridge.Push(frame)
	}
}

// consume runs the sequential stage loop, one segment at a time.
func (p *Pipeline) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.setState(StateIdle)
		seg, err := p.deps.Segmenter.Next(ctx)
		if err != nil {
			if errors.Is(err, audioio.ErrTimeout) {
				// No speech; keep listening.
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return err
			}
			p.fail("segmenter", err)
			if werr := p.sleep(ctx, p.backoff); werr != nil {
				return werr
			}
			continue
		}
		p.segments.Add(1)
		turnStart := time.Now()

		p.setState(StateNormalizing)
		buf, err := p.deps.Normalizer.Normalize(seg)
		if err != nil {
			p.fail("normalizer", err)
			if werr := p.sleep(ctx, p.backoff); werr != nil {
				return werr
			}
			continue
		}

		p.setState(StateRecognizing)
		recStart := time.Now()
		text, err := p.deps.Recognizer.Transcribe(ctx, buf, p.deps.Normalizer.SampleRate())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.fail("recognizer", err)
			if werr := p.sleep(ctx, p.backoff); werr != nil {
				return werr
			}
			continue
		}
		if text == "" {
			p.logger.Debug("empty transcript", "segment", seg.ID)
			continue
		}
		p.transcripts.Add(1)
		p.setLast(text, "")
		p.emit(Event{Type: "transcript", Text: text, SegmentID: seg.ID.String(),
			ElapsedMS: time.Since(recStart).Milliseconds()})
		p.logger.Info("transcribed", "text", text, "segment", seg.ID, "duration", seg.Duration())

		p.setState(StateMatching)
		action, phrase, err := p.deps.Matcher.Match(text)
		if err != nil {
			// Not an error: nothing configured for this utterance.
			p.noMatches.Add(1)
			p.emit(Event{Type: "no_match", Text: text})
			p.logger.Info("no command matched", "text", text)
			continue
		}
		p.matches.Add(1)
		p.setLast(text, phrase)
		p.emit(Event{Type: "match", Text: text, Phrase: phrase})
		p.logger.Info("command matched", "phrase", phrase)

		p.setState(StateExecuting)
		if err := p.deps.Sequencer.Execute(ctx, action); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if sequencer.IsInvalidAction(err) {
				// Aborts this action only; the loop continues without
				// backoff.
				p.failures.Add(1)
				p.emit(Event{Type: "invalid_action", Phrase: phrase, Error: err.Error()})
				p.logger.Warn("invalid action", "phrase", phrase, "error", err)
				continue
			}
			p.fail("sequencer", err)
			if rerr := p.deps.Sequencer.ReleaseAll(); rerr != nil {
				p.logger.Error("failed to release held inputs", "error", rerr)
			}
			if werr := p.sleep(ctx, p.backoff); werr != nil {
				return werr
			}
			continue
		}
		p.emit(Event{Type: "executed", Phrase: phrase,
			ElapsedMS: time.Since(turnStart).Milliseconds()})
	}
}

func (p *Pipeline) warmupRecognizer(ctx context.Context) {
	p.setState(StateRecognizing)
	// Failure is tolerated; the first real utterance will retry the same
	// path through the normal recovery loop.
	_ = recognizer.Warmup(ctx, p.deps.Recognizer,
		p.deps.Normalizer.SampleRate(), p.deps.Normalizer.FixedSamples(), p.logger)
	p.setState(StateIdle)
}

func (p *Pipeline) fail(stage string, err error) {
	p.failures.Add(1)
	p.emit(Event{Type: "error", Error: err.Error()})
	p.logger.Error("stage failed", "stage", stage, "error", err, "backoff", p.backoff)
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pipeline) setState(s State) {
	if State(p.state.Swap(int32(s))) != s {
		p.emit(Event{Type: "state", State: s.String()})
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// setLast records the most recent transcript (and matched phrase, when
// non-empty) for the status snapshot.
func (p *Pipeline) setLast(text, phrase string) {
	p.lastMu.Lock()
	p.lastText = text
	if phrase != "" {
		p.lastPhrase = phrase
	}
	p.lastMu.Unlock()
}

func (p *Pipeline) emit(e Event) {
	if p.notify == nil {
		return
	}
	e.At = time.Now()
	p.notify(e)
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	State          string `json:"state"`
	Segments       uint64 `json:"segments"`
	Transcripts    uint64 `json:"transcripts"`
	Matches        uint64 `json:"matches"`
	NoMatches      uint64 `json:"no_matches"`
	Failures       uint64 `json:"failures"`
	FramesPushed   uint64 `json:"frames_pushed"`
	FramesDropped  uint64 `json:"frames_dropped"`
	LastTranscript string `json:"last_transcript,omitempty"`
	LastPhrase     string `json:"last_phrase,omitempty"`
}

// Snapshot returns current counters. Safe to call from any goroutine.
func (p *Pipeline) Snapshot() Stats {
	p.lastMu.Lock()
	lastText, lastPhrase := p.lastText, p.lastPhrase
	p.lastMu.Unlock()
	return Stats{
		State:          p.State().String(),
		Segments:       p.segments.Load(),
		Transcripts:    p.transcripts.Load(),
		Matches:        p.matches.Load(),
		NoMatches:      p.noMatches.Load(),
		Failures:       p.failures.Load(),
		FramesPushed:   p.deps.Bridge.Pushed(),
		FramesDropped:  p.deps.Bridge.Dropped(),
		LastTranscript: lastText,
		LastPhrase:     lastPhrase,
	}
}
