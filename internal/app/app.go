// Package app assembles the voice-to-gamepad service from its components
// and supervises their lifetimes.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Djarid/vinput/internal/config"
	"github.com/Djarid/vinput/internal/log"
	"github.com/Djarid/vinput/internal/observe"
	"github.com/Djarid/vinput/internal/web"
	"github.com/Djarid/vinput/pkg/audioio"
	"github.com/Djarid/vinput/pkg/command"
	"github.com/Djarid/vinput/pkg/gamepad"
	"github.com/Djarid/vinput/pkg/pipeline"
	"github.com/Djarid/vinput/pkg/recognizer"
	"github.com/Djarid/vinput/pkg/segment"
	"github.com/Djarid/vinput/pkg/sequencer"
	"github.com/Djarid/vinput/pkg/vad"
)

// App owns the assembled service. Build with New, drive with Run.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	source audioio.Source
	device gamepad.Device
	rec    recognizer.Recognizer
	pipe   *pipeline.Pipeline
	hub    *web.Hub
	server *web.Server
}

// New builds every component from cfg. Device or capture unavailability is
// fatal here; transient failures mid-run are the pipeline's job.
func New(cfg config.Config) (*App, error) {
	log.Init(cfg.LogLevel)
	logger := log.L()

	table, err := command.Load(cfg.CommandsFile, logger)
	if err != nil {
		return nil, err
	}

	device, err := gamepad.NewDevice(cfg.Gamepad.Backend, logger)
	if err != nil {
		return nil, err
	}

	rec, err := recognizer.New(cfg.RecognizerConfig(), logger)
	if err != nil {
		device.Close()
		return nil, err
	}

	source, err := audioio.NewSource(cfg.AudioConfig(), logger)
	if err != nil {
		rec.Close()
		device.Close()
		return nil, err
	}

	capacity := cfg.Audio.BridgeCapacity
	if capacity <= 0 {
		capacity = audioio.DefaultBridgeCapacity
	}
	bridge := audioio.NewBridge(capacity)

	detector := vad.NewEnergy(cfg.VADConfig())
	segmenter := segment.NewSegmenter(bridge, detector, cfg.SegmenterConfig(), logger)

	normalizer, err := segment.NewNormalizer(cfg.Audio.SampleRate, cfg.Recognizer.FixedDuration.Std())
	if err != nil {
		source.Close()
		rec.Close()
		device.Close()
		return nil, err
	}

	seqr := sequencer.New(device, cfg.SequencerConfig(), logger)
	matcher := command.NewMatcher(table, logger)

	hub := web.NewHub(logger)

	metrics, err := observe.NewMetrics(nil)
	if err != nil {
		source.Close()
		rec.Close()
		device.Close()
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}

	notify := func(e pipeline.Event) {
		metrics.HandleEvent(context.Background(), e)
		if err := hub.BroadcastJSON(e); err != nil {
			logger.Warn("failed to broadcast event", "error", err)
		}
	}

	pipe := pipeline.New(pipeline.Deps{
		Source:     source,
		Bridge:     bridge,
		Segmenter:  segmenter,
		Normalizer: normalizer,
		Recognizer: rec,
		Matcher:    matcher,
		Sequencer:  seqr,
	}, cfg.PipelineConfig(), logger, notify)

	if err := metrics.ObservePipeline(pipe.Snapshot); err != nil {
		source.Close()
		rec.Close()
		device.Close()
		return nil, fmt.Errorf("app: register pipeline metrics: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		source: source,
		device: device,
		rec:    rec,
		pipe:   pipe,
		hub:    hub,
	}
	if cfg.Web.Enabled {
		a.server = web.NewServer(cfg.WebConfig(), pipe, table, hub, logger)
	}
	return a, nil
}

// Run starts the pipeline (and the web server when enabled) and blocks
// until ctx is cancelled or a component fails fatally. All devices are
// released before returning.
func (a *App) Run(ctx context.Context) error {
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "vinput",
	})
	if err != nil {
		return fmt.Errorf("app: init telemetry: %w", err)
	}

	defer func() {
		if err := a.rec.Close(); err != nil {
			a.logger.Error("failed to close recognizer", "error", err)
		}
		if err := a.device.Close(); err != nil {
			a.logger.Error("failed to close gamepad device", "error", err)
		}
		if err := a.source.Close(); err != nil {
			a.logger.Error("failed to close capture source", "error", err)
		}
		if err := shutdownMetrics(context.Background()); err != nil {
			a.logger.Error("failed to shut down telemetry", "error", err)
		}
		a.logger.Info("shutdown complete")
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.pipe.Run(ctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(ctx)
		})
	}

	a.logger.Info("vinput started",
		"audio_backend", a.source.Name(),
		"recognizer", a.cfg.Recognizer.Backend,
		"gamepad", a.cfg.Gamepad.Backend,
		"web", a.cfg.Web.Enabled)

	return g.Wait()
}
