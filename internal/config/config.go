// Package config loads and validates the vinput YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Djarid/vinput/pkg/audioio"
	"github.com/Djarid/vinput/pkg/pipeline"
	"github.com/Djarid/vinput/pkg/recognizer"
	"github.com/Djarid/vinput/pkg/segment"
	"github.com/Djarid/vinput/pkg/sequencer"
	"github.com/Djarid/vinput/pkg/vad"

	"github.com/Djarid/vinput/internal/web"
)

// Duration wraps time.Duration so YAML can express values either as Go
// duration strings ("500ms", "2s") or as bare millisecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Audio configures the capture source.
type Audio struct {
	Backend       string   `yaml:"backend"`
	SampleRate    int      `yaml:"sample_rate"`
	Channels      int      `yaml:"channels"`
	FrameDuration Duration `yaml:"frame_duration"`
	Device        string   `yaml:"device"`

	// BridgeCapacity bounds the frame queue between capture and the
	// pipeline. Oldest frames are dropped when full.
	BridgeCapacity int `yaml:"bridge_capacity"`
}

// VAD configures the energy voice-activity detector.
type VAD struct {
	SpeechThreshold  float64 `yaml:"speech_threshold"`
	SilenceThreshold float64 `yaml:"silence_threshold"`
	SpeechFrames     int     `yaml:"speech_frames"`
	SilenceFrames    int     `yaml:"silence_frames"`
}

// Segmenter configures speech endpointing.
type Segmenter struct {
	SilenceThreshold Duration `yaml:"silence_threshold"`
	MaxSegment       Duration `yaml:"max_segment"`
	PullTimeout      Duration `yaml:"pull_timeout"`
}

// Recognizer selects and configures the recognition backend.
type Recognizer struct {
	Backend   string   `yaml:"backend"`
	URL       string   `yaml:"url"`
	ModelPath string   `yaml:"model_path"`
	Language  string   `yaml:"language"`
	Model     string   `yaml:"model"`
	Timeout   Duration `yaml:"timeout"`

	// FixedDuration is the normalized buffer length handed to the
	// recognizer (zero-padded or truncated).
	FixedDuration Duration `yaml:"fixed_duration"`
}

// Gamepad selects the output device backend.
type Gamepad struct {
	Backend string `yaml:"backend"`
}

// Sequencer configures action execution timing.
type Sequencer struct {
	SettleDelay Duration `yaml:"settle_delay"`
}

// Pipeline configures the orchestrator.
type Pipeline struct {
	Backoff Duration `yaml:"backoff"`
	Warmup  bool     `yaml:"warmup"`
}

// Web configures the status dashboard.
type Web struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	LogLevel     string     `yaml:"log_level"`
	CommandsFile string     `yaml:"commands_file"`
	Audio        Audio      `yaml:"audio"`
	VAD          VAD        `yaml:"vad"`
	Segmenter    Segmenter  `yaml:"segmenter"`
	Recognizer   Recognizer `yaml:"recognizer"`
	Gamepad      Gamepad    `yaml:"gamepad"`
	Sequencer    Sequencer  `yaml:"sequencer"`
	Pipeline     Pipeline   `yaml:"pipeline"`
	Web          Web        `yaml:"web"`
}

// Default returns the configuration used when a field is unset.
func Default() Config {
	audio := audioio.DefaultConfig()
	seg := segment.DefaultConfig()
	det := vad.DefaultEnergyConfig()
	return Config{
		LogLevel:     "info",
		CommandsFile: "commands.yaml",
		Audio: Audio{
			Backend:        string(audio.Backend),
			SampleRate:     audio.SampleRate,
			Channels:       audio.Channels,
			FrameDuration:  Duration(audio.FrameDuration),
			BridgeCapacity: audioio.DefaultBridgeCapacity,
		},
		VAD: VAD{
			SpeechThreshold:  det.SpeechThreshold,
			SilenceThreshold: det.SilenceThreshold,
			SpeechFrames:     det.SpeechFrames,
			SilenceFrames:    det.SilenceFrames,
		},
		Segmenter: Segmenter{
			SilenceThreshold: Duration(seg.SilenceThreshold),
			MaxSegment:       Duration(seg.MaxSegment),
			PullTimeout:      Duration(seg.PullTimeout),
		},
		Recognizer: Recognizer{
			Backend:       recognizer.BackendHTTP,
			URL:           "http://localhost:8080",
			Language:      "en",
			Timeout:       Duration(recognizer.DefaultHTTPTimeout),
			FixedDuration: Duration(30 * time.Second),
		},
		Gamepad:   Gamepad{Backend: "auto"},
		Sequencer: Sequencer{SettleDelay: Duration(sequencer.DefaultSettleDelay)},
		Pipeline: Pipeline{
			Backoff: Duration(pipeline.DefaultBackoff),
			Warmup:  true,
		},
		Web: Web{Enabled: false, Addr: ":8090"},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML over the defaults and validates the result.
// Unknown fields are rejected.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: defaults apply.
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for coherence. Returns a joined error
// listing all failures.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", c.LogLevel))
	}

	if c.CommandsFile == "" {
		errs = append(errs, errors.New("commands_file is required"))
	}

	audioCfg := c.AudioConfig()
	if err := audioCfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Segmenter.SilenceThreshold.Std() <= 0 {
		errs = append(errs, errors.New("segmenter.silence_threshold must be positive"))
	}
	if c.Segmenter.MaxSegment.Std() <= 0 {
		errs = append(errs, errors.New("segmenter.max_segment must be positive"))
	}

	if c.Recognizer.Backend == recognizer.BackendHTTP && c.Recognizer.URL == "" {
		errs = append(errs, errors.New("recognizer.url is required for the http backend"))
	}
	if c.Recognizer.Backend == recognizer.BackendNative && c.Recognizer.ModelPath == "" {
		errs = append(errs, errors.New("recognizer.model_path is required for the native backend"))
	}
	if c.Recognizer.FixedDuration.Std() <= 0 {
		errs = append(errs, errors.New("recognizer.fixed_duration must be positive"))
	}

	if c.Web.Enabled && c.Web.Addr == "" {
		errs = append(errs, errors.New("web.addr is required when web.enabled is true"))
	}

	return errors.Join(errs...)
}

// AudioConfig converts to the capture package's config.
func (c *Config) AudioConfig() audioio.Config {
	return audioio.Config{
		Backend:       audioio.Backend(c.Audio.Backend),
		SampleRate:    c.Audio.SampleRate,
		Channels:      c.Audio.Channels,
		FrameDuration: c.Audio.FrameDuration.Std(),
		Device:        c.Audio.Device,
	}
}

// VADConfig converts to the detector package's config.
func (c *Config) VADConfig() vad.EnergyConfig {
	return vad.EnergyConfig{
		SpeechThreshold:  c.VAD.SpeechThreshold,
		SilenceThreshold: c.VAD.SilenceThreshold,
		SpeechFrames:     c.VAD.SpeechFrames,
		SilenceFrames:    c.VAD.SilenceFrames,
	}
}

// SegmenterConfig converts to the segment package's config.
func (c *Config) SegmenterConfig() segment.Config {
	return segment.Config{
		SilenceThreshold: c.Segmenter.SilenceThreshold.Std(),
		MaxSegment:       c.Segmenter.MaxSegment.Std(),
		PullTimeout:      c.Segmenter.PullTimeout.Std(),
	}
}

// RecognizerConfig converts to the recognizer package's config.
func (c *Config) RecognizerConfig() recognizer.Config {
	return recognizer.Config{
		Backend:   c.Recognizer.Backend,
		URL:       c.Recognizer.URL,
		ModelPath: c.Recognizer.ModelPath,
		Language:  c.Recognizer.Language,
		Model:     c.Recognizer.Model,
		Timeout:   c.Recognizer.Timeout.Std(),
	}
}

// SequencerConfig converts to the sequencer package's config.
func (c *Config) SequencerConfig() sequencer.Config {
	return sequencer.Config{SettleDelay: c.Sequencer.SettleDelay.Std()}
}

// PipelineConfig converts to the pipeline package's config.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Backoff: c.Pipeline.Backoff.Std(),
		Warmup:  c.Pipeline.Warmup,
	}
}

// WebConfig converts to the web package's config.
func (c *Config) WebConfig() web.Config {
	return web.Config{Enabled: c.Web.Enabled, Addr: c.Web.Addr}
}
