package vad

import "math"

// EnergyConfig holds the parameters of the RMS energy detector.
// Thresholds are RMS amplitudes normalized to [0, 1].
type EnergyConfig struct {
	// SpeechThreshold is the RMS level at or above which frames count
	// toward entering speech.
	SpeechThreshold float64

	// SilenceThreshold is the RMS level below which frames count toward
	// leaving speech. Must be <= SpeechThreshold (hysteresis).
	SilenceThreshold float64

	// SpeechFrames is the number of consecutive loud frames required to
	// enter the speech state.
	SpeechFrames int

	// SilenceFrames is the number of consecutive quiet frames required to
	// leave the speech state.
	SilenceFrames int
}

// DefaultEnergyConfig returns parameters suitable for 16kHz 60ms frames.
func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
		SpeechFrames:     1,
		SilenceFrames:    1,
	}
}

// Energy is a pure-Go voice activity detector based on RMS energy levels.
// Hysteresis between the enter and exit thresholds avoids flickering between
// speech and silence on breathy audio.
type Energy struct {
	cfg          EnergyConfig
	inSpeech     bool
	speechCount  int
	silenceCount int
}

// NewEnergy creates an RMS energy detector.
func NewEnergy(cfg EnergyConfig) *Energy {
	if cfg.SpeechFrames < 1 {
		cfg.SpeechFrames = 1
	}
	if cfg.SilenceFrames < 1 {
		cfg.SilenceFrames = 1
	}
	if cfg.SilenceThreshold > cfg.SpeechThreshold {
		cfg.SilenceThreshold = cfg.SpeechThreshold
	}
	return &Energy{cfg: cfg}
}

// IsSpeech reports whether the frame is considered speech.
func (v *Energy) IsSpeech(samples []int16) bool {
	level := rms(samples)

	if v.inSpeech {
		if level < v.cfg.SilenceThreshold {
			v.silenceCount++
			v.speechCount = 0
			if v.silenceCount >= v.cfg.SilenceFrames {
				v.inSpeech = false
				v.silenceCount = 0
			}
		} else {
			v.silenceCount = 0
		}
	} else {
		if level >= v.cfg.SpeechThreshold {
			v.speechCount++
			v.silenceCount = 0
			if v.speechCount >= v.cfg.SpeechFrames {
				v.inSpeech = true
				v.speechCount = 0
			}
		} else {
			v.speechCount = 0
		}
	}

	return v.inSpeech
}

// Reset clears internal state.
func (v *Energy) Reset() {
	v.inSpeech = false
	v.speechCount = 0
	v.silenceCount = 0
}

// rms returns the root-mean-square amplitude of the frame, normalized so
// that a full-scale square wave is 1.0.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

var _ Detector = (*Energy)(nil)
