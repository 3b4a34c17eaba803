package session

import (
	"time"

	"github.com/presentbetter/coach-engine/internal/gate"
	"github.com/presentbetter/coach-engine/internal/gaze"
	"github.com/presentbetter/coach-engine/internal/scoring"
	"github.com/presentbetter/coach-engine/internal/signals"
	"github.com/presentbetter/coach-engine/internal/training"
)

// #region config
// Config holds the session timing and every collector and scoring knob.
type Config struct {
	PresentingTicks       int
	TrainingTicks         int
	PrerollSteps          int
	TickInterval          time.Duration
	PrerollInterval       time.Duration
	SpeechFinalizeTimeout time.Duration
	ActivityWindow        int // per-modality boolean history kept while presenting

	Gaze       gaze.Policy
	Collector  signals.CollectorConfig
	Thresholds training.Thresholds
	Transition gate.TransitionConfig
	Curve      scoring.Curve
}

// DefaultConfig returns a 15 s presentation and 20 s training run.
func DefaultConfig() Config {
	return Config{
		PresentingTicks:       30,
		TrainingTicks:         40,
		PrerollSteps:          5,
		TickInterval:          500 * time.Millisecond,
		PrerollInterval:       800 * time.Millisecond,
		SpeechFinalizeTimeout: 60 * time.Second,
		ActivityWindow:        15,
		Gaze:                  gaze.DefaultPolicy(),
		Collector:             signals.DefaultCollectorConfig(),
		Thresholds:            training.DefaultThresholds(),
		Transition:            gate.DefaultTransitionConfig(),
		Curve:                 scoring.DefaultCurve(),
	}
}

// ticksFor returns the countdown length for a mode.
func (c Config) ticksFor(m Mode) int {
	if m == Presenting {
		return c.PresentingTicks
	}
	return c.TrainingTicks
}

// #endregion config
