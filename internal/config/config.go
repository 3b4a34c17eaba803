package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/presentbetter/coach-engine/internal/session"
)

// EnvPrefix namespaces every environment override, e.g.
// PRESENTBETTER_SESSION_PRESENTING_TICKS.
const EnvPrefix = "PRESENTBETTER"

// #region types
// Config is the resolved runtime configuration.
type Config struct {
	Session session.Config

	StorePath         string
	PerceptionAddr    string // empty disables the remote classifier
	PerceptionTimeout time.Duration
	FeedAddr          string
	LogLevel          string
	LogFormat         string
}

// #endregion types

// #region defaults
func setDefaults(v *viper.Viper) {
	d := session.DefaultConfig()

	v.SetDefault("session.presenting_ticks", d.PresentingTicks)
	v.SetDefault("session.training_ticks", d.TrainingTicks)
	v.SetDefault("session.preroll_steps", d.PrerollSteps)
	v.SetDefault("session.tick_interval", d.TickInterval)
	v.SetDefault("session.preroll_interval", d.PrerollInterval)
	v.SetDefault("session.speech_timeout", d.SpeechFinalizeTimeout)
	v.SetDefault("session.activity_window", d.ActivityWindow)

	v.SetDefault("gaze.optimum_distance_cm", d.Gaze.OptimumDistanceCm)
	v.SetDefault("gaze.pitch_tolerance", d.Gaze.PitchTolerance)
	v.SetDefault("gaze.yaw_tolerance", d.Gaze.YawTolerance)

	v.SetDefault("gesture.joint_confidence", d.Collector.JointConfidence)
	v.SetDefault("gesture.arm_window", d.Collector.ArmWindow)
	v.SetDefault("gesture.move_threshold_deg", d.Collector.MoveThresholdDeg)
	v.SetDefault("gesture.carry_forward", d.Collector.CarryForward)

	v.SetDefault("speech.pace_window_ticks", d.Collector.PaceWindowTicks)
	v.SetDefault("speech.pace_window_seconds", d.Collector.PaceWindowSeconds)
	v.SetDefault("speech.reset_fallback_wpm", d.Collector.ResetFallbackWPM)

	v.SetDefault("training.hit_window", d.Thresholds.HitWindow)
	v.SetDefault("training.hit_low", d.Thresholds.HitLow)
	v.SetDefault("training.hit_high", d.Thresholds.HitHigh)
	v.SetDefault("training.pace_low_wpm", d.Thresholds.PaceLowWPM)
	v.SetDefault("training.pace_high_wpm", d.Thresholds.PaceHighWPM)
	v.SetDefault("training.history_size", d.Transition.HistorySize)
	v.SetDefault("training.confirmations", d.Transition.Confirmations)

	v.SetDefault("scoring.low", d.Curve.Low)
	v.SetDefault("scoring.high", d.Curve.High)
	v.SetDefault("scoring.fall_span", d.Curve.FallSpan)

	v.SetDefault("store.path", "presentbetter.db")
	v.SetDefault("perception.addr", "")
	v.SetDefault("perception.timeout", 2*time.Second)
	v.SetDefault("feed.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// #endregion defaults

// #region load
// Load resolves the configuration. path may be empty, in which case only
// defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	s := session.DefaultConfig()

	s.PresentingTicks = v.GetInt("session.presenting_ticks")
	s.TrainingTicks = v.GetInt("session.training_ticks")
	s.PrerollSteps = v.GetInt("session.preroll_steps")
	s.TickInterval = v.GetDuration("session.tick_interval")
	s.PrerollInterval = v.GetDuration("session.preroll_interval")
	s.SpeechFinalizeTimeout = v.GetDuration("session.speech_timeout")
	s.ActivityWindow = v.GetInt("session.activity_window")

	s.Gaze.OptimumDistanceCm = v.GetFloat64("gaze.optimum_distance_cm")
	s.Gaze.PitchTolerance = v.GetFloat64("gaze.pitch_tolerance")
	s.Gaze.YawTolerance = v.GetFloat64("gaze.yaw_tolerance")

	s.Collector.JointConfidence = v.GetFloat64("gesture.joint_confidence")
	s.Collector.ArmWindow = v.GetInt("gesture.arm_window")
	s.Collector.MoveThresholdDeg = v.GetFloat64("gesture.move_threshold_deg")
	s.Collector.CarryForward = v.GetBool("gesture.carry_forward")

	s.Collector.PaceWindowTicks = v.GetInt("speech.pace_window_ticks")
	s.Collector.PaceWindowSeconds = v.GetFloat64("speech.pace_window_seconds")
	s.Collector.ResetFallbackWPM = v.GetFloat64("speech.reset_fallback_wpm")

	s.Thresholds.HitWindow = v.GetInt("training.hit_window")
	s.Thresholds.HitLow = v.GetInt("training.hit_low")
	s.Thresholds.HitHigh = v.GetInt("training.hit_high")
	s.Thresholds.PaceLowWPM = v.GetFloat64("training.pace_low_wpm")
	s.Thresholds.PaceHighWPM = v.GetFloat64("training.pace_high_wpm")
	s.Transition.HistorySize = v.GetInt("training.history_size")
	s.Transition.Confirmations = v.GetInt("training.confirmations")

	s.Curve.Low = v.GetInt("scoring.low")
	s.Curve.High = v.GetInt("scoring.high")
	s.Curve.FallSpan = v.GetInt("scoring.fall_span")

	return &Config{
		Session:           s,
		StorePath:         v.GetString("store.path"),
		PerceptionAddr:    v.GetString("perception.addr"),
		PerceptionTimeout: v.GetDuration("perception.timeout"),
		FeedAddr:          v.GetString("feed.addr"),
		LogLevel:          v.GetString("log.level"),
		LogFormat:         v.GetString("log.format"),
	}
}

// #endregion load

// #region validate
// Validate rejects settings the session engine cannot run with.
func (c *Config) Validate() error {
	s := c.Session
	var errs []error
	if s.PresentingTicks <= 0 || s.TrainingTicks <= 0 {
		errs = append(errs, errors.New("session ticks must be positive"))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, errors.New("session.tick_interval must be positive"))
	}
	if s.Collector.ArmWindow < 2 {
		errs = append(errs, errors.New("gesture.arm_window must hold at least 2 angles"))
	}
	if s.Collector.PaceWindowSeconds <= 0 {
		errs = append(errs, errors.New("speech.pace_window_seconds must be positive"))
	}
	if s.Thresholds.HitWindow <= 0 || s.Thresholds.HitLow > s.Thresholds.HitHigh {
		errs = append(errs, errors.New("training hit window or bands invalid"))
	}
	if s.Curve.Low <= 0 || s.Curve.Low >= s.Curve.High || s.Curve.FallSpan <= 0 {
		errs = append(errs, errors.New("scoring curve invalid"))
	}
	if c.StorePath == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate
