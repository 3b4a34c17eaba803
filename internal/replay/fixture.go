package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/presentbetter/coach-engine/internal/gaze"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/signals"
)

// #region fixture-types
// Fixture is a recorded (or hand-written) sensor trace for one session.
// Fixtures load from JSON or YAML, chosen by file extension.
type Fixture struct {
	Description          string                      `json:"description" yaml:"description"`
	Mode                 string                      `json:"mode" yaml:"mode"`
	UserID               string                      `json:"user_id" yaml:"user_id"`
	EyeTrackingSupported bool                        `json:"eye_tracking_supported" yaml:"eye_tracking_supported"`
	SpeechEnabled        bool                        `json:"speech_enabled" yaml:"speech_enabled"`
	Timestamp            int64                       `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // unix seconds stamped on the record
	Config               FixtureConfig               `json:"config" yaml:"config"`
	Ticks                []FixtureTick               `json:"ticks" yaml:"ticks"`
	SpeechFinal          []signals.TranscriptSegment `json:"speech_final,omitempty" yaml:"speech_final,omitempty"`
	Abort                *FixtureAbort               `json:"abort,omitempty" yaml:"abort,omitempty"`
	Expected             FixtureExpected             `json:"expected" yaml:"expected"`
}

// FixtureConfig overrides session defaults. Zero values keep the default.
type FixtureConfig struct {
	PresentingTicks     int      `json:"presenting_ticks,omitempty" yaml:"presenting_ticks,omitempty"`
	TrainingTicks       int      `json:"training_ticks,omitempty" yaml:"training_ticks,omitempty"`
	MoveThresholdDeg    float64  `json:"move_threshold_deg,omitempty" yaml:"move_threshold_deg,omitempty"`
	CarryForward        *bool    `json:"carry_forward,omitempty" yaml:"carry_forward,omitempty"`
	ResetFallbackWPM    *float64 `json:"reset_fallback_wpm,omitempty" yaml:"reset_fallback_wpm,omitempty"`
	SpeechTimeoutMillis int      `json:"speech_timeout_ms,omitempty" yaml:"speech_timeout_ms,omitempty"`
}

// FixtureTick is what the sensors reported during one half-second span.
// Repeat plays the same span several times.
type FixtureTick struct {
	Repeat int           `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Faces  []string      `json:"faces,omitempty" yaml:"faces,omitempty"` // emotion labels; "none" for no face
	Poses  []FixturePose `json:"poses,omitempty" yaml:"poses,omitempty"`
	Gaze   []FixtureGaze `json:"gaze,omitempty" yaml:"gaze,omitempty"`
	Words  *int          `json:"words,omitempty" yaml:"words,omitempty"` // cumulative transcript length
}

// FixturePose is one pose detection, either as raw joints or as a pair of
// elbow angles (left, right) in degrees. Neither means no body detected.
type FixturePose struct {
	Joints signals.JointMap `json:"joints,omitempty" yaml:"joints,omitempty"`
	Arms   []float64        `json:"arms,omitempty" yaml:"arms,omitempty"`
}

// FixtureGaze is one face-anchor update with both eyes sharing the same
// rotation (radians) at Distance metres. Missing means no face anchor.
type FixtureGaze struct {
	Pitch    float64 `json:"pitch,omitempty" yaml:"pitch,omitempty"`
	Yaw      float64 `json:"yaw,omitempty" yaml:"yaw,omitempty"`
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
	Missing  bool    `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// FixtureAbort aborts the session after the given number of main ticks
// (0 aborts during pre-roll).
type FixtureAbort struct {
	AfterTicks int    `json:"after_ticks" yaml:"after_ticks"`
	Reason     string `json:"reason" yaml:"reason"` // "sensor_failure" | "permission_denied"
}

// FixtureExpected lists the values a replay must reproduce. Nil fields are
// not checked.
type FixtureExpected struct {
	Smiles       *int          `json:"smiles,omitempty" yaml:"smiles,omitempty"`
	HandMoves    *int          `json:"hand_moves,omitempty" yaml:"hand_moves,omitempty"`
	Looks        *int          `json:"looks,omitempty" yaml:"looks,omitempty"`
	Composite    *int          `json:"composite,omitempty" yaml:"composite,omitempty"`
	VerbalRating string        `json:"verbal_rating,omitempty" yaml:"verbal_rating,omitempty"`
	Tips         []ExpectedTip `json:"tips,omitempty" yaml:"tips,omitempty"`
	Aborted      bool          `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// ExpectedTip is a coaching tip expected at a countdown value.
type ExpectedTip struct {
	TicksRemaining int    `json:"ticks_remaining" yaml:"ticks_remaining"`
	Tip            string `json:"tip" yaml:"tip"`
}

// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads and parses a fixture file. .yaml and .yml files are
// parsed as YAML, everything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToOptions converts the fixture header to session options.
func (f *Fixture) ToOptions() (session.Options, error) {
	mode, err := session.ParseMode(f.Mode)
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Mode:                 mode,
		UserID:               f.UserID,
		EyeTrackingSupported: f.EyeTrackingSupported,
		SpeechEnabled:        f.SpeechEnabled,
	}, nil
}

// ToConfig applies the fixture overrides to base.
func (fc *FixtureConfig) ToConfig(base session.Config) session.Config {
	cfg := base
	if fc.PresentingTicks > 0 {
		cfg.PresentingTicks = fc.PresentingTicks
	}
	if fc.TrainingTicks > 0 {
		cfg.TrainingTicks = fc.TrainingTicks
	}
	if fc.MoveThresholdDeg > 0 {
		cfg.Collector.MoveThresholdDeg = fc.MoveThresholdDeg
	}
	if fc.CarryForward != nil {
		cfg.Collector.CarryForward = *fc.CarryForward
	}
	if fc.ResetFallbackWPM != nil {
		cfg.Collector.ResetFallbackWPM = *fc.ResetFallbackWPM
	}
	if fc.SpeechTimeoutMillis > 0 {
		cfg.SpeechFinalizeTimeout = time.Duration(fc.SpeechTimeoutMillis) * time.Millisecond
	}
	return cfg
}

// ToSteps expands the tick list (honouring Repeat) into replay steps.
func (f *Fixture) ToSteps() ([]Step, error) {
	var steps []Step
	for i, ft := range f.Ticks {
		step, err := ft.toStep()
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		n := ft.Repeat
		if n <= 0 {
			n = 1
		}
		for k := 0; k < n; k++ {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

func (ft *FixtureTick) toStep() (Step, error) {
	var step Step
	for _, face := range ft.Faces {
		if face == "" || strings.EqualFold(face, "none") {
			step.Faces = append(step.Faces, FaceObservation{})
			continue
		}
		label, ok := signals.ParseEmotionLabel(face)
		if !ok {
			return Step{}, fmt.Errorf("unknown emotion label %q", face)
		}
		step.Faces = append(step.Faces, FaceObservation{Label: label, Detected: true})
	}
	for _, p := range ft.Poses {
		obs, err := p.toObservation()
		if err != nil {
			return Step{}, err
		}
		step.Poses = append(step.Poses, obs)
	}
	for _, g := range ft.Gaze {
		step.Gaze = append(step.Gaze, g.toPose())
	}
	step.Words = ft.Words
	return step, nil
}

func (p FixturePose) toObservation() (PoseObservation, error) {
	switch {
	case len(p.Joints) > 0:
		return PoseObservation{Joints: p.Joints, Detected: true}, nil
	case len(p.Arms) == 2:
		return PoseObservation{Joints: ArmJoints(p.Arms[0], p.Arms[1]), Detected: true}, nil
	case len(p.Arms) == 0:
		return PoseObservation{}, nil
	default:
		return PoseObservation{}, fmt.Errorf("arms needs two angles, got %d", len(p.Arms))
	}
}

func (g FixtureGaze) toPose() *gaze.EyePose {
	if g.Missing {
		return nil
	}
	d := g.Distance
	if d == 0 {
		d = 0.6
	}
	eye := gaze.Eye{Pitch: g.Pitch, Yaw: g.Yaw, Position: [3]float64{0, 0, d}}
	return &gaze.EyePose{Left: eye, Right: eye}
}

// ArmJoints builds a confident joint map with the given elbow angles in
// degrees: shoulder at the origin, elbow one unit below it.
func ArmJoints(leftDeg, rightDeg float64) signals.JointMap {
	m := signals.JointMap{}
	place := func(wrist, elbow, shoulder signals.Joint, deg float64) {
		rad := deg * math.Pi / 180
		m[shoulder] = signals.JointPoint{X: 0, Y: 0, Confidence: 1}
		m[elbow] = signals.JointPoint{X: 0, Y: -1, Confidence: 1}
		m[wrist] = signals.JointPoint{X: math.Sin(rad), Y: -1 + math.Cos(rad), Confidence: 1}
	}
	place(signals.LeftWrist, signals.LeftElbow, signals.LeftShoulder, leftDeg)
	place(signals.RightWrist, signals.RightElbow, signals.RightShoulder, rightDeg)
	return m
}

// AbortReason maps a fixture reason to its session error.
func (a *FixtureAbort) AbortReason() error {
	switch a.Reason {
	case "permission_denied":
		return session.ErrPermissionDenied
	default:
		return session.ErrSensorFailure
	}
}

// #endregion fixture-loader
