package session

import (
	"errors"
	"fmt"

	"github.com/presentbetter/coach-engine/internal/signals"
	"github.com/presentbetter/coach-engine/internal/training"
)

// #region errors
var (
	// ErrPermissionDenied aborts a session whose camera or microphone access
	// was refused before presenting began.
	ErrPermissionDenied = errors.New("sensor permission denied")
	// ErrSensorFailure aborts a session after a tracker or recognizer failed
	// for good.
	ErrSensorFailure = errors.New("sensor failure")
	// ErrAborted wraps every abort reason returned from Finish.
	ErrAborted = errors.New("session aborted")
)

// #endregion errors

// #region mode
// Mode selects a full presentation or a single-skill training run.
type Mode string

const (
	Presenting      Mode = "presenting"
	TrainingFacial  Mode = "training_facial"
	TrainingGesture Mode = "training_gesture"
	TrainingEye     Mode = "training_eye_contact"
	TrainingSpeech  Mode = "training_speech"
)

var trainingModality = map[Mode]signals.Modality{
	TrainingFacial:  signals.Facial,
	TrainingGesture: signals.Gesture,
	TrainingEye:     signals.EyeContact,
	TrainingSpeech:  signals.Speech,
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if m == Presenting {
		return m, nil
	}
	if _, ok := trainingModality[m]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Training reports whether live coaching tips are produced.
func (m Mode) Training() bool {
	_, ok := trainingModality[m]
	return ok
}

// Modality is the skill trained in this mode. ok is false for Presenting.
func (m Mode) Modality() (signals.Modality, bool) {
	mod, ok := trainingModality[m]
	return mod, ok
}

// #endregion mode

// #region phase
// Phase is the session lifecycle position.
type Phase string

const (
	PhasePreparing  Phase = "preparing"  // pre-roll countdown
	PhasePresenting Phase = "presenting" // main countdown running
	PhaseFinalizing Phase = "finalizing" // countdown done, waiting for speech
	PhaseCompleted  Phase = "completed"
	PhaseAborted    Phase = "aborted"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}

// #endregion phase

// #region options
// Options are the per-session inputs chosen by the user and the device.
type Options struct {
	Mode                 Mode
	UserID               string
	EyeTrackingSupported bool
	SpeechEnabled        bool
}

// #endregion options

// #region totals
// Totals are the per-session counters. Each tick adds at most one to each
// non-verbal counter.
type Totals struct {
	Smiles          int     `json:"smiles"`
	HandMoves       int     `json:"handMoves"`
	Looks           int     `json:"looks"`
	Words           int     `json:"words"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// #endregion totals

// #region results
// Feedback is an accepted coaching transition for the trained modality.
type Feedback struct {
	Modality       signals.Modality `json:"modality"`
	State          training.State   `json:"-"`
	StateName      string           `json:"state"`
	Previous       string           `json:"previous,omitempty"`
	Tip            string           `json:"tip"`
	Initial        bool             `json:"initial"`
	TicksRemaining int              `json:"ticksRemaining"`
}

// PrerollResult reports one pre-roll countdown step.
type PrerollResult struct {
	Remaining int
	Started   bool // presenting began on this step
	Display   string
}

// TickResult is the outcome of one main-countdown tick.
type TickResult struct {
	TicksRemaining int
	Display        string
	DisplayChanged bool
	Signals        []signals.Signal
	Feedback       *Feedback
	Done           bool
}

// TrainingResult summarises a finished training session.
type TrainingResult struct {
	Modality signals.Modality `json:"modality"`
	Passes   int              `json:"passes"`
	WPM      float64          `json:"wpm"`
	State    string           `json:"state"`
	Tip      string           `json:"tip"`
}

// #endregion results
