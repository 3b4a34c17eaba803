package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/presentbetter/coach-engine/internal/gate"
	"github.com/presentbetter/coach-engine/internal/gaze"
	"github.com/presentbetter/coach-engine/internal/logging"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/scoring"
	"github.com/presentbetter/coach-engine/internal/signals"
	"github.com/presentbetter/coach-engine/internal/training"
	"github.com/presentbetter/coach-engine/internal/window"
)

// #region session
// Session is the state of one presentation or training run. All methods are
// safe for concurrent use; observations and ticks are applied in the order
// they acquire the lock. A Session never reads the wall clock for its
// countdown, so callers (Runner, replay) drive it explicitly.
type Session struct {
	mu     sync.Mutex
	id     string
	cfg    Config
	opts   Options
	logger logrus.FieldLogger

	phase          Phase
	preroll        int
	maxTicks       int
	ticksRemaining int
	display        string

	smiledInSpan    bool
	handMovedInSpan bool

	gesture  *signals.GestureCollector
	eye      *signals.EyeContactCollector
	speech   *signals.SpeechCollector
	activity map[signals.Modality]*window.Sliding[bool]

	hits       *window.Sliding[bool]
	controller *gate.Controller

	totals   Totals
	finalWPM float64

	speechDone      chan struct{}
	speechFinalized bool
	aborted         chan struct{}
	abortErr        error

	engine  *scoring.Engine
	builder *record.Builder
	result  *record.ScoreRecord
}

// New creates a session in the pre-roll phase. A nil logger discards output.
func New(cfg Config, opts Options, logger logrus.FieldLogger) (*Session, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	maxTicks := cfg.ticksFor(opts.Mode)
	if maxTicks <= 0 {
		return nil, fmt.Errorf("new session: non-positive tick count %d", maxTicks)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	id := uuid.New().String()
	s := &Session{
		id:       id,
		cfg:      cfg,
		opts:     opts,
		phase:    PhasePreparing,
		preroll:  cfg.PrerollSteps,
		maxTicks: maxTicks,
		display:  formatDisplay(maxTicks),
		logger: logger.WithFields(logrus.Fields{
			"session_id": id,
			"mode":       string(opts.Mode),
		}),
		gesture:    signals.NewGestureCollector(cfg.Collector),
		eye:        signals.NewEyeContactCollector(cfg.Gaze),
		speech:     signals.NewSpeechCollector(cfg.Collector),
		activity:   make(map[signals.Modality]*window.Sliding[bool]),
		hits:       window.New[bool](cfg.Thresholds.HitWindow),
		controller: gate.NewController(cfg.Transition),
		speechDone: make(chan struct{}),
		aborted:    make(chan struct{}),
		engine:     scoring.NewEngine(cfg.Curve),
		builder:    record.NewBuilder(nil),
	}
	for _, m := range []signals.Modality{signals.Facial, signals.Gesture, signals.EyeContact} {
		s.activity[m] = window.New[bool](cfg.ActivityWindow)
	}
	return s, nil
}

// SetClock replaces the record timestamp source. Used by replay.
func (s *Session) SetClock(b *record.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builder = b
}

// #endregion session

// #region accessors
func (s *Session) ID() string       { return s.id }
func (s *Session) Options() Options { return s.opts }
func (s *Session) Config() Config   { return s.cfg }

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Display returns the countdown label.
func (s *Session) Display() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// TicksRemaining returns the main countdown value.
func (s *Session) TicksRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticksRemaining
}

// Totals returns a snapshot of the counters.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Activity returns the recent per-tick verdicts of a modality, oldest first.
func (s *Session) Activity(m signals.Modality) []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.activity[m]
	if !ok {
		return nil
	}
	return w.Values()
}

// Err returns the abort reason, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortErr
}

// Aborted is closed when the session is aborted.
func (s *Session) Aborted() <-chan struct{} {
	return s.aborted
}

// #endregion accessors

// #region preroll
// AdvancePreroll steps the pre-roll countdown. The step that reaches zero
// starts presenting and, if enabled, speech recognition.
func (s *Session) AdvancePreroll() (PrerollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePreparing {
		return PrerollResult{}, fmt.Errorf("advance preroll: session is %s", s.phase)
	}
	s.preroll--
	if s.preroll > 0 {
		return PrerollResult{Remaining: s.preroll, Display: s.display}, nil
	}

	s.preroll = 0
	s.phase = PhasePresenting
	s.ticksRemaining = s.maxTicks
	s.display = formatDisplay(s.maxTicks)
	if s.opts.SpeechEnabled {
		s.speech.Start(s.maxTicks)
	}
	s.logger.WithField("ticks", s.maxTicks).Info("presenting started")
	return PrerollResult{Remaining: 0, Started: true, Display: s.display}, nil
}

// #endregion preroll

// #region observe
// ObserveFace records one emotion classification. Only Happy latches a smile
// for the current tick; no face is not an error.
func (s *Session) ObserveFace(label signals.EmotionLabel, detected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePresenting {
		return
	}
	if sig, ok := signals.FacialSignal(s.ticksRemaining, label, detected); ok && sig.Hit {
		s.smiledInSpan = true
	}
}

// ObservePose records one body pose detection.
func (s *Session) ObservePose(joints signals.JointMap, detected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePresenting {
		return
	}
	if sig, ok := s.gesture.Observe(s.ticksRemaining, joints, detected); ok && sig.Hit {
		s.handMovedInSpan = true
	}
}

// ObserveGaze records one face-anchor update. nil means no face anchor.
// Ignored on devices without eye tracking.
func (s *Session) ObserveGaze(pose *gaze.EyePose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePresenting || !s.opts.EyeTrackingSupported {
		return
	}
	s.eye.Observe(pose)
}

// ObserveTranscript records the recognizer's cumulative word count.
// Partial results keep arriving after the countdown ends.
func (s *Session) ObserveTranscript(totalWords int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePresenting && s.phase != PhaseFinalizing {
		return
	}
	if _, ok := s.speech.Observe(totalWords, s.ticksRemaining); ok {
		s.totals.Words = totalWords
	}
}

// FinalizeSpeech delivers the final transcript and releases Finish. Only the
// first call counts.
func (s *Session) FinalizeSpeech(segments []signals.TranscriptSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speechFinalized || s.phase.Terminal() {
		return
	}
	s.speechFinalized = true
	s.finalWPM = signals.FinalWPM(segments)
	s.totals.Words = len(segments)
	close(s.speechDone)
	s.logger.WithField("wpm", s.finalWPM).Debug("speech finalized")
}

// #endregion observe

// #region tick
// AdvanceTick runs one main-countdown tick: decrement, fold the latched
// observations into the totals and, in training modes, classify the window.
func (s *Session) AdvanceTick() (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePresenting {
		return TickResult{}, fmt.Errorf("advance tick: session is %s", s.phase)
	}

	s.ticksRemaining--
	res := TickResult{TicksRemaining: s.ticksRemaining}
	if s.ticksRemaining%2 == 0 {
		s.display = formatDisplay(s.ticksRemaining)
		res.DisplayChanged = true
	}
	res.Display = s.display

	smiled := s.smiledInSpan
	moved := s.handMovedInSpan
	s.smiledInSpan, s.handMovedInSpan = false, false

	var looked bool
	var eyeSig signals.Signal
	if s.opts.EyeTrackingSupported {
		eyeSig = s.eye.Tick(s.ticksRemaining)
		looked = eyeSig.Hit
	}
	res.Signals = []signals.Signal{
		{Modality: signals.Facial, Tick: s.ticksRemaining, Hit: smiled, Value: boolValue(smiled)},
		{Modality: signals.Gesture, Tick: s.ticksRemaining, Hit: moved, Value: boolValue(moved)},
	}
	if s.opts.EyeTrackingSupported {
		res.Signals = append(res.Signals, eyeSig)
	}

	s.count(signals.Facial, smiled, &s.totals.Smiles)
	s.count(signals.Gesture, moved, &s.totals.HandMoves)
	s.count(signals.EyeContact, looked, &s.totals.Looks)

	if mod, ok := s.opts.Mode.Modality(); ok {
		var hit bool
		switch mod {
		case signals.Facial:
			hit = smiled
		case signals.Gesture:
			hit = moved
		case signals.EyeContact:
			hit = looked
		}
		res.Feedback = s.coach(mod, hit)
	}

	if s.ticksRemaining <= 0 {
		s.ticksRemaining = 0
		s.phase = PhaseFinalizing
		s.totals.DurationSeconds = float64(s.maxTicks) * s.cfg.TickInterval.Seconds()
		res.Done = true
		s.logger.WithFields(logrus.Fields{
			"smiles":     s.totals.Smiles,
			"hand_moves": s.totals.HandMoves,
			"looks":      s.totals.Looks,
		}).Info("countdown finished")
	}
	return res, nil
}

func (s *Session) count(m signals.Modality, hit bool, total *int) {
	s.activity[m].Push(hit)
	if hit {
		*total++
	}
}

// coach classifies the trained modality and runs the transition controller.
// Returns nil while the window is filling or the controller holds.
func (s *Session) coach(mod signals.Modality, hit bool) *Feedback {
	var candidate training.State
	if mod == signals.Speech {
		wpm, ready := s.speech.PaceWPM(s.ticksRemaining)
		if !ready {
			return nil
		}
		candidate = s.cfg.Thresholds.ClassifyPace(wpm)
	} else {
		s.hits.Push(hit)
		if !s.hits.Full() {
			return nil
		}
		candidate = s.cfg.Thresholds.ClassifyHits(window.CountTrue(s.hits.Values()))
	}

	d := s.controller.Evaluate(candidate)
	if !d.Changed() {
		return nil
	}
	fb := &Feedback{
		Modality:       mod,
		State:          d.To,
		StateName:      d.To.String(),
		Tip:            training.LiveTip(mod, d.To),
		Initial:        d.Action == gate.ActionInitial,
		TicksRemaining: s.ticksRemaining,
	}
	if !fb.Initial {
		fb.Previous = d.From.String()
	}
	s.logger.WithFields(logrus.Fields{
		"modality": string(mod),
		"tick":     s.ticksRemaining,
		"state":    fb.StateName,
	}).Debug(d.Reason)
	return fb
}

// #endregion tick

// #region finish
// Finish waits for the final transcript when speech was recorded, then
// scores the session and builds its record. The wait ends early on abort or
// when ctx is done, and gives up after SpeechFinalizeTimeout with the best
// pace available.
func (s *Session) Finish(ctx context.Context) (record.ScoreRecord, error) {
	s.mu.Lock()
	if s.phase == PhaseAborted {
		err := s.abortErr
		s.mu.Unlock()
		return record.ScoreRecord{}, err
	}
	if s.phase == PhaseCompleted && s.result != nil {
		rec := *s.result
		s.mu.Unlock()
		return rec, nil
	}
	if s.phase != PhaseFinalizing {
		phase := s.phase
		s.mu.Unlock()
		return record.ScoreRecord{}, fmt.Errorf("finish: session is %s", phase)
	}
	wait := s.opts.SpeechEnabled && len(s.speech.Samples()) > 0 && !s.speechFinalized
	s.mu.Unlock()

	if wait {
		if err := s.waitForSpeech(ctx); err != nil {
			s.Abort(err)
			return record.ScoreRecord{}, s.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseAborted {
		return record.ScoreRecord{}, s.abortErr
	}

	report := s.engine.Evaluate(s.totals.Smiles, s.totals.HandMoves, s.totals.Looks, s.opts.EyeTrackingSupported, s.finalWPM)
	rec := s.builder.Build(record.Input{
		UserID:              s.opts.UserID,
		Mode:                string(s.opts.Mode),
		TotalSmiles:         s.totals.Smiles,
		TotalHandMoves:      s.totals.HandMoves,
		TotalLooks:          s.totals.Looks,
		EyeContactSupported: s.opts.EyeTrackingSupported,
		Report:              report,
	})
	s.result = &rec
	s.phase = PhaseCompleted
	s.logger.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"composite": rec.CompositeScore,
		"wpm":       rec.VerbalRate,
	}).Info("session completed")
	return rec, nil
}

func (s *Session) waitForSpeech(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.SpeechFinalizeTimeout)
	defer timer.Stop()

	select {
	case <-s.speechDone:
		return nil
	case <-s.aborted:
		return nil
	case <-timer.C:
		s.logger.WithField("timeout", s.cfg.SpeechFinalizeTimeout).Warn("speech finalization timed out")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report returns the scores of a completed session.
func (s *Session) Report() (scoring.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCompleted {
		return scoring.Report{}, false
	}
	return s.engine.Evaluate(s.totals.Smiles, s.totals.HandMoves, s.totals.Looks, s.opts.EyeTrackingSupported, s.finalWPM), true
}

// TrainingResult grades a completed training session. ok is false for
// presentations and unfinished sessions.
func (s *Session) TrainingResult() (TrainingResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mod, ok := s.opts.Mode.Modality()
	if !ok || s.phase != PhaseCompleted {
		return TrainingResult{}, false
	}
	var passes int
	switch mod {
	case signals.Facial:
		passes = s.totals.Smiles
	case signals.Gesture:
		passes = s.totals.HandMoves
	case signals.EyeContact:
		passes = s.totals.Looks
	}
	st := training.ResultState(mod, passes, s.finalWPM, s.cfg.Thresholds)
	return TrainingResult{
		Modality: mod,
		Passes:   passes,
		WPM:      s.finalWPM,
		State:    st.String(),
		Tip:      training.ResultTip(mod, passes, s.finalWPM, s.cfg.Thresholds),
	}, true
}

// #endregion finish

// #region abort
// Abort ends the session without a record. It reports false when the
// session had already completed or aborted. A nil reason aborts with
// ErrAborted.
func (s *Session) Abort(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return false
	}
	if reason == nil {
		s.abortErr = ErrAborted
	} else {
		s.abortErr = fmt.Errorf("%w: %w", ErrAborted, reason)
	}
	s.phase = PhaseAborted
	s.totals = Totals{}
	close(s.aborted)
	s.logger.WithError(reason).Warn("session aborted")
	return true
}

// #endregion abort

// #region helpers
func formatDisplay(ticks int) string {
	secs := ticks / 2
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
