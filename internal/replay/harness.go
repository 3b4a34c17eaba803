package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/presentbetter/coach-engine/internal/gaze"
	"github.com/presentbetter/coach-engine/internal/record"
	"github.com/presentbetter/coach-engine/internal/session"
	"github.com/presentbetter/coach-engine/internal/signals"
)

// #region types
// FaceObservation is one emotion classifier result.
type FaceObservation struct {
	Label    signals.EmotionLabel
	Detected bool
}

// PoseObservation is one pose detector result.
type PoseObservation struct {
	Joints   signals.JointMap
	Detected bool
}

// Step holds every observation that arrived before one main tick.
type Step struct {
	Faces []FaceObservation
	Poses []PoseObservation
	Gaze  []*gaze.EyePose
	Words *int
}

// Script is a complete synchronous session trace.
type Script struct {
	Steps       []Step
	SpeechFinal []signals.TranscriptSegment // nil leaves the recognizer unfinalized
	AbortAfter  *int                        // main ticks before aborting; 0 aborts in pre-roll
	AbortReason error
	Timestamp   int64 // unix seconds; 0 uses the wall clock
}

// Result captures the outcome of replaying one script.
type Result struct {
	SessionID string
	Ticks     []session.TickResult
	Feedback  []session.Feedback
	Totals    session.Totals
	Record    *record.ScoreRecord // nil when aborted
	Training  *session.TrainingResult
	Aborted   bool
	AbortErr  error
}

// Summary provides aggregate stats from a replay.
type Summary struct {
	Ticks     int
	Tips      int
	Smiles    int
	HandMoves int
	Looks     int
	Composite int
	Aborted   bool
}

// #endregion types

// #region replay
// Replay drives a fresh session through the script without timers:
// pre-roll to completion, one AdvanceTick per step (extra steps are ignored,
// missing ones are empty), then Finish.
func Replay(ctx context.Context, cfg session.Config, opts session.Options, script Script, logger logrus.FieldLogger) (Result, error) {
	s, err := session.New(cfg, opts, logger)
	if err != nil {
		return Result{}, fmt.Errorf("replay: %w", err)
	}
	if script.Timestamp != 0 {
		ts := time.Unix(script.Timestamp, 0).UTC()
		s.SetClock(record.NewBuilder(func() time.Time { return ts }))
	}
	res := Result{SessionID: s.ID()}

	abortAt := -1
	if script.AbortAfter != nil {
		abortAt = *script.AbortAfter
	}

	if abortAt == 0 {
		return aborted(s, res, script.AbortReason), nil
	}
	for {
		pr, err := s.AdvancePreroll()
		if err != nil {
			return Result{}, fmt.Errorf("replay preroll: %w", err)
		}
		if pr.Started {
			break
		}
	}

	total := s.TicksRemaining()
	for i := 0; i < total; i++ {
		if i < len(script.Steps) {
			apply(s, script.Steps[i])
		}
		tr, err := s.AdvanceTick()
		if err != nil {
			return Result{}, fmt.Errorf("replay tick %d: %w", i+1, err)
		}
		res.Ticks = append(res.Ticks, tr)
		if tr.Feedback != nil {
			res.Feedback = append(res.Feedback, *tr.Feedback)
		}
		if abortAt == i+1 {
			return aborted(s, res, script.AbortReason), nil
		}
	}

	res.Totals = s.Totals()
	if script.SpeechFinal != nil {
		s.FinalizeSpeech(script.SpeechFinal)
	}
	rec, err := s.Finish(ctx)
	if err != nil {
		if errors.Is(err, session.ErrAborted) {
			res.Aborted = true
			res.AbortErr = err
			return res, nil
		}
		return Result{}, fmt.Errorf("replay finish: %w", err)
	}
	res.Record = &rec
	if tr, ok := s.TrainingResult(); ok {
		res.Training = &tr
	}
	return res, nil
}

func apply(s *session.Session, step Step) {
	for _, f := range step.Faces {
		s.ObserveFace(f.Label, f.Detected)
	}
	for _, p := range step.Poses {
		s.ObservePose(p.Joints, p.Detected)
	}
	for _, g := range step.Gaze {
		s.ObserveGaze(g)
	}
	if step.Words != nil {
		s.ObserveTranscript(*step.Words)
	}
}

func aborted(s *session.Session, res Result, reason error) Result {
	if reason == nil {
		reason = session.ErrSensorFailure
	}
	s.Abort(reason)
	res.Aborted = true
	res.AbortErr = s.Err()
	res.Totals = s.Totals()
	return res
}

// Summarize computes aggregate stats from a replay result.
func Summarize(r Result) Summary {
	s := Summary{
		Ticks:     len(r.Ticks),
		Tips:      len(r.Feedback),
		Smiles:    r.Totals.Smiles,
		HandMoves: r.Totals.HandMoves,
		Looks:     r.Totals.Looks,
		Aborted:   r.Aborted,
	}
	if r.Record != nil {
		s.Composite = r.Record.CompositeScore
	}
	return s
}

// #endregion replay

// #region fixture-run
// RunFixture converts a fixture and replays it on top of base.
func RunFixture(ctx context.Context, f *Fixture, base session.Config, logger logrus.FieldLogger) (Result, error) {
	opts, err := f.ToOptions()
	if err != nil {
		return Result{}, fmt.Errorf("fixture options: %w", err)
	}
	steps, err := f.ToSteps()
	if err != nil {
		return Result{}, fmt.Errorf("fixture steps: %w", err)
	}
	script := Script{
		Steps:       steps,
		SpeechFinal: f.SpeechFinal,
		Timestamp:   f.Timestamp,
	}
	if f.Abort != nil {
		after := f.Abort.AfterTicks
		script.AbortAfter = &after
		script.AbortReason = f.Abort.AbortReason()
	}
	return Replay(ctx, f.Config.ToConfig(base), opts, script, logger)
}

// Check compares a result with the fixture expectations and returns one
// message per mismatch.
func (f *Fixture) Check(r Result) []string {
	var diffs []string
	exp := f.Expected
	if exp.Aborted != r.Aborted {
		diffs = append(diffs, fmt.Sprintf("aborted: expected %v, got %v", exp.Aborted, r.Aborted))
	}
	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			diffs = append(diffs, fmt.Sprintf("%s: expected %d, got %d", name, *want, got))
		}
	}
	checkInt("smiles", exp.Smiles, r.Totals.Smiles)
	checkInt("hand_moves", exp.HandMoves, r.Totals.HandMoves)
	checkInt("looks", exp.Looks, r.Totals.Looks)

	if exp.Composite != nil || exp.VerbalRating != "" {
		if r.Record == nil {
			diffs = append(diffs, "expected a score record, got none")
		} else {
			checkInt("composite", exp.Composite, r.Record.CompositeScore)
			if exp.VerbalRating != "" && exp.VerbalRating != r.Record.VerbalRating {
				diffs = append(diffs, fmt.Sprintf("verbal_rating: expected %q, got %q", exp.VerbalRating, r.Record.VerbalRating))
			}
		}
	}

	if len(exp.Tips) > 0 {
		if len(exp.Tips) != len(r.Feedback) {
			diffs = append(diffs, fmt.Sprintf("tips: expected %d, got %d", len(exp.Tips), len(r.Feedback)))
		}
		for i := 0; i < len(exp.Tips) && i < len(r.Feedback); i++ {
			want, got := exp.Tips[i], r.Feedback[i]
			if want.TicksRemaining != got.TicksRemaining || want.Tip != got.Tip {
				diffs = append(diffs, fmt.Sprintf("tip %d: expected %q at %d, got %q at %d",
					i, want.Tip, want.TicksRemaining, got.Tip, got.TicksRemaining))
			}
		}
	}
	return diffs
}

// #endregion fixture-run
