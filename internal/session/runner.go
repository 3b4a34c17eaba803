package session

import (
	"context"
	"fmt"
	"time"

	"github.com/presentbetter/coach-engine/internal/record"
)

// #region listener
// Listener receives session progress from a Runner. Calls come from the
// runner goroutine, one at a time.
type Listener interface {
	OnPreroll(PrerollResult)
	OnTick(TickResult)
	OnFeedback(Feedback)
	OnComplete(record.ScoreRecord)
	OnAbort(reason error)
}

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnPreroll(PrerollResult)       {}
func (NopListener) OnTick(TickResult)             {}
func (NopListener) OnFeedback(Feedback)           {}
func (NopListener) OnComplete(record.ScoreRecord) {}
func (NopListener) OnAbort(error)                 {}

// #endregion listener

// #region runner
// Runner drives a Session with real timers: the pre-roll ticker first, then
// the main countdown ticker, then Finish.
type Runner struct {
	session  *Session
	listener Listener
}

// NewRunner creates a runner. A nil listener is replaced by NopListener.
func NewRunner(s *Session, l Listener) *Runner {
	if l == nil {
		l = NopListener{}
	}
	return &Runner{session: s, listener: l}
}

// Run blocks until the session completes or aborts. Cancelling ctx aborts
// the session.
func (r *Runner) Run(ctx context.Context) (record.ScoreRecord, error) {
	cfg := r.session.Config()

	if err := r.loop(ctx, cfg.PrerollInterval, r.prerollStep); err != nil {
		return record.ScoreRecord{}, r.abort(err)
	}
	if err := r.loop(ctx, cfg.TickInterval, r.tickStep); err != nil {
		return record.ScoreRecord{}, r.abort(err)
	}

	rec, err := r.session.Finish(ctx)
	if err != nil {
		return record.ScoreRecord{}, r.abort(err)
	}
	r.listener.OnComplete(rec)
	return rec, nil
}

// loop calls step on every tick until it reports done.
func (r *Runner) loop(ctx context.Context, interval time.Duration, step func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.session.Aborted():
			return r.session.Err()
		case <-ticker.C:
			done, err := step()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (r *Runner) prerollStep() (bool, error) {
	res, err := r.session.AdvancePreroll()
	if err != nil {
		return false, err
	}
	r.listener.OnPreroll(res)
	return res.Started, nil
}

func (r *Runner) tickStep() (bool, error) {
	res, err := r.session.AdvanceTick()
	if err != nil {
		return false, err
	}
	r.listener.OnTick(res)
	if res.Feedback != nil {
		r.listener.OnFeedback(*res.Feedback)
	}
	return res.Done, nil
}

// abort marks the session aborted (if it is not already) and notifies the
// listener with the session's abort reason.
func (r *Runner) abort(cause error) error {
	r.session.Abort(cause)
	reason := r.session.Err()
	if reason == nil {
		reason = fmt.Errorf("%w: %w", ErrAborted, cause)
	}
	r.listener.OnAbort(reason)
	return reason
}

// #endregion runner
