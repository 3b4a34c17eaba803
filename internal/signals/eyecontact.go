package signals

import "github.com/presentbetter/coach-engine/internal/gaze"

// #region collector
// EyeContactCollector counts attention votes between ticks. Face tracking
// updates arrive faster than the scoring tick, so each tick takes the
// majority of the votes cast since the previous one.
type EyeContactCollector struct {
	policy gaze.Policy
	focus  int
	lost   int
}

// NewEyeContactCollector creates a collector using the given policy.
func NewEyeContactCollector(policy gaze.Policy) *EyeContactCollector {
	return &EyeContactCollector{policy: policy}
}

// Observe records one face-anchor update. A nil pose (no face anchor) casts
// no vote.
func (e *EyeContactCollector) Observe(pose *gaze.EyePose) {
	if pose == nil {
		return
	}
	if e.policy.HoldsAttention(*pose) {
		e.focus++
	} else {
		e.lost++
	}
}

// Tick closes the current half-second span: looked is true when focus votes
// outnumber lost-focus votes. Counters reset afterwards.
func (e *EyeContactCollector) Tick(tick int) Signal {
	total := e.focus + e.lost
	var ratio float64
	if total > 0 {
		ratio = float64(e.focus) / float64(total)
	}
	sig := Signal{
		Modality: EyeContact,
		Tick:     tick,
		Hit:      e.focus > e.lost,
		Value:    ratio,
	}
	e.focus, e.lost = 0, 0
	return sig
}

// #endregion collector
