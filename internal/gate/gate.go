package gate

import (
	"fmt"

	"github.com/presentbetter/coach-engine/internal/training"
	"github.com/presentbetter/coach-engine/internal/window"
)

// #region controller
// Controller debounces window classifications into an accepted training
// state. A candidate replaces the accepted state only after it has been the
// classification for Confirmations evaluations in a row, and a move off
// TooFew or TooMuch always lands on Good first.
type Controller struct {
	config   TransitionConfig
	history  *window.Sliding[training.State]
	current  training.State
	accepted bool
}

// NewController creates a controller with no accepted state.
func NewController(config TransitionConfig) *Controller {
	if config.Confirmations < 1 {
		config.Confirmations = 1
	}
	if config.HistorySize < config.Confirmations {
		config.HistorySize = config.Confirmations
	}
	return &Controller{
		config:  config,
		history: window.New[training.State](config.HistorySize),
	}
}

// Evaluate records a classification and decides whether the accepted state
// changes.
func (c *Controller) Evaluate(candidate training.State) Decision {
	c.history.Push(candidate)

	if !c.accepted {
		c.accepted = true
		c.current = candidate
		return Decision{
			Action:    ActionInitial,
			Candidate: candidate,
			From:      candidate,
			To:        candidate,
			Reason:    "first full window",
		}
	}

	from := c.current
	if candidate == from {
		return Decision{
			Action:    ActionHold,
			Candidate: candidate,
			From:      from,
			To:        from,
			Reason:    "candidate equals accepted state",
		}
	}

	if !c.confirmed(candidate) {
		return Decision{
			Action:    ActionHold,
			Candidate: candidate,
			From:      from,
			To:        from,
			Reason:    fmt.Sprintf("%s not confirmed by last %d classifications", candidate, c.config.Confirmations),
		}
	}

	c.current = smooth(from, candidate)
	return Decision{
		Action:    ActionTransition,
		Candidate: candidate,
		From:      from,
		To:        c.current,
		Reason:    fmt.Sprintf("%s confirmed", candidate),
	}
}

// Current returns the accepted state. ok is false before the first
// evaluation.
func (c *Controller) Current() (training.State, bool) {
	return c.current, c.accepted
}

// History returns the remembered classifications, oldest first.
func (c *Controller) History() []training.State {
	return c.history.Values()
}

// Reset forgets the accepted state and history.
func (c *Controller) Reset() {
	c.history.Reset()
	c.current = training.TooFew
	c.accepted = false
}

func (c *Controller) confirmed(candidate training.State) bool {
	recent := c.history.Last(c.config.Confirmations)
	if len(recent) < c.config.Confirmations {
		return false
	}
	for _, s := range recent {
		if s != candidate {
			return false
		}
	}
	return true
}

// smooth never jumps straight across Good.
func smooth(from, to training.State) training.State {
	if from == training.Good {
		return to
	}
	return training.Good
}

// #endregion controller
