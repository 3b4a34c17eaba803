package gate

import "github.com/presentbetter/coach-engine/internal/training"

// #region action
// Action enumerates controller outcomes.
type Action string

const (
	ActionInitial    Action = "initial"    // first classification, accepted as-is
	ActionTransition Action = "transition" // confirmed move to a new state
	ActionHold       Action = "hold"       // candidate not (yet) confirmed
)

// #endregion action

// #region transition-config
// TransitionConfig holds the debounce parameters.
type TransitionConfig struct {
	HistorySize   int // classifications remembered
	Confirmations int // trailing history entries that must agree with the candidate
}

// DefaultTransitionConfig returns the debounce the app shipped with.
func DefaultTransitionConfig() TransitionConfig {
	return TransitionConfig{
		HistorySize:   10,
		Confirmations: 2,
	}
}

// #endregion transition-config

// #region decision
// Decision is the output of one controller evaluation.
type Decision struct {
	Action    Action
	Candidate training.State // raw window classification
	From      training.State
	To        training.State // accepted state after this evaluation
	Reason    string
}

// Changed reports whether a tip should be shown for this decision.
func (d Decision) Changed() bool {
	return d.Action == ActionInitial || d.Action == ActionTransition
}

// #endregion decision
