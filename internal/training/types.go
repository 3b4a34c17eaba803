package training

// #region state
// State is the coaching verdict for one window of observations.
type State int

const (
	TooFew State = iota
	Good
	TooMuch
)

func (s State) String() string {
	switch s {
	case TooFew:
		return "too_few"
	case Good:
		return "good"
	case TooMuch:
		return "too_much"
	default:
		return "unknown"
	}
}

// ParseState is the inverse of String.
func ParseState(s string) (State, bool) {
	for _, st := range []State{TooFew, Good, TooMuch} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// #endregion state

// #region thresholds
// Thresholds bound the Good band for hit counts and speech pace. Values
// inside [Low, High] are Good.
type Thresholds struct {
	HitWindow   int // boolean samples per classification
	HitLow      int
	HitHigh     int
	PaceLowWPM  float64
	PaceHighWPM float64
}

// DefaultThresholds returns the bands the app shipped with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HitWindow:   10,
		HitLow:      3,
		HitHigh:     8,
		PaceLowWPM:  140,
		PaceHighWPM: 160,
	}
}

// #endregion thresholds
