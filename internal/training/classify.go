package training

// #region classify
// ClassifyHits maps the number of hits in a full window to a State.
func (t Thresholds) ClassifyHits(hits int) State {
	switch {
	case hits < t.HitLow:
		return TooFew
	case hits <= t.HitHigh:
		return Good
	default:
		return TooMuch
	}
}

// ClassifyPace maps a words-per-minute estimate to a State.
func (t Thresholds) ClassifyPace(wpm float64) State {
	switch {
	case wpm < t.PaceLowWPM:
		return TooFew
	case wpm <= t.PaceHighWPM:
		return Good
	default:
		return TooMuch
	}
}

// #endregion classify
