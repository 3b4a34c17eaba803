package signals

// #region facial
// FacialSignal maps one classifier result to a "smiled" signal. When no face
// was classified it reports false and the tick keeps whatever it already saw.
func FacialSignal(tick int, label EmotionLabel, detected bool) (Signal, bool) {
	if !detected {
		return Signal{}, false
	}
	smiled := label == Happy
	var v float64
	if smiled {
		v = 1
	}
	return Signal{Modality: Facial, Tick: tick, Hit: smiled, Value: v}, true
}

// #endregion facial
