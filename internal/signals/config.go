package signals

// #region config
// CollectorConfig holds tuning knobs for the per-modality collectors.
type CollectorConfig struct {
	JointConfidence  float64 // joints at or below this confidence are ignored
	ArmWindow        int     // arm angles kept per arm
	MoveThresholdDeg float64 // spread above this counts as a hand move
	CarryForward     bool    // repeat an arm's last angle when its joints are missing

	PaceWindowTicks   int     // ticks of transcript history per pace estimate
	PaceWindowSeconds float64 // seconds the pace window is assumed to span
	ResetFallbackWPM  float64 // reported when the word count goes backwards
}

// DefaultCollectorConfig returns the values the app was tuned with.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		JointConfidence:   0.4,
		ArmWindow:         15,
		MoveThresholdDeg:  15.0,
		CarryForward:      true,
		PaceWindowTicks:   10,
		PaceWindowSeconds: 4.8,
		ResetFallbackWPM:  150,
	}
}

// #endregion config
