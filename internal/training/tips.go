package training

import (
	"math"

	"github.com/presentbetter/coach-engine/internal/signals"
)

// #region live-tips
var liveTips = map[signals.Modality][3]string{
	signals.Facial:     {"Smile more.", "Great! Keep going.", "Smile less."},
	signals.Gesture:    {"Move your arms more.", "Great! Keep going.", "Move your arms less."},
	signals.EyeContact: {"Look at camera more.", "Great! Keep going.", "Look at camera less."},
	signals.Speech:     {"Speak faster.", "Great! Keep going.", "Speak slower."},
}

// LiveTip returns the short coaching line shown while training.
func LiveTip(m signals.Modality, s State) string {
	tips, ok := liveTips[m]
	if !ok || s < TooFew || s > TooMuch {
		return ""
	}
	return tips[s]
}

// #endregion live-tips

// #region result-tips
var resultTips = map[signals.Modality][3]string{
	signals.Facial: {
		"Keep Going!\nYou need to smile more frequently.",
		"Good Job!\nExcellent facial expressions!",
		"Good Job!\nNext time, try to smile a little bit less.",
	},
	signals.Gesture: {
		"Keep Going!\nYou need to move your hands more frequently.",
		"Good Job!\nExcellent gestures!",
		"Good Job!\nNext time, try to move your hands a little bit less.",
	},
	signals.EyeContact: {
		"Keep Going!\nYou need to look at the camera more frequently.",
		"Good Job!\nExcellent eye contact!",
		"Good Job!\nNext time, try not to look at the camera the entire time.",
	},
	signals.Speech: {
		"It's better to speak a bit faster next time.",
		"Good Job!\nExcellent speech pace!",
		"It's better to speak a bit slower next time.",
	},
}

// Result bands for a finished 40-tick training session.
const (
	resultPassLow  = 20
	resultPassHigh = 32
)

// ResultState grades a finished training session. Non-verbal modalities are
// graded on passes (ticks with a hit), speech on the final pace in whole
// words per minute.
func ResultState(m signals.Modality, passes int, wpm float64, t Thresholds) State {
	if m == signals.Speech {
		return t.ClassifyPace(math.Trunc(wpm))
	}
	switch {
	case passes < resultPassLow:
		return TooFew
	case passes <= resultPassHigh:
		return Good
	default:
		return TooMuch
	}
}

// ResultTip returns the summary text shown after a training session.
func ResultTip(m signals.Modality, passes int, wpm float64, t Thresholds) string {
	tips, ok := resultTips[m]
	if !ok {
		return ""
	}
	return tips[ResultState(m, passes, wpm, t)]
}

// #endregion result-tips
