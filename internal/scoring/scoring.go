package scoring

// #region feedback
type feedbackSet struct {
	neutral string // score < 30 on the rising edge
	low     string
	good    string
	high    string
}

var (
	facialFeedback = feedbackSet{
		neutral: "Your face was neutral. Your need to smile from time to time to show you are interested in your presentation.",
		low:     "Try smiling a bit more frequently.",
		good:    "Excellent facial expressions!",
		high:    "It's great to smile when presenting, but try to smile a little less.",
	}
	gestureFeedback = feedbackSet{
		neutral: "You rarely moved your arms. Try moving your hands to add emphasis to your presentation.",
		low:     "Try moving your hands more frequently.",
		good:    "Excellent gestures!",
		high:    "It's great to move your hands when presenting, but try to move them a bit less.",
	}
	eyeContactFeedback = feedbackSet{
		neutral: "You rarely made eye contact. Look at the camera 50-75% of the time you are presenting.",
		low:     "Try moving making eye contact by looking at the camera more frequently.",
		good:    "Excellent eye contact!",
		high:    "It's great to make eye contact, but try not to look at the camera the entire time.",
	}
)

// #endregion feedback

// #region engine
// Engine scores session totals. It never fails: any count maps to a score
// in [0, 100].
type Engine struct {
	curve Curve
}

// NewEngine creates an engine using the given curve.
func NewEngine(curve Curve) *Engine {
	if curve.Low <= 0 {
		curve.Low = DefaultCurve().Low
	}
	if curve.High <= curve.Low {
		curve.High = curve.Low + 1
	}
	if curve.FallSpan <= 0 {
		curve.FallSpan = DefaultCurve().FallSpan
	}
	return &Engine{curve: curve}
}

// Score evaluates the curve for a count, truncated toward zero.
func (e *Engine) Score(total int) int {
	c := e.curve
	var score float64
	switch {
	case total < c.Low:
		score = float64(total) / float64(c.Low) * 60
	case total <= c.High:
		score = 80 + 20*float64(total-c.Low)/float64(c.High-c.Low)
	default:
		score = 80 - 20*float64(total-c.High)/float64(c.FallSpan)
	}
	return clamp(int(score))
}

// Facial scores the number of ticks with a smile.
func (e *Engine) Facial(totalSmiles int) CategoryScore {
	return e.category(totalSmiles, facialFeedback)
}

// Gesture scores the number of ticks with a hand move.
func (e *Engine) Gesture(totalHandMoves int) CategoryScore {
	return e.category(totalHandMoves, gestureFeedback)
}

// EyeContact scores the number of ticks looking at the camera.
func (e *Engine) EyeContact(totalLooks int) CategoryScore {
	return e.category(totalLooks, eyeContactFeedback)
}

func (e *Engine) category(total int, fb feedbackSet) CategoryScore {
	score := e.Score(total)
	var text string
	switch {
	case total < e.curve.Low && score < 30:
		text = fb.neutral
	case total < e.curve.Low:
		text = fb.low
	case total <= e.curve.High:
		text = fb.good
	default:
		text = fb.high
	}
	return CategoryScore{Score: score, Feedback: text}
}

// Evaluate scores all categories and the speech pace.
func (e *Engine) Evaluate(smiles, handMoves, looks int, eyeSupported bool, wpm float64) Report {
	r := Report{
		Facial:         e.Facial(smiles),
		Gesture:        e.Gesture(handMoves),
		WordsPerMinute: wpm,
		VerbalRating:   VerbalRating(wpm),
	}
	eyeScore := 0
	if eyeSupported {
		ec := e.EyeContact(looks)
		r.EyeContact = &ec
		eyeScore = ec.Score
	}
	r.Composite = Composite(r.Facial.Score, r.Gesture.Score, eyeScore, eyeSupported)
	return r
}

// #endregion engine

// #region composite
// Composite is the integer mean of the non-verbal scores. Devices without
// eye tracking get a full eye contact score.
func Composite(facial, gesture, eyeContact int, eyeSupported bool) int {
	if !eyeSupported {
		eyeContact = 100
	}
	return (facial + gesture + eyeContact) / 3
}

// VerbalRating buckets a words-per-minute value.
func VerbalRating(wpm float64) string {
	switch {
	case wpm == 0:
		return RatingNoData
	case wpm < 140:
		return RatingSlow
	case wpm <= 160:
		return RatingNormal
	default:
		return RatingFast
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// #endregion composite
