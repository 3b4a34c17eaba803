package scoring

// #region curve
// Curve is the asymmetric piecewise-linear scoring curve. Counts below Low
// rise linearly to 60, [Low, High] rises from 80 to 100, and counts above
// High fall back by 20 points every FallSpan.
type Curve struct {
	Low      int
	High     int
	FallSpan int
}

// DefaultCurve returns the curve tuned for a 30-tick session.
func DefaultCurve() Curve {
	return Curve{Low: 15, High: 22, FallSpan: 8}
}

// #endregion curve

// #region category-score
// CategoryScore is one modality's score and the feedback shown with it.
type CategoryScore struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// #endregion category-score

// #region verbal-rating
// Verbal ratings for a words-per-minute value.
const (
	RatingNoData = "No data"
	RatingSlow   = "Slow"
	RatingNormal = "Normal"
	RatingFast   = "Fast"
)

// #endregion verbal-rating

// #region report
// Report is the full result of scoring one session.
type Report struct {
	Facial         CategoryScore  `json:"facial"`
	Gesture        CategoryScore  `json:"gesture"`
	EyeContact     *CategoryScore `json:"eyeContact,omitempty"` // nil when unsupported
	Composite      int            `json:"composite"`
	WordsPerMinute float64        `json:"wordsPerMinute"`
	VerbalRating   string         `json:"verbalRating"`
}

// #endregion report
