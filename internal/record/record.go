package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/presentbetter/coach-engine/internal/scoring"
)

// #region score-record
// ScoreRecord is the immutable result of one completed session. JSON field
// names are the stored document schema.
type ScoreRecord struct {
	ID                  string  `json:"id"`
	UserID              string  `json:"uid"`
	Mode                string  `json:"mode"`
	FacialScore         int     `json:"facialScore"`
	GestureScore        int     `json:"gestureScore"`
	EyeContactScore     *int    `json:"eyeContactScore"` // nil when eye tracking is unsupported
	EyeContactSupported bool    `json:"eyeContactSupported"`
	VerbalRate          float64 `json:"verbalRate"`
	VerbalRating        string  `json:"verbalRating"`
	CompositeScore      int     `json:"compositeScore"`
	TotalSmiles         int     `json:"totalSmiles"`
	TotalHandMoves      int     `json:"totalHandMoves"`
	TotalLooks          int     `json:"totalLooks"`
	WordsPerMinute      float64 `json:"wordsPerMinute"`
	TotalScore          string  `json:"totalScore"` // composite rendered as "N%"
	Timestamp           int64   `json:"timestamp"`  // unix seconds
}

// Time returns the record timestamp.
func (r ScoreRecord) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// #endregion score-record

// #region builder
// Input carries everything a record is built from.
type Input struct {
	UserID              string
	Mode                string
	TotalSmiles         int
	TotalHandMoves      int
	TotalLooks          int
	EyeContactSupported bool
	Report              scoring.Report
}

// Builder stamps records with an ID and a timestamp.
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a builder. A nil clock uses time.Now.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build assembles a ScoreRecord from session totals and their scores.
func (b *Builder) Build(in Input) ScoreRecord {
	rec := ScoreRecord{
		ID:                  uuid.New().String(),
		UserID:              in.UserID,
		Mode:                in.Mode,
		FacialScore:         in.Report.Facial.Score,
		GestureScore:        in.Report.Gesture.Score,
		EyeContactSupported: in.EyeContactSupported,
		VerbalRate:          in.Report.WordsPerMinute,
		VerbalRating:        in.Report.VerbalRating,
		CompositeScore:      in.Report.Composite,
		TotalSmiles:         in.TotalSmiles,
		TotalHandMoves:      in.TotalHandMoves,
		TotalLooks:          in.TotalLooks,
		WordsPerMinute:      in.Report.WordsPerMinute,
		TotalScore:          fmt.Sprintf("%d%%", in.Report.Composite),
		Timestamp:           b.now().Unix(),
	}
	if in.EyeContactSupported && in.Report.EyeContact != nil {
		score := in.Report.EyeContact.Score
		rec.EyeContactScore = &score
	}
	return rec
}

// #endregion builder
