package scoring

import (
	"strings"
	"testing"
)

func TestScoreKnownValues(t *testing.T) {
	e := NewEngine(DefaultCurve())
	cases := []struct {
		total int
		want  int
	}{
		{0, 0},
		{7, 28},
		{10, 40},
		{14, 56},
		{15, 80},
		{18, 88},
		{22, 100},
		{25, 72},
		{30, 60},
	}
	for _, tc := range cases {
		if got := e.Score(tc.total); got != tc.want {
			t.Errorf("Score(%d) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestScoreBounded(t *testing.T) {
	e := NewEngine(DefaultCurve())
	for n := 0; n <= 200; n++ {
		s := e.Score(n)
		if s < 0 || s > 100 {
			t.Fatalf("Score(%d) = %d out of range", n, s)
		}
	}
}

func TestScoreMonotonicBands(t *testing.T) {
	e := NewEngine(DefaultCurve())
	for n := 1; n < 15; n++ {
		if e.Score(n) < e.Score(n-1) {
			t.Fatalf("score should not fall below 15: %d", n)
		}
	}
	for n := 16; n <= 22; n++ {
		if e.Score(n) < e.Score(n-1) {
			t.Fatalf("score should not fall in the good band: %d", n)
		}
	}
	for n := 23; n < 60; n++ {
		if e.Score(n) > e.Score(n-1) {
			t.Fatalf("score should not rise above 22: %d", n)
		}
	}
}

func TestScoreKinkAtLow(t *testing.T) {
	e := NewEngine(DefaultCurve())
	if e.Score(14) >= 60 {
		t.Fatalf("left of the kink should stay below 60, got %d", e.Score(14))
	}
	if e.Score(15) != 80 {
		t.Fatalf("kink should jump to 80, got %d", e.Score(15))
	}
}

func TestScoreNegativeClamped(t *testing.T) {
	e := NewEngine(DefaultCurve())
	if got := e.Score(-5); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestCategoryFeedback(t *testing.T) {
	e := NewEngine(DefaultCurve())
	cases := []struct {
		name  string
		score CategoryScore
		want  string
	}{
		{"facial neutral", e.Facial(3), "neutral"},
		{"facial low", e.Facial(10), "Try smiling"},
		{"facial good", e.Facial(18), "Excellent facial"},
		{"facial high", e.Facial(25), "smile a little less"},
		{"gesture neutral", e.Gesture(0), "rarely moved"},
		{"gesture good", e.Gesture(15), "Excellent gestures"},
		{"eye low", e.EyeContact(8), "more frequently"},
		{"eye high", e.EyeContact(30), "entire time"},
	}
	for _, tc := range cases {
		if !strings.Contains(tc.score.Feedback, tc.want) {
			t.Errorf("%s: feedback %q missing %q", tc.name, tc.score.Feedback, tc.want)
		}
	}
}

func TestComposite(t *testing.T) {
	if got := Composite(88, 40, 72, true); got != 66 {
		t.Fatalf("expected 66, got %d", got)
	}
	if got := Composite(59, 59, 0, false); got != 72 {
		t.Fatalf("expected 72 with unsupported eye tracking, got %d", got)
	}
	// 100 + 100 + 99 = 299 / 3 truncates to 99
	if got := Composite(100, 100, 99, true); got != 99 {
		t.Fatalf("expected truncation to 99, got %d", got)
	}
}

func TestVerbalRating(t *testing.T) {
	cases := []struct {
		wpm  float64
		want string
	}{
		{0, RatingNoData},
		{90, RatingSlow},
		{139.9, RatingSlow},
		{140, RatingNormal},
		{150, RatingNormal},
		{160, RatingNormal},
		{161, RatingFast},
	}
	for _, tc := range cases {
		if got := VerbalRating(tc.wpm); got != tc.want {
			t.Errorf("VerbalRating(%v) = %q, want %q", tc.wpm, got, tc.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	e := NewEngine(DefaultCurve())
	r := e.Evaluate(18, 10, 25, true, 150)

	if r.Facial.Score != 88 || r.Gesture.Score != 40 || r.EyeContact.Score != 72 {
		t.Fatalf("unexpected scores %+v", r)
	}
	if r.Composite != 66 {
		t.Fatalf("expected composite 66, got %d", r.Composite)
	}
	if r.VerbalRating != RatingNormal {
		t.Fatalf("expected Normal, got %s", r.VerbalRating)
	}
}

func TestEvaluateEyeUnsupported(t *testing.T) {
	e := NewEngine(DefaultCurve())
	r := e.Evaluate(18, 10, 25, false, 0)
	if r.EyeContact != nil {
		t.Fatal("eye contact should be omitted when unsupported")
	}
	// (88 + 40 + 100) / 3 = 76
	if r.Composite != 76 {
		t.Fatalf("expected 76, got %d", r.Composite)
	}
	if r.VerbalRating != RatingNoData {
		t.Fatalf("expected No data, got %s", r.VerbalRating)
	}
}
