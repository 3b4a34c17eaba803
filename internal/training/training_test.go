package training

import (
	"strings"
	"testing"

	"github.com/presentbetter/coach-engine/internal/signals"
)

func TestClassifyHits(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		hits int
		want State
	}{
		{0, TooFew}, {2, TooFew}, {3, Good}, {8, Good}, {9, TooMuch}, {10, TooMuch},
	}
	for _, tc := range cases {
		if got := th.ClassifyHits(tc.hits); got != tc.want {
			t.Errorf("ClassifyHits(%d) = %s, want %s", tc.hits, got, tc.want)
		}
	}
}

func TestClassifyPace(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		wpm  float64
		want State
	}{
		{0, TooFew}, {139.9, TooFew}, {140, Good}, {150, Good}, {160, Good}, {160.5, TooMuch},
	}
	for _, tc := range cases {
		if got := th.ClassifyPace(tc.wpm); got != tc.want {
			t.Errorf("ClassifyPace(%v) = %s, want %s", tc.wpm, got, tc.want)
		}
	}
}

func TestStateStringRoundTrip(t *testing.T) {
	for _, s := range []State{TooFew, Good, TooMuch} {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Fatalf("ParseState(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseState("meh"); ok {
		t.Fatal("unknown state should not parse")
	}
}

func TestLiveTip(t *testing.T) {
	cases := []struct {
		m    signals.Modality
		s    State
		want string
	}{
		{signals.Facial, TooFew, "Smile more."},
		{signals.Gesture, TooMuch, "Move your arms less."},
		{signals.EyeContact, Good, "Great! Keep going."},
		{signals.Speech, TooFew, "Speak faster."},
		{signals.Speech, TooMuch, "Speak slower."},
	}
	for _, tc := range cases {
		if got := LiveTip(tc.m, tc.s); got != tc.want {
			t.Errorf("LiveTip(%s, %s) = %q, want %q", tc.m, tc.s, got, tc.want)
		}
	}
	if got := LiveTip("posture", Good); got != "" {
		t.Fatalf("unknown modality should have no tip, got %q", got)
	}
}

func TestResultTipBands(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		m      signals.Modality
		passes int
		wpm    float64
		want   State
	}{
		{signals.Facial, 19, 0, TooFew},
		{signals.Facial, 20, 0, Good},
		{signals.Gesture, 32, 0, Good},
		{signals.EyeContact, 33, 0, TooMuch},
		{signals.Speech, 40, 120, TooFew},
		{signals.Speech, 0, 150, Good},
		{signals.Speech, 0, 175, TooMuch},
		{signals.Speech, 0, 139.9, TooFew},
		{signals.Speech, 0, 160.5, Good},
		{signals.Speech, 0, 161, TooMuch},
	}
	for _, tc := range cases {
		if got := ResultState(tc.m, tc.passes, tc.wpm, th); got != tc.want {
			t.Errorf("ResultState(%s, %d, %v) = %s, want %s", tc.m, tc.passes, tc.wpm, got, tc.want)
		}
	}
}

func TestResultTipText(t *testing.T) {
	th := DefaultThresholds()
	if got := ResultTip(signals.Facial, 25, 0, th); !strings.Contains(got, "Excellent facial expressions") {
		t.Fatalf("unexpected facial tip %q", got)
	}
	if got := ResultTip(signals.Speech, 0, 100, th); !strings.Contains(got, "faster") {
		t.Fatalf("unexpected speech tip %q", got)
	}
}
