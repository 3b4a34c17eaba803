package gate

import (
	"testing"

	"github.com/presentbetter/coach-engine/internal/training"
)

func feed(c *Controller, states ...training.State) []Decision {
	out := make([]Decision, 0, len(states))
	for _, s := range states {
		out = append(out, c.Evaluate(s))
	}
	return out
}

func countChanged(ds []Decision) int {
	n := 0
	for _, d := range ds {
		if d.Changed() {
			n++
		}
	}
	return n
}

func TestControllerFirstClassificationAccepted(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	d := c.Evaluate(training.TooMuch)

	if d.Action != ActionInitial {
		t.Fatalf("expected initial, got %s: %s", d.Action, d.Reason)
	}
	if d.To != training.TooMuch {
		t.Fatalf("expected TooMuch, got %s", d.To)
	}
	if cur, ok := c.Current(); !ok || cur != training.TooMuch {
		t.Fatalf("unexpected current %s %v", cur, ok)
	}
}

func TestControllerSingleCandidateHeld(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	ds := feed(c, training.Good, training.TooFew, training.Good)

	if countChanged(ds) != 1 {
		t.Fatalf("non-consecutive candidate should not transition: %+v", ds)
	}
	if ds[1].Action != ActionHold {
		t.Fatalf("expected hold, got %s", ds[1].Action)
	}
}

func TestControllerTwoConsecutiveTransitionOnce(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	ds := feed(c, training.Good, training.TooFew, training.TooFew, training.TooFew)

	if ds[2].Action != ActionTransition {
		t.Fatalf("expected transition on second TooFew, got %s", ds[2].Action)
	}
	if ds[2].From != training.Good || ds[2].To != training.TooFew {
		t.Fatalf("unexpected move %s -> %s", ds[2].From, ds[2].To)
	}
	if ds[3].Action != ActionHold {
		t.Fatalf("third TooFew should hold, got %s", ds[3].Action)
	}
	if countChanged(ds) != 2 {
		t.Fatalf("expected initial plus one transition, got %d", countChanged(ds))
	}
}

func TestControllerSmoothingThroughGood(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	ds := feed(c, training.TooFew, training.TooMuch, training.TooMuch)

	if ds[2].Action != ActionTransition {
		t.Fatalf("expected transition, got %s", ds[2].Action)
	}
	if ds[2].To != training.Good {
		t.Fatalf("TooFew -> TooMuch must land on Good, got %s", ds[2].To)
	}

	// still TooMuch twice in a row: now Good -> TooMuch
	d := c.Evaluate(training.TooMuch)
	if d.Action != ActionTransition || d.To != training.TooMuch {
		t.Fatalf("expected Good -> TooMuch, got %s %s", d.Action, d.To)
	}
}

func TestControllerTooMuchBackToGood(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	ds := feed(c, training.TooMuch, training.TooFew, training.TooFew)
	if ds[2].To != training.Good {
		t.Fatalf("TooMuch -> TooFew must land on Good, got %s", ds[2].To)
	}
}

func TestControllerHistoryBounded(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	for i := 0; i < 25; i++ {
		c.Evaluate(training.Good)
	}
	if n := len(c.History()); n != 10 {
		t.Fatalf("expected 10 history entries, got %d", n)
	}
}

func TestControllerReset(t *testing.T) {
	c := NewController(DefaultTransitionConfig())
	feed(c, training.Good, training.TooFew)
	c.Reset()

	if _, ok := c.Current(); ok {
		t.Fatal("reset controller should have no accepted state")
	}
	if d := c.Evaluate(training.TooMuch); d.Action != ActionInitial {
		t.Fatalf("expected initial after reset, got %s", d.Action)
	}
}

func TestControllerConfirmationsClamped(t *testing.T) {
	c := NewController(TransitionConfig{HistorySize: 0, Confirmations: 0})
	ds := feed(c, training.Good, training.TooFew)
	if ds[1].Action != ActionTransition {
		t.Fatalf("single confirmation should transition immediately, got %s", ds[1].Action)
	}
}
