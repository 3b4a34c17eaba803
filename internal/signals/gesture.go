package signals

import (
	"math"

	"github.com/presentbetter/coach-engine/internal/window"
)

// #region arms
type arm struct {
	wrist, elbow, shoulder Joint
	angles                 *window.Sliding[float64]
}

// #endregion arms

// #region collector
// GestureCollector tracks the elbow angle of each arm over a short window
// and reports a hand move when either arm's angle spread is large enough.
type GestureCollector struct {
	config CollectorConfig
	arms   [2]*arm
}

// NewGestureCollector creates a collector with empty arm windows.
func NewGestureCollector(config CollectorConfig) *GestureCollector {
	return &GestureCollector{
		config: config,
		arms: [2]*arm{
			{wrist: LeftWrist, elbow: LeftElbow, shoulder: LeftShoulder, angles: window.New[float64](config.ArmWindow)},
			{wrist: RightWrist, elbow: RightElbow, shoulder: RightShoulder, angles: window.New[float64](config.ArmWindow)},
		},
	}
}

// Observe folds one pose detection into the arm windows. detected=false
// means the detector found no body in the frame; nothing is recorded and no
// signal is produced.
func (g *GestureCollector) Observe(tick int, joints JointMap, detected bool) (Signal, bool) {
	if !detected {
		return Signal{}, false
	}

	var spread float64
	for _, a := range g.arms {
		angle := g.armAngle(a, joints)
		if math.IsNaN(angle) {
			last, ok := a.angles.Newest()
			if !g.config.CarryForward || !ok {
				continue
			}
			angle = last
		}
		a.angles.Push(angle)
		if s := window.Spread(a.angles.Values()); s > spread {
			spread = s
		}
	}

	return Signal{
		Modality: Gesture,
		Tick:     tick,
		Hit:      spread > g.config.MoveThresholdDeg,
		Value:    spread,
	}, true
}

// Reset clears both arm windows.
func (g *GestureCollector) Reset() {
	for _, a := range g.arms {
		a.angles.Reset()
	}
}

// armAngle returns the elbow angle in degrees, or NaN when a joint is
// missing or below the confidence cut.
func (g *GestureCollector) armAngle(a *arm, joints JointMap) float64 {
	wrist, ok1 := g.joint(joints, a.wrist)
	elbow, ok2 := g.joint(joints, a.elbow)
	shoulder, ok3 := g.joint(joints, a.shoulder)
	if !ok1 || !ok2 || !ok3 {
		return math.NaN()
	}
	return ElbowAngle(wrist, elbow, shoulder)
}

func (g *GestureCollector) joint(joints JointMap, name Joint) (JointPoint, bool) {
	p, ok := joints[name]
	if !ok || p.Confidence <= g.config.JointConfidence {
		return JointPoint{}, false
	}
	return p, true
}

// #endregion collector

// #region geometry
// ElbowAngle computes the interior angle at the elbow by the law of cosines.
// a is wrist–shoulder, b wrist–elbow, c elbow–shoulder. Returns NaN when two
// joints coincide.
func ElbowAngle(wrist, elbow, shoulder JointPoint) float64 {
	a := distance(wrist, shoulder)
	b := distance(wrist, elbow)
	c := distance(elbow, shoulder)
	if b == 0 || c == 0 {
		return math.NaN()
	}
	cos := (b*b + c*c - a*a) / (2 * b * c)
	// rounding can push collinear arms just past ±1
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) / math.Pi * 180
}

func distance(p, q JointPoint) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// #endregion geometry
