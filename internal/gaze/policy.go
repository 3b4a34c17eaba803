package gaze

import "math"

// #region types
// Eye is one tracked eye: Euler rotation in radians and world position in
// metres relative to the device at the origin.
type Eye struct {
	Pitch    float64    `json:"pitch" yaml:"pitch"`
	Yaw      float64    `json:"yaw" yaml:"yaw"`
	Position [3]float64 `json:"position" yaml:"position"`
}

// EyePose is a face-anchor update carrying both eyes.
type EyePose struct {
	Left  Eye `json:"left" yaml:"left"`
	Right Eye `json:"right" yaml:"right"`
}

// #endregion types

// #region policy
// Policy holds the empirically tuned attention tolerances. Distances are in
// centimetres, tolerances are multipliers of OptimumDistanceCm.
type Policy struct {
	OptimumDistanceCm float64
	PitchTolerance    float64 // looking down
	YawTolerance      float64 // looking left or right
}

// DefaultPolicy returns the calibration shipped with the app.
func DefaultPolicy() Policy {
	return Policy{
		OptimumDistanceCm: 75,
		PitchTolerance:    3.0,
		YawTolerance:      4.0,
	}
}

// HoldsAttention reports whether the pose counts as looking at the screen.
// Closer faces scale the angles down, so the same eye rotation is tolerated
// more when the viewer sits near the device.
func (p Policy) HoldsAttention(pose EyePose) bool {
	rotX := degrees((pose.Left.Pitch + pose.Right.Pitch) / 2)
	rotY := degrees((pose.Left.Yaw + pose.Right.Yaw) / 2)
	d := pose.Left.distance()

	if rotX*d*100 < -(p.PitchTolerance * p.OptimumDistanceCm) {
		return false
	}
	if math.Abs(rotY)*d*100 > p.YawTolerance*p.OptimumDistanceCm {
		return false
	}
	return true
}

// #endregion policy

// #region helpers
func (e Eye) distance() float64 {
	x, y, z := e.Position[0], e.Position[1], e.Position[2]
	return math.Sqrt(x*x + y*y + z*z)
}

func degrees(rad float64) float64 {
	return rad / math.Pi * 180
}

// #endregion helpers
