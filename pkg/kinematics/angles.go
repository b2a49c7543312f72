package kinematics

import "math"

// Joint identifies one actuated joint of a leg.
type Joint int

const (
	Knee Joint = iota
	Hip
	Arm
)

func (j Joint) String() string {
	switch j {
	case Knee:
		return "knee"
	case Hip:
		return "hip"
	case Arm:
		return "arm"
	}
	return "joint(?)"
}

// Angles are joint angles in radians for a left leg.
type Angles struct {
	Knee float64
	Hip  float64
	Arm  float64
}

// Get returns the angle of joint j.
func (a Angles) Get(j Joint) float64 {
	switch j {
	case Knee:
		return a.Knee
	case Hip:
		return a.Hip
	default:
		return a.Arm
	}
}

// Mirror returns the angles a right leg writes for this left-leg pose.
func (a Angles) Mirror() Angles {
	return Angles{Knee: -a.Knee, Hip: -a.Hip, Arm: -a.Arm}
}

// Limit is an allowed angle range in radians.
type Limit struct {
	Min, Max float64
}

// AngleLimits hold the left-leg travel of each joint.
var AngleLimits = map[Joint]Limit{
	Knee: {Min: Radians(0), Max: Radians(150)},
	Hip:  {Min: Radians(-(90 - 20)), Max: Radians(90 - 20)},
	Arm:  {Min: Radians(-(90 - 20)), Max: Radians(90 - 20)},
}

// OutOfRange lists the joints whose angle lies outside AngleLimits.
func (a Angles) OutOfRange() []Joint {
	var out []Joint
	for _, j := range []Joint{Knee, Hip, Arm} {
		l := AngleLimits[j]
		v := a.Get(j)
		if math.IsNaN(v) || v < l.Min-1e-9 || v > l.Max+1e-9 {
			out = append(out, j)
		}
	}
	return out
}
