// Package robot drives a six-legged walker: per-leg controllers, tripods of
// three legs commanded together, and the pose and gait sequencer on top.
package robot

import "math"

// LegName identifies a leg of the robot.
type LegName string

// Leg names, left side first.
const (
	LeftFront   LegName = "left_front"
	LeftMiddle  LegName = "left_middle"
	LeftBack    LegName = "left_back"
	RightFront  LegName = "right_front"
	RightMiddle LegName = "right_middle"
	RightBack   LegName = "right_back"
)

// AllLegs returns all leg names in order.
func AllLegs() []LegName {
	return []LegName{
		LeftFront,
		LeftMiddle,
		LeftBack,
		RightFront,
		RightMiddle,
		RightBack,
	}
}

// Side is the side of the body a leg is mounted on.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// sign is +1 for the left side and -1 for the right.
func (s Side) sign() float64 {
	if s == Right {
		return -1
	}
	return 1
}

// Station is the position of a leg along its side.
type Station int

const (
	Front Station = iota
	Middle
	Back
)

// Side returns the side the leg is mounted on.
func (n LegName) Side() Side {
	switch n {
	case RightFront, RightMiddle, RightBack:
		return Right
	}
	return Left
}

// Station returns whether the leg is a front, middle or back leg.
func (n LegName) Station() Station {
	switch n {
	case LeftFront, RightFront:
		return Front
	case LeftMiddle, RightMiddle:
		return Middle
	}
	return Back
}

// mountAngle is the angle in radians between the forward axis and the leg's
// mount axis, measured on the leg's own side. Front legs sit offset from
// forward, middle legs point straight out, back legs mirror the front.
func (n LegName) mountAngle(offset float64) float64 {
	switch n.Station() {
	case Front:
		return offset
	case Middle:
		return math.Pi / 2
	}
	return math.Pi - offset
}
