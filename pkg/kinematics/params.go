// Package kinematics keeps the geometric state of one leg: link lengths,
// joint angles and the distances derived from them, solved with the law of
// cosines for a two-link femur/tibia leg. All computations use the left-leg
// convention.
package kinematics

import (
	"errors"
	"fmt"
	"math"
)

// BodyParams are the raw robot dimensions, supplied once at construction.
type BodyParams struct {
	DistCenter      float64 `json:"dist_center" yaml:"dist_center"`               // robot center to arm servo
	Coxa            float64 `json:"coxa" yaml:"coxa"`                             // arm servo to hip servo
	Femur           float64 `json:"femur" yaml:"femur"`                           // hip servo to knee servo
	Tibia           float64 `json:"tibia" yaml:"tibia"`                           // knee servo to end effector
	HipKneeMaxHDist float64 `json:"hip_knee_max_hdist" yaml:"hip_knee_max_hdist"` // max horizontal hip-knee distance for safe knee torque
	KneeToMotorDist float64 `json:"knee_to_motor_dist" yaml:"knee_to_motor_dist"`
	AngleOffset     float64 `json:"angle_offset" yaml:"angle_offset"` // degrees between forward axis and front leg mount
	Height          float64 `json:"height" yaml:"height"`             // default hip height above ground
	MinHeight       float64 `json:"min_height" yaml:"min_height"`
	MaxHeight       float64 `json:"max_height" yaml:"max_height"`
}

// DefaultBodyParams returns the dimensions of the reference robot, in cm.
func DefaultBodyParams() BodyParams {
	return BodyParams{
		DistCenter:      10.95,
		Coxa:            2.65,
		Femur:           17.5,
		Tibia:           30.0,
		HipKneeMaxHDist: 12.0,
		KneeToMotorDist: 2.25,
		AngleOffset:     45,
		Height:          10,
		MinHeight:       4,
		MaxHeight:       13,
	}
}

// Params are the per-robot constants derived from BodyParams. They are
// computed once and shared read-only by every leg.
type Params struct {
	DistCenter      float64
	Coxa            float64
	Femur           float64
	Tibia           float64
	HipKneeMaxHDist float64
	KneeToMotorDist float64

	DistCenterSq      float64
	CoxaSq            float64
	FemurSq           float64
	TibiaSq           float64
	HipKneeMaxHDistSq float64
	KneeToMotorDistSq float64

	AngleOffset float64 // radians
	MinHeight   float64
	MaxHeight   float64
}

var ErrInvalidParams = errors.New("invalid body parameters")

// NewParams validates the raw dimensions and derives their squares.
func NewParams(bp BodyParams) (*Params, error) {
	if bp.Femur <= 0 || bp.Tibia <= 0 {
		return nil, fmt.Errorf("%w: femur and tibia must be positive", ErrInvalidParams)
	}
	if bp.DistCenter < 0 || bp.Coxa < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidParams)
	}
	if bp.MinHeight <= 0 || bp.MaxHeight < bp.MinHeight {
		return nil, fmt.Errorf("%w: height bounds [%v, %v]", ErrInvalidParams, bp.MinHeight, bp.MaxHeight)
	}

	return &Params{
		DistCenter:        bp.DistCenter,
		Coxa:              bp.Coxa,
		Femur:             bp.Femur,
		Tibia:             bp.Tibia,
		HipKneeMaxHDist:   bp.HipKneeMaxHDist,
		KneeToMotorDist:   bp.KneeToMotorDist,
		DistCenterSq:      bp.DistCenter * bp.DistCenter,
		CoxaSq:            bp.Coxa * bp.Coxa,
		FemurSq:           bp.Femur * bp.Femur,
		TibiaSq:           bp.Tibia * bp.Tibia,
		HipKneeMaxHDistSq: bp.HipKneeMaxHDist * bp.HipKneeMaxHDist,
		KneeToMotorDistSq: bp.KneeToMotorDist * bp.KneeToMotorDist,
		AngleOffset:       Radians(bp.AngleOffset),
		MinHeight:         bp.MinHeight,
		MaxHeight:         bp.MaxHeight,
	}, nil
}

// ClampHeight limits h to the configured height bounds.
func (p *Params) ClampHeight(h float64) float64 {
	return math.Min(math.Max(h, p.MinHeight), p.MaxHeight)
}

// StandingHeight is the hip height with the knee at 90° and the femur level.
func (p *Params) StandingHeight() float64 {
	return p.Tibia
}

func Radians(deg float64) float64 {
	return deg / 180 * math.Pi
}

func Degrees(rad float64) float64 {
	return rad / math.Pi * 180
}
