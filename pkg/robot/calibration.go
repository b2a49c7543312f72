package robot

import (
	"fmt"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
)

// ServoCalibration maps one joint to its servo.
type ServoCalibration struct {
	ID     int `json:"id" yaml:"id"`
	Offset int `json:"offset,omitempty" yaml:"offset,omitempty"` // goal position trim in servo steps
}

// Position converts an angle in radians to the goal position for this servo,
// trim included, clamped to the servo's travel.
func (c ServoCalibration) Position(rad float64) int {
	pos := dynamixel.AngleToPosition(rad) + c.Offset
	return min(max(pos, 0), dynamixel.MaxPosition)
}

// Angle converts a goal position read back from the servo into radians.
func (c ServoCalibration) Angle(pos int) float64 {
	return dynamixel.PositionToAngle(pos - c.Offset)
}

// LegCalibration holds the servos of one leg. An Arm ID of 0 means the leg
// has no arm joint.
type LegCalibration struct {
	Knee ServoCalibration `json:"knee" yaml:"knee"`
	Hip  ServoCalibration `json:"hip" yaml:"hip"`
	Arm  ServoCalibration `json:"arm,omitempty" yaml:"arm,omitempty"`
}

// HasArm reports whether the leg has an arm servo.
func (c LegCalibration) HasArm() bool {
	return c.Arm.ID != 0
}

// Servo returns the calibration of joint j.
func (c LegCalibration) Servo(j kinematics.Joint) ServoCalibration {
	switch j {
	case kinematics.Knee:
		return c.Knee
	case kinematics.Hip:
		return c.Hip
	default:
		return c.Arm
	}
}

// Joints returns the joints of the leg in write order: knee, hip, arm.
func (c LegCalibration) Joints() []kinematics.Joint {
	if c.HasArm() {
		return []kinematics.Joint{kinematics.Knee, kinematics.Hip, kinematics.Arm}
	}
	return []kinematics.Joint{kinematics.Knee, kinematics.Hip}
}

// Calibration holds the servos of all legs, keyed by leg name.
type Calibration map[LegName]LegCalibration

// DefaultCalibration returns the servo wiring of the reference robot:
// knees 11-16, hips 17-22 and arms 29-34, each block ordered
// left front/middle/back then right front/middle/back.
func DefaultCalibration() Calibration {
	cal := make(Calibration, 6)
	for i, name := range AllLegs() {
		cal[name] = LegCalibration{
			Knee: ServoCalibration{ID: 11 + i},
			Hip:  ServoCalibration{ID: 17 + i},
			Arm:  ServoCalibration{ID: 29 + i},
		}
	}
	return cal
}

// ServoIDs returns the servo IDs for all joints, leg by leg.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, 3*len(c))
	// Use AllLegs() to ensure consistent ordering
	for _, name := range AllLegs() {
		lc, ok := c[name]
		if !ok {
			continue
		}
		for _, j := range lc.Joints() {
			ids = append(ids, lc.Servo(j).ID)
		}
	}
	return ids
}

// ByID returns the leg and joint driven by a servo ID.
func (c Calibration) ByID(id int) (LegName, kinematics.Joint, bool) {
	for name, lc := range c {
		for _, j := range lc.Joints() {
			if lc.Servo(j).ID == id {
				return name, j, true
			}
		}
	}
	return "", 0, false
}

// Validate checks that every leg is present and no servo ID is used twice.
func (c Calibration) Validate() error {
	seen := make(map[int]string)
	for _, name := range AllLegs() {
		lc, ok := c[name]
		if !ok {
			return fmt.Errorf("calibration: missing leg %s", name)
		}
		for _, j := range lc.Joints() {
			id := lc.Servo(j).ID
			if id <= 0 || id > int(dynamixel.MaxID) {
				return fmt.Errorf("calibration: %s %s has invalid id %d", name, j, id)
			}
			joint := fmt.Sprintf("%s %s", name, j)
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("calibration: id %d used by %s and %s", id, prev, joint)
			}
			seen[id] = joint
		}
	}
	return nil
}
