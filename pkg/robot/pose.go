package robot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownPose        = errors.New("unknown pose")
	ErrInvalidInitialPose = errors.New("invalid initial pose")
	ErrNotWalkable        = errors.New("pose cannot walk")
	ErrBadCoefficient     = errors.New("movement coefficient is not a number")
)

// Pose names a whole-robot posture.
type Pose int

const (
	PoseDefault Pose = iota
	PoseCentered
	PoseStanding
	PoseStandingQuad
	PoseFlatQuad
	PoseQuadSetup
	PoseFlyStandingQuad
	PoseFlyStraightQuad
)

var poseNames = map[Pose]string{
	PoseDefault:         "default",
	PoseCentered:        "centered",
	PoseStanding:        "standing",
	PoseStandingQuad:    "standing_quad",
	PoseFlatQuad:        "flat_quad",
	PoseQuadSetup:       "quad_setup",
	PoseFlyStandingQuad: "fly_standing_quad",
	PoseFlyStraightQuad: "fly_straight_quad",
}

func (p Pose) String() string {
	if s, ok := poseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Pose(%d)", int(p))
}

// ParsePose accepts the names printed by Pose.String.
func ParsePose(s string) (Pose, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range poseNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPose, s)
}

// Poses lists every pose in declaration order.
func Poses() []Pose {
	return []Pose{
		PoseDefault, PoseCentered, PoseStanding, PoseStandingQuad,
		PoseFlatQuad, PoseQuadSetup, PoseFlyStandingQuad, PoseFlyStraightQuad,
	}
}

// flat reports whether the legs lie flat with the body resting on the ground.
func (p Pose) flat() bool {
	switch p {
	case PoseFlatQuad, PoseQuadSetup, PoseFlyStraightQuad:
		return true
	}
	return false
}

// walkable reports whether every end effector is on the ground.
func (p Pose) walkable() bool {
	switch p {
	case PoseDefault, PoseCentered, PoseStanding:
		return true
	}
	return false
}

// GaitKind selects the motion pattern of MakeMovement.
type GaitKind int

const (
	GaitHexapod GaitKind = iota
	GaitRectangular
	GaitRotate
)

func (g GaitKind) String() string {
	switch g {
	case GaitHexapod:
		return "hexapod"
	case GaitRectangular:
		return "rectangular"
	case GaitRotate:
		return "rotate"
	}
	return fmt.Sprintf("GaitKind(%d)", int(g))
}
