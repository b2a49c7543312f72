package kinematics

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

var (
	// ErrUnreachable is returned when a requested pose has no real solution.
	// The state is left as it was.
	ErrUnreachable = errors.New("pose out of reach")
	// ErrNoPose is returned when a variable is updated on a cleared state.
	ErrNoPose = errors.New("leg has no meaningful pose")
)

// State is the geometric model of one leg. Every exported mutator either
// commits a fully consistent set of variables and angles or returns an error
// without touching the state.
type State struct {
	params *Params
	vars   Vars
	angles Angles
}

// Snapshot is a full copy of a leg's variables and angles.
type Snapshot struct {
	Vars   Vars
	Angles Angles
}

var defaults struct {
	once sync.Once
	pose atomic.Pointer[Snapshot]
	err  error
}

// Defaults returns the process-wide default pose computed by the first call
// to NewState. ok is false until then.
func Defaults() (snap Snapshot, ok bool) {
	p := defaults.pose.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// NewState returns a leg state with no meaningful pose. The first call also
// computes the default pose at the given height, which every later leg
// shares.
func NewState(params *Params, height float64) (*State, error) {
	defaults.once.Do(func() {
		s := &State{params: params}
		if err := s.CenterAngles(height); err != nil {
			defaults.err = fmt.Errorf("compute default pose: %w", err)
			return
		}
		snap := s.Snapshot()
		defaults.pose.Store(&snap)
	})
	if defaults.err != nil {
		return nil, defaults.err
	}
	return &State{params: params}, nil
}

func (s *State) Params() *Params { return s.params }
func (s *State) Vars() Vars      { return s.vars }
func (s *State) Angles() Angles  { return s.angles }

// Snapshot copies the current variables and angles.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Vars: s.vars, Angles: s.angles}
}

// CopyFrom duplicates the pose of another leg verbatim.
func (s *State) CopyFrom(other *State) {
	s.vars = other.vars
	s.angles = other.angles
}

// Restore replaces the pose with a snapshot.
func (s *State) Restore(snap Snapshot) {
	s.vars = snap.Vars
	s.angles = snap.Angles
}

// Clear marks every variable invalid. Used between structural changes where
// the leg has no meaningful ground pose.
func (s *State) Clear() {
	s.vars.clear()
}

// UpdateVar sets v and recomputes what depends on it, then the hip and knee
// angles.
//
//	height            -> hip_to_end, ef_center
//	hip_to_end        -> arm_ground_to_end, ef_center (the end effector moved, not the body)
//	arm_ground_to_end -> hip_to_end, ef_center
//	ef_center         -> nothing
func (s *State) UpdateVar(v Var, value float64) error {
	if !s.vars.Valid() {
		return ErrNoPose
	}
	next := s.vars
	next.pair(v).set(value)
	return s.commit(next, v)
}

// UpdateVarSquare is UpdateVar given the square of the new value.
func (s *State) UpdateVarSquare(v Var, square float64) error {
	if square < 0 {
		return fmt.Errorf("%w: negative square for %s", ErrUnreachable, v)
	}
	if !s.vars.Valid() {
		return ErrNoPose
	}
	next := s.vars
	next.pair(v).setSquare(square)
	return s.commit(next, v)
}

func (s *State) commit(next Vars, changed Var) error {
	p := s.params
	switch changed {
	case VarHeight, VarArmGroundToEnd:
		ground := next.ArmGroundToEnd.value - p.Coxa
		next.HipToEnd.setSquare(ground*ground + next.Height.square)
		next.EFCenter.set(p.efCenter(next.ArmGroundToEnd.value, s.angles.Arm))
	case VarHipToEnd:
		ground := next.HipToEnd.square - next.Height.square
		if ground < 0 {
			return fmt.Errorf("%w: hip_to_end %v shorter than height %v", ErrUnreachable, next.HipToEnd.value, next.Height.value)
		}
		next.ArmGroundToEnd.set(math.Sqrt(ground) + p.Coxa)
		next.EFCenter.set(p.efCenter(next.ArmGroundToEnd.value, s.angles.Arm))
	}

	knee, hip, err := p.solveAngles(next)
	if err != nil {
		return err
	}
	s.vars = next
	s.angles.Knee = knee
	s.angles.Hip = hip
	return nil
}

// UpdateAngles recomputes knee and hip from the current variables.
func (s *State) UpdateAngles() error {
	knee, hip, err := s.params.solveAngles(s.vars)
	if err != nil {
		return err
	}
	s.angles.Knee = knee
	s.angles.Hip = hip
	return nil
}

// solveAngles applies the cosine rule to the femur/tibia triangle:
//
//	knee = π − acos((femur² + tibia² − hipToEnd²) / (2·femur·tibia))
//	hip  = π/2 − acos((femur² + hipToEnd² − tibia²) / (2·femur·hipToEnd)) − acos(height/hipToEnd)
func (p *Params) solveAngles(vs Vars) (knee, hip float64, err error) {
	d, dsq, h := vs.HipToEnd.value, vs.HipToEnd.square, vs.Height.value
	if d <= 0 || h < 0 {
		return 0, 0, fmt.Errorf("%w: hip_to_end %v, height %v", ErrUnreachable, d, h)
	}

	kneeCos := (p.FemurSq + p.TibiaSq - dsq) / (2 * p.Femur * p.Tibia)
	hipCos := (p.FemurSq + dsq - p.TibiaSq) / (2 * p.Femur * d)
	heightCos := h / d
	if !inUnit(kneeCos) || !inUnit(hipCos) || !inUnit(heightCos) {
		return 0, 0, fmt.Errorf("%w: hip_to_end %v, height %v", ErrUnreachable, d, h)
	}

	knee = math.Pi - math.Acos(kneeCos)
	hip = math.Pi/2 - math.Acos(hipCos) - math.Acos(heightCos)
	return knee, hip, nil
}

// SetAngles sets all joints and recomputes the variables from them.
func (s *State) SetAngles(a Angles) error {
	vs, err := s.params.varsFromAngles(a)
	if err != nil {
		return err
	}
	s.angles = a
	s.vars = vs
	return nil
}

// SetArm turns the arm joint. Only ef_center depends on it.
func (s *State) SetArm(arm float64) {
	s.angles.Arm = arm
	if s.vars.Valid() {
		s.vars.EFCenter.set(s.params.efCenter(s.vars.ArmGroundToEnd.value, arm))
	}
}

// SetFlat puts knee and hip at zero and clears the variables; a flat leg
// does not touch the ground.
func (s *State) SetFlat(arm float64) {
	s.angles = Angles{Knee: 0, Hip: 0, Arm: arm}
	s.Clear()
}

// ComputeVars recomputes every variable from the current angles in
// dependency order: height, hip_to_end, arm_ground_to_end, ef_center.
func (s *State) ComputeVars() error {
	vs, err := s.params.varsFromAngles(s.angles)
	if err != nil {
		return err
	}
	s.vars = vs
	return nil
}

func (p *Params) varsFromAngles(a Angles) (Vars, error) {
	var vs Vars

	// A negative hip lifts the knee above the hip joint.
	kneeHeight := p.Tibia * math.Cos(math.Pi/2+a.Hip-(math.Pi-a.Knee))
	vs.Height.set(kneeHeight + p.Femur*math.Sin(a.Hip))
	vs.HipToEnd.setSquare(p.FemurSq + p.TibiaSq - 2*p.Femur*p.Tibia*math.Cos(math.Pi-a.Knee))
	vs.ArmGroundToEnd.set(math.Sqrt(math.Max(vs.HipToEnd.square-vs.Height.square, 0)) + p.Coxa)
	vs.EFCenter.set(p.efCenter(vs.ArmGroundToEnd.value, a.Arm))

	if vs.Height.value < 0 {
		return Vars{}, fmt.Errorf("%w: end effector above hip (height %v)", ErrUnreachable, vs.Height.value)
	}
	return vs, nil
}

// CenterAngles puts the leg in the canonical stance at the given height,
// clamped to the configured bounds. A height of 0 keeps the current height.
// The hip goes to its lower limit and the knee follows from the tibia
// reaching the ground.
func (s *State) CenterAngles(height float64) error {
	p := s.params
	if height == 0 {
		height = s.vars.Height.value
	}
	height = p.ClampHeight(height)

	hip := AngleLimits[Hip].Min
	kneeHeight := height + p.Femur*math.Sin(math.Abs(hip))
	ratio := kneeHeight / p.Tibia
	if !inUnit(ratio) {
		return fmt.Errorf("%w: tibia cannot reach ground from knee height %v", ErrUnreachable, kneeHeight)
	}

	kneeAngle := math.Pi/2 - math.Abs(hip) - math.Acos(ratio)
	// The tibia leans outward (obtuse to the ground): take the other
	// solution.
	if kneeAngle < 0 {
		kneeAngle = math.Pi/2 - math.Abs(hip) + math.Acos(ratio)
	}

	a := Angles{Knee: math.Pi - kneeAngle, Hip: hip, Arm: s.angles.Arm}

	var vs Vars
	vs.Height.set(height)
	vs.HipToEnd.setSquare(p.FemurSq + p.TibiaSq - 2*p.Femur*p.Tibia*math.Cos(math.Pi-a.Knee))
	vs.ArmGroundToEnd.set(math.Sqrt(math.Max(vs.HipToEnd.square-vs.Height.square, 0)) + p.Coxa)
	vs.EFCenter.set(p.efCenter(vs.ArmGroundToEnd.value, a.Arm))

	s.angles = a
	s.vars = vs
	return nil
}

// efCenter is the distance from the robot center to the end effector: the
// arm servo sits DistCenter out along the mount axis and the foot lies
// armGround away at the arm angle.
func (p *Params) efCenter(armGround, arm float64) float64 {
	sq := armGround*armGround + p.DistCenterSq + 2*armGround*p.DistCenter*math.Cos(arm)
	return math.Sqrt(math.Max(sq, 0))
}

func inUnit(x float64) bool {
	return !math.IsNaN(x) && x >= -1 && x <= 1
}
