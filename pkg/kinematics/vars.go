package kinematics

import "math"

// Pair is a distance stored together with its square. Both views are always
// set together.
type Pair struct {
	value  float64
	square float64
}

func (p Pair) Value() float64  { return p.value }
func (p Pair) Square() float64 { return p.square }

func (p *Pair) set(v float64) {
	p.value = v
	p.square = v * v
}

func (p *Pair) setSquare(sq float64) {
	p.square = sq
	p.value = math.Sqrt(sq)
}

// Var names one of the dependent distances of a leg.
type Var int

const (
	VarHeight         Var = iota // end effector height below the hip
	VarHipToEnd                  // hip joint to end effector
	VarArmGroundToEnd            // arm servo ground projection to end effector
	VarEFCenter                  // end effector to robot center
)

func (v Var) String() string {
	switch v {
	case VarHeight:
		return "height"
	case VarHipToEnd:
		return "hip_to_end"
	case VarArmGroundToEnd:
		return "arm_ground_to_end"
	case VarEFCenter:
		return "ef_center"
	}
	return "var(?)"
}

// Vars are the dependent distances of a leg.
type Vars struct {
	Height         Pair
	HipToEnd       Pair
	ArmGroundToEnd Pair
	EFCenter       Pair
}

func (vs *Vars) pair(v Var) *Pair {
	switch v {
	case VarHeight:
		return &vs.Height
	case VarHipToEnd:
		return &vs.HipToEnd
	case VarArmGroundToEnd:
		return &vs.ArmGroundToEnd
	default:
		return &vs.EFCenter
	}
}

// Get returns the pair for v.
func (vs Vars) Get(v Var) Pair {
	return *vs.pair(v)
}

// Valid reports whether every distance holds a meaningful (non-negative)
// value.
func (vs Vars) Valid() bool {
	for _, v := range []Var{VarHeight, VarHipToEnd, VarArmGroundToEnd, VarEFCenter} {
		if p := vs.Get(v); p.value < 0 || math.IsNaN(p.value) {
			return false
		}
	}
	return true
}

func (vs *Vars) clear() {
	for _, v := range []Var{VarHeight, VarHipToEnd, VarArmGroundToEnd, VarEFCenter} {
		*vs.pair(v) = Pair{value: -1, square: -1}
	}
}
