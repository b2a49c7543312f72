package robot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gwillem/hexapod/pkg/kinematics"
)

// Actuator moves a servo to a goal position. *dynamixel.Bus satisfies it.
type Actuator interface {
	SetGoalPosition(ctx context.Context, id byte, pos int) error
}

// Logger receives diagnostic output. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

// WriteError reports a failed servo write. The leg's state already holds the
// new pose.
type WriteError struct {
	Leg   LegName
	Joint kinematics.Joint
	ID    int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s %s (servo %d): %v", e.Leg, e.Joint, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// onlyWriteErrors reports whether err consists of servo write failures only,
// meaning every leg state did reach its new pose.
func onlyWriteErrors(err error) bool {
	if err == nil {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyWriteErrors(e) {
				return false
			}
		}
		return true
	}
	var we *WriteError
	if errors.As(err, &we) {
		return true
	}
	return false
}

// Leg drives the servos of one leg from its geometric state. Every motion
// updates the state first and then writes the resulting angles. State is kept
// in the left-leg convention; a right leg mirrors the angles only when they
// are written.
type Leg struct {
	name    LegName
	state   *kinematics.State
	cal     LegCalibration
	bus     Actuator
	log     Logger
	onWrite func(LegName, kinematics.Angles)

	mount float64 // mount axis angle from forward, radians
	lift  float64 // end effector height above ground
}

// NewLeg builds a leg around an existing state.
func NewLeg(name LegName, state *kinematics.State, cal LegCalibration, bus Actuator, log Logger) *Leg {
	if log == nil {
		log = discardLogger{}
	}
	return &Leg{
		name:  name,
		state: state,
		cal:   cal,
		bus:   bus,
		log:   log,
		mount: name.mountAngle(state.Params().AngleOffset),
	}
}

func (l *Leg) Name() LegName { return l.name }
func (l *Leg) Side() Side    { return l.name.Side() }

// Angles returns the stored left-convention joint angles.
func (l *Leg) Angles() kinematics.Angles { return l.state.Angles() }

// Vars returns the stored dependent distances.
func (l *Leg) Vars() kinematics.Vars { return l.state.Vars() }

// Lift returns how far the end effector is held above the ground.
func (l *Leg) Lift() float64 { return l.lift }

// BodyHeight is the hip height above the ground, ignoring any lift.
func (l *Leg) BodyHeight() float64 {
	return l.state.Vars().Height.Value() + l.lift
}

// OutputAngles returns the angles as written to the servos: the stored
// angles, mirrored for a right leg.
func (l *Leg) OutputAngles() kinematics.Angles {
	a := l.state.Angles()
	if l.Side() == Right {
		return a.Mirror()
	}
	return a
}

// WriteAngles writes knee, hip and arm, in that order.
func (l *Leg) WriteAngles(ctx context.Context) error {
	if bad := l.state.Angles().OutOfRange(); len(bad) > 0 {
		l.log.Printf("%s: angles out of range for %v: %+v", l.name, bad, l.state.Angles())
	}

	var errs []error
	for _, j := range l.cal.Joints() {
		if err := l.WriteJoint(ctx, j); err != nil {
			errs = append(errs, err)
		}
	}
	if l.onWrite != nil {
		l.onWrite(l.name, l.OutputAngles())
	}
	return errors.Join(errs...)
}

// WriteJoint writes a single joint.
func (l *Leg) WriteJoint(ctx context.Context, j kinematics.Joint) error {
	servo := l.cal.Servo(j)
	pos := servo.Position(l.OutputAngles().Get(j))
	if err := l.bus.SetGoalPosition(ctx, byte(servo.ID), pos); err != nil {
		return &WriteError{Leg: l.name, Joint: j, ID: servo.ID, Err: err}
	}
	return nil
}

// CopyState duplicates another leg's state verbatim and writes it.
func (l *Leg) CopyState(ctx context.Context, other *Leg) error {
	l.state.CopyFrom(other.state)
	l.lift = other.lift
	return l.WriteAngles(ctx)
}

/* ---------------------------------- raise and lower ---------------------------------- */

// LiftUp raises the end effector by h.
func (l *Leg) LiftUp(ctx context.Context, h float64) error {
	height := l.state.Vars().Height.Value()
	if err := l.state.UpdateVar(kinematics.VarHeight, height-h); err != nil {
		return fmt.Errorf("%s: lift up: %w", l.name, err)
	}
	l.lift += h
	return l.WriteAngles(ctx)
}

// LowerDown moves the end effector straight down by h.
func (l *Leg) LowerDown(ctx context.Context, h float64) error {
	height := l.state.Vars().Height.Value()
	if err := l.state.UpdateVar(kinematics.VarHeight, height+h); err != nil {
		return fmt.Errorf("%s: lower down: %w", l.name, err)
	}
	l.lift = math.Max(l.lift-h, 0)
	return l.WriteAngles(ctx)
}

// FinishStep centers every joint and puts the end effector down. A lifted
// leg is first centered in the air, then lowered.
func (l *Leg) FinishStep(ctx context.Context) error {
	body, lift := l.BodyHeight(), l.lift

	l.state.SetArm(l.defaultArm())
	if err := l.state.CenterAngles(body); err != nil {
		return fmt.Errorf("%s: finish step: %w", l.name, err)
	}
	if lift > 0 {
		centered := l.state.Vars().Height.Value()
		if err := l.state.UpdateVar(kinematics.VarHeight, centered-lift); err != nil {
			return fmt.Errorf("%s: finish step: %w", l.name, err)
		}
		l.lift = lift
		if err := l.WriteAngles(ctx); err != nil {
			return err
		}
		return l.LowerDown(ctx, lift)
	}
	l.lift = 0
	return l.WriteAngles(ctx)
}

// RaiseBody lifts the body by dh (negative lowers it). The end effector stays
// where it is on the ground.
func (l *Leg) RaiseBody(ctx context.Context, dh float64) error {
	height := l.state.Vars().Height.Value()
	if err := l.state.UpdateVar(kinematics.VarHeight, height+dh); err != nil {
		return fmt.Errorf("%s: raise body: %w", l.name, err)
	}
	return l.WriteAngles(ctx)
}

/* ---------------------------------- walking ---------------------------------- */

// BodyForward is the stance half of a step: the body moves forward by step
// while the foot stays planted, which swings the foot backward around the arm
// servo.
func (l *Leg) BodyForward(ctx context.Context, step float64) error {
	if !l.cal.HasArm() {
		return l.BodyForwardRectangular(ctx, step)
	}
	r := l.state.Vars().ArmGroundToEnd.Value()
	l.state.SetArm(l.state.Angles().Arm - step/r)
	return l.WriteAngles(ctx)
}

// StepForward is the swing half of a step: with the leg lifted, the foot
// swings to step/2 ahead of its centered position and is put down.
func (l *Leg) StepForward(ctx context.Context, step float64) error {
	if !l.cal.HasArm() {
		return l.StepForwardRectangular(ctx, step)
	}
	r := l.state.Vars().ArmGroundToEnd.Value()
	l.state.SetArm(l.defaultArm() + step/2/r)
	if err := l.WriteAngles(ctx); err != nil {
		return err
	}
	return l.LowerDown(ctx, l.lift)
}

// BodyForwardRectangular moves the body forward by step with the foot
// sliding back along a straight line parallel to the forward axis.
func (l *Leg) BodyForwardRectangular(ctx context.Context, step float64) error {
	u, v := l.foot()
	if err := l.placeFoot(u, v-step); err != nil {
		return fmt.Errorf("%s: body forward: %w", l.name, err)
	}
	return l.WriteAngles(ctx)
}

// StepForwardRectangular puts the lifted foot down step/2 ahead of the point
// straight out from the arm servo, so that the feet form a rectangle.
func (l *Leg) StepForwardRectangular(ctx context.Context, step float64) error {
	reach := l.defaultReach()
	u, v := reach, step/2
	if !l.cal.HasArm() {
		u, v = l.defaultFoot()
		v += step / 2
	}
	if err := l.placeFoot(u, v); err != nil {
		return fmt.Errorf("%s: step forward: %w", l.name, err)
	}
	if err := l.WriteAngles(ctx); err != nil {
		return err
	}
	return l.LowerDown(ctx, l.lift)
}

// BodyRotate turns the body by angle (counterclockwise seen from above)
// around its center with the foot planted.
func (l *Leg) BodyRotate(ctx context.Context, angle float64) error {
	cu, cv := l.centerFoot()
	cu, cv = rotate(cu, cv, angle*l.Side().sign())
	if err := l.placeCenterFoot(cu, cv); err != nil {
		return fmt.Errorf("%s: body rotate: %w", l.name, err)
	}
	return l.WriteAngles(ctx)
}

// StepRotate puts the lifted foot down at its centered position turned by
// angle/2 ahead of the rotation.
func (l *Leg) StepRotate(ctx context.Context, angle float64) error {
	u, v := l.defaultFoot()
	pu, pv := l.pivot()
	cu, cv := rotate(u+pu, v+pv, -angle/2*l.Side().sign())
	if err := l.placeCenterFoot(cu, cv); err != nil {
		return fmt.Errorf("%s: step rotate: %w", l.name, err)
	}
	if err := l.WriteAngles(ctx); err != nil {
		return err
	}
	return l.LowerDown(ctx, l.lift)
}

/* ---------------------------------- static positions ---------------------------------- */

// SetPosition puts the leg into the joint configuration of a named pose and
// writes it.
func (l *Leg) SetPosition(ctx context.Context, pose Pose) error {
	def, _ := kinematics.Defaults()

	switch pose {
	case PoseDefault:
		l.state.Restore(def)
	case PoseCentered:
		l.state.SetArm(def.Angles.Arm)
		height := 0.0
		if !l.state.Vars().Valid() {
			height = def.Vars.Height.Value()
		}
		if err := l.state.CenterAngles(height); err != nil {
			return fmt.Errorf("%s: center: %w", l.name, err)
		}
	case PoseStanding:
		if err := l.state.SetAngles(kinematics.Angles{Knee: math.Pi / 2}); err != nil {
			return fmt.Errorf("%s: stand: %w", l.name, err)
		}
	case PoseStandingQuad, PoseFlyStandingQuad:
		if err := l.state.SetAngles(kinematics.Angles{Knee: math.Pi / 2, Arm: l.quadArm()}); err != nil {
			return fmt.Errorf("%s: stand quad: %w", l.name, err)
		}
	case PoseFlatQuad, PoseFlyStraightQuad:
		l.state.SetFlat(l.quadArm())
	case PoseQuadSetup:
		l.state.SetFlat(def.Angles.Arm)
	default:
		return fmt.Errorf("%s: %w: %v", l.name, ErrUnknownPose, pose)
	}
	l.lift = 0
	return l.WriteAngles(ctx)
}

// quadArm is the arm angle of the quadcopter layout: front legs 45° off
// forward, back legs 135°, middle legs folded back against their limit.
func (l *Leg) quadArm() float64 {
	limit := kinematics.AngleLimits[kinematics.Arm]
	var arm float64
	switch l.name.Station() {
	case Front:
		arm = l.mount - math.Pi/4
	case Back:
		arm = l.mount - 3*math.Pi/4
	default:
		arm = limit.Min
	}
	return math.Min(math.Max(arm, limit.Min), limit.Max)
}

/* ---------------------------------- planar geometry ---------------------------------- */

// The foot is tracked in the leg's own side frame: u points outward from the
// body, v points forward. The arm angle turns the foot toward the front.

func (l *Leg) defaultArm() float64 {
	def, _ := kinematics.Defaults()
	return def.Angles.Arm
}

func (l *Leg) defaultReach() float64 {
	def, _ := kinematics.Defaults()
	return def.Vars.ArmGroundToEnd.Value()
}

// foot returns the end effector position relative to the arm servo.
func (l *Leg) foot() (u, v float64) {
	return polar(l.state.Vars().ArmGroundToEnd.Value(), l.mount-l.state.Angles().Arm)
}

// defaultFoot is where the foot stands in the default pose.
func (l *Leg) defaultFoot() (u, v float64) {
	return polar(l.defaultReach(), l.mount-l.defaultArm())
}

// pivot returns the arm servo position relative to the body center.
func (l *Leg) pivot() (u, v float64) {
	return polar(l.state.Params().DistCenter, l.mount)
}

// centerFoot returns the end effector position relative to the body center.
func (l *Leg) centerFoot() (u, v float64) {
	fu, fv := l.foot()
	pu, pv := l.pivot()
	return fu + pu, fv + pv
}

func (l *Leg) placeCenterFoot(cu, cv float64) error {
	pu, pv := l.pivot()
	return l.placeFoot(cu-pu, cv-pv)
}

// placeFoot moves the end effector to (u, v) relative to the arm servo at the
// current height. A leg without an arm can only reach along its mount axis;
// the target is projected onto it.
func (l *Leg) placeFoot(u, v float64) error {
	if !l.cal.HasArm() {
		r := u*math.Sin(l.mount) + v*math.Cos(l.mount)
		return l.state.UpdateVar(kinematics.VarArmGroundToEnd, r)
	}
	r := math.Hypot(u, v)
	if err := l.state.UpdateVar(kinematics.VarArmGroundToEnd, r); err != nil {
		return err
	}
	l.state.SetArm(l.mount - math.Atan2(u, v))
	return nil
}

// polar returns the (u, v) point at distance r and angle a from forward.
func polar(r, a float64) (u, v float64) {
	return r * math.Sin(a), r * math.Cos(a)
}

// rotate turns (u, v) by angle in the frame's positive sense.
func rotate(u, v, angle float64) (float64, float64) {
	s, c := math.Sincos(angle)
	return u*c - v*s, u*s + v*c
}
