package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gwillem/hexapod/pkg/kinematics"
)

const (
	DefaultLiftHeight  = 5.0
	DefaultMaxStep     = 11.0
	DefaultMaxRotation = math.Pi / 3
)

// MotionInput tells the gait loop whether to keep going. It is polled once
// per cycle and may block.
type MotionInput interface {
	ContinueMovement(kind GaitKind) bool
}

// MotionInputFunc adapts a function to MotionInput.
type MotionInputFunc func(GaitKind) bool

func (f MotionInputFunc) ContinueMovement(kind GaitKind) bool { return f(kind) }

// Options configure a Robot.
type Options struct {
	Body        kinematics.BodyParams
	Height      float64 // initial body height, 0 = body params default
	Calibration Calibration
	Bus         Actuator
	Input       MotionInput // nil stops every gait after one cycle
	Logger      Logger

	// OnWrite is called after every leg write with the angles as sent to
	// the servos.
	OnWrite func(LegName, kinematics.Angles)

	LiftHeight  float64       // 0 = DefaultLiftHeight
	Settle      time.Duration // wait between lifting and moving the body
	MaxStep     float64       // 0 = DefaultMaxStep
	MaxRotation float64       // 0 = DefaultMaxRotation
	InitialPose Pose
}

// Robot sequences the six legs as two alternating tripods.
type Robot struct {
	mu      sync.Mutex
	tripods [2]*Tripod
	legs    map[LegName]*Leg
	pose    Pose
	log     Logger
	input   MotionInput

	lift        float64
	settle      time.Duration
	maxStep     float64
	maxRotation float64

	sleep func(context.Context, time.Duration) error
}

// New builds the legs, lays them flat and then moves to the initial pose,
// which must be one of default, standing, standing_quad or flat_quad.
func New(ctx context.Context, opts Options) (*Robot, error) {
	switch opts.InitialPose {
	case PoseDefault, PoseStanding, PoseStandingQuad, PoseFlatQuad:
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitialPose, opts.InitialPose)
	}
	if opts.Bus == nil {
		return nil, errors.New("robot: no actuator bus")
	}
	cal := opts.Calibration
	if cal == nil {
		cal = DefaultCalibration()
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	params, err := kinematics.NewParams(opts.Body)
	if err != nil {
		return nil, err
	}
	height := opts.Height
	if height == 0 {
		height = opts.Body.Height
	}

	r := &Robot{
		legs:        make(map[LegName]*Leg, 6),
		pose:        PoseFlatQuad,
		log:         opts.Logger,
		input:       opts.Input,
		lift:        orDefault(opts.LiftHeight, DefaultLiftHeight),
		settle:      opts.Settle,
		maxStep:     orDefault(opts.MaxStep, DefaultMaxStep),
		maxRotation: orDefault(opts.MaxRotation, DefaultMaxRotation),
		sleep:       sleepContext,
	}
	if r.log == nil {
		r.log = discardLogger{}
	}
	if r.input == nil {
		r.input = MotionInputFunc(func(GaitKind) bool { return false })
	}

	for _, name := range AllLegs() {
		state, err := kinematics.NewState(params, height)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		l := NewLeg(name, state, cal[name], opts.Bus, r.log)
		l.onWrite = opts.OnWrite
		r.legs[name] = l
	}
	r.tripods = [2]*Tripod{
		NewTripod(r.legs[LeftFront], r.legs[RightMiddle], r.legs[LeftBack]),
		NewTripod(r.legs[RightFront], r.legs[LeftMiddle], r.legs[RightBack]),
	}

	// The servos hold an unknown posture until the first write; treat the
	// legs as flat so standing does not try to raise the body first.
	switch opts.InitialPose {
	case PoseDefault:
		err = r.Default(ctx)
	case PoseStanding:
		err = r.Stand(ctx)
	case PoseStandingQuad:
		err = r.StandQuad(ctx)
	case PoseFlatQuad:
		err = errors.Join(r.StandQuad(ctx), r.FlattenLegs(ctx, PoseFlatQuad))
	}
	if err != nil {
		r.log.Printf("robot: initial pose %v: %v", opts.InitialPose, err)
	}
	return r, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pose returns the last fully reached pose.
func (r *Robot) Pose() Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pose
}

// Tripods returns the two tripods: left front, right middle, left back
// first.
func (r *Robot) Tripods() [2]*Tripod { return r.tripods }

// Leg returns the named leg.
func (r *Robot) Leg(name LegName) *Leg { return r.legs[name] }

// BodyHeight returns the current body height, 0 while the legs are flat.
func (r *Robot) BodyHeight() float64 { return r.tripods[0].BodyHeight() }

// OutputAngles returns every leg's written angles.
func (r *Robot) OutputAngles() map[LegName]kinematics.Angles {
	out := r.tripods[0].OutputAngles()
	for k, v := range r.tripods[1].OutputAngles() {
		out[k] = v
	}
	return out
}

/* ---------------------------------- poses ---------------------------------- */

// transition runs fn and records pose once it completes. A failed servo
// write still leaves every leg state in the new pose; any other failure
// keeps the old pose.
func (r *Robot) transition(pose Pose, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := fn()
	if onlyWriteErrors(err) {
		r.pose = pose
	}
	return err
}

func (r *Robot) both(fn func(*Tripod) error) error {
	return errors.Join(fn(r.tripods[0]), fn(r.tripods[1]))
}

// Default restores every leg to the shared default pose.
func (r *Robot) Default(ctx context.Context) error {
	return r.transition(PoseDefault, func() error {
		return r.both(func(t *Tripod) error { return t.SetPosition(ctx, PoseDefault) })
	})
}

// Center centers every joint at the current body height.
func (r *Robot) Center(ctx context.Context) error {
	return r.transition(PoseCentered, func() error {
		return r.both(func(t *Tripod) error { return t.SetPosition(ctx, PoseCentered) })
	})
}

// Stand straightens the legs below the hips. From a flat pose the body is
// first raised to standing height.
func (r *Robot) Stand(ctx context.Context) error {
	return r.transition(PoseStanding, func() error {
		return r.stand(ctx)
	})
}

func (r *Robot) stand(ctx context.Context) error {
	var errs []error
	if !r.pose.flat() {
		if err := r.raiseBody(ctx, r.tripods[0].Standing()); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, r.both(func(t *Tripod) error { return t.SetPosition(ctx, PoseStanding) }))
	return errors.Join(errs...)
}

// StandQuad stands with the arms spread in the quadcopter layout.
func (r *Robot) StandQuad(ctx context.Context) error {
	return r.transition(PoseStandingQuad, func() error {
		return errors.Join(
			r.stand(ctx),
			r.both(func(t *Tripod) error {
				_, err := t.StandQuad(ctx)
				return err
			}),
		)
	})
}

// FlattenLegs lays every leg flat. pose is flat_quad or fly_straight_quad.
func (r *Robot) FlattenLegs(ctx context.Context, pose Pose) error {
	if pose != PoseFlyStraightQuad {
		pose = PoseFlatQuad
	}
	return r.transition(pose, func() error {
		return r.both(func(t *Tripod) error {
			_, err := t.FlattenLegs(ctx, pose)
			return err
		})
	})
}

// QuadSetup lays the legs flat with the arms centered, for mounting the
// quadcopter frame.
func (r *Robot) QuadSetup(ctx context.Context) error {
	return r.transition(PoseQuadSetup, func() error {
		return r.both(func(t *Tripod) error { return t.SetPosition(ctx, PoseQuadSetup) })
	})
}

// FlyStandingQuad is the standing quad layout used while airborne.
func (r *Robot) FlyStandingQuad(ctx context.Context) error {
	return r.transition(PoseFlyStandingQuad, func() error {
		return r.both(func(t *Tripod) error { return t.SetPosition(ctx, PoseFlyStandingQuad) })
	})
}

// SetPose dispatches to the transition for pose.
func (r *Robot) SetPose(ctx context.Context, pose Pose) error {
	switch pose {
	case PoseDefault:
		return r.Default(ctx)
	case PoseCentered:
		return r.Center(ctx)
	case PoseStanding:
		return r.Stand(ctx)
	case PoseStandingQuad:
		return r.StandQuad(ctx)
	case PoseFlatQuad, PoseFlyStraightQuad:
		return r.FlattenLegs(ctx, pose)
	case PoseQuadSetup:
		return r.QuadSetup(ctx)
	case PoseFlyStandingQuad:
		return r.FlyStandingQuad(ctx)
	}
	return fmt.Errorf("%w: %v", ErrUnknownPose, pose)
}

// RaiseBody lifts the body by h (negative lowers it). The first tripod
// computes the new state and the second copies it.
func (r *Robot) RaiseBody(ctx context.Context, h float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raiseBody(ctx, h)
}

func (r *Robot) raiseBody(ctx context.Context, h float64) error {
	if math.Abs(h) < 1e-9 {
		return nil
	}
	if err := r.tripods[0].RaiseBody(ctx, h); !onlyWriteErrors(err) {
		return err
	} else if err != nil {
		return errors.Join(err, r.tripods[1].CopyState(ctx, r.tripods[0]))
	}
	return r.tripods[1].CopyState(ctx, r.tripods[0])
}

func (r *Robot) calibration() Calibration {
	cal := make(Calibration, len(r.legs))
	for name, l := range r.legs {
		cal[name] = l.cal
	}
	return cal
}
