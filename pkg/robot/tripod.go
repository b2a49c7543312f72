package robot

import (
	"context"
	"errors"

	"github.com/gwillem/hexapod/pkg/kinematics"
)

// Tripod groups three legs that move together: front and back of one side
// and the middle leg of the other.
type Tripod struct {
	legs [3]*Leg
}

// NewTripod groups legs in front, middle, back order.
func NewTripod(front, middle, back *Leg) *Tripod {
	return &Tripod{legs: [3]*Leg{front, middle, back}}
}

// Legs returns front, middle and back.
func (t *Tripod) Legs() [3]*Leg { return t.legs }

// each applies fn to every leg in order. A failing leg does not stop the
// others.
func (t *Tripod) each(fn func(*Leg) error) error {
	var errs []error
	for _, l := range t.legs {
		if err := fn(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tripod) LiftUp(ctx context.Context, h float64) error {
	return t.each(func(l *Leg) error { return l.LiftUp(ctx, h) })
}

func (t *Tripod) LowerDown(ctx context.Context, h float64) error {
	return t.each(func(l *Leg) error { return l.LowerDown(ctx, h) })
}

func (t *Tripod) FinishStep(ctx context.Context) error {
	return t.each(func(l *Leg) error { return l.FinishStep(ctx) })
}

func (t *Tripod) RaiseBody(ctx context.Context, dh float64) error {
	return t.each(func(l *Leg) error { return l.RaiseBody(ctx, dh) })
}

func (t *Tripod) BodyForward(ctx context.Context, step float64) error {
	return t.each(func(l *Leg) error { return l.BodyForward(ctx, step) })
}

func (t *Tripod) StepForward(ctx context.Context, step float64) error {
	return t.each(func(l *Leg) error { return l.StepForward(ctx, step) })
}

func (t *Tripod) BodyForwardRectangular(ctx context.Context, step float64) error {
	return t.each(func(l *Leg) error { return l.BodyForwardRectangular(ctx, step) })
}

func (t *Tripod) StepForwardRectangular(ctx context.Context, step float64) error {
	return t.each(func(l *Leg) error { return l.StepForwardRectangular(ctx, step) })
}

func (t *Tripod) BodyRotate(ctx context.Context, angle float64) error {
	return t.each(func(l *Leg) error { return l.BodyRotate(ctx, angle) })
}

func (t *Tripod) StepRotate(ctx context.Context, angle float64) error {
	return t.each(func(l *Leg) error { return l.StepRotate(ctx, angle) })
}

func (t *Tripod) SetPosition(ctx context.Context, pose Pose) error {
	return t.each(func(l *Leg) error { return l.SetPosition(ctx, pose) })
}

func (t *Tripod) WriteAngles(ctx context.Context) error {
	return t.each(func(l *Leg) error { return l.WriteAngles(ctx) })
}

// CopyState makes each leg mirror the state of the leg at the same station
// in other.
func (t *Tripod) CopyState(ctx context.Context, other *Tripod) error {
	var errs []error
	for i, l := range t.legs {
		if err := l.CopyState(ctx, other.legs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BodyHeight of the tripod, taken from its front leg.
func (t *Tripod) BodyHeight() float64 {
	if !t.legs[0].Vars().Valid() {
		return 0
	}
	return t.legs[0].BodyHeight()
}

// Standing returns how far the body must rise for the legs to stand
// straight below the hips.
func (t *Tripod) Standing() float64 {
	return t.legs[0].state.Params().StandingHeight() - t.BodyHeight()
}

// StandQuad sets the quadcopter standing pose and returns the body rise.
func (t *Tripod) StandQuad(ctx context.Context) (float64, error) {
	before := t.BodyHeight()
	err := t.SetPosition(ctx, PoseStandingQuad)
	return t.BodyHeight() - before, err
}

// FlattenLegs lays the legs flat in one of the flat quad poses and returns
// the body rise, which is negative: the body comes down to the ground.
func (t *Tripod) FlattenLegs(ctx context.Context, pose Pose) (float64, error) {
	if pose != PoseFlyStraightQuad {
		pose = PoseFlatQuad
	}
	before := t.BodyHeight()
	err := t.SetPosition(ctx, pose)
	return -before, err
}

// OutputAngles returns each leg's written angles keyed by leg name.
func (t *Tripod) OutputAngles() map[LegName]kinematics.Angles {
	out := make(map[LegName]kinematics.Angles, len(t.legs))
	for _, l := range t.legs {
		out[l.Name()] = l.OutputAngles()
	}
	return out
}
