package robot

import (
	"context"
	"fmt"
	"math"
)

// gaitOps is the operation triple one gait kind runs on the tripods.
type gaitOps struct {
	bodyMove func(*Tripod, context.Context, float64) error
	step     func(*Tripod, context.Context, float64) error
	finish   func(*Tripod, context.Context) error
	max      float64
}

func (r *Robot) gait(kind GaitKind) (gaitOps, error) {
	finish := (*Tripod).FinishStep
	switch kind {
	case GaitHexapod:
		return gaitOps{(*Tripod).BodyForward, (*Tripod).StepForward, finish, r.maxStep}, nil
	case GaitRectangular:
		return gaitOps{(*Tripod).BodyForwardRectangular, (*Tripod).StepForwardRectangular, finish, r.maxStep}, nil
	case GaitRotate:
		return gaitOps{(*Tripod).BodyRotate, (*Tripod).StepRotate, finish, r.maxRotation}, nil
	}
	return gaitOps{}, fmt.Errorf("unknown gait %v", kind)
}

// MakeMovement walks or turns until the motion input says stop. coeff scales
// the maximum step or rotation and is clamped to [-1, 1]; negative values
// walk backward or turn clockwise. NaN and infinite coefficients are rejected
// before anything moves.
//
// Each cycle lifts the up tripod, waits for the settle interval and moves
// the body on the down tripod. If the input says continue, the up tripod
// steps and the roles swap. Otherwise both tripods finish their step and
// the loop ends. Body moves after the first cycle are doubled to make up for
// the half step taken before. Failed motions are logged and the loop carries
// on. A canceled context counts as a stop: the legs still finish on the
// ground and ctx.Err() is returned afterwards.
func (r *Robot) MakeMovement(ctx context.Context, kind GaitKind, coeff float64) error {
	ops, err := r.gait(kind)
	if err != nil {
		return err
	}
	if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
		return fmt.Errorf("%w: %v", ErrBadCoefficient, coeff)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pose.walkable() {
		return fmt.Errorf("%w: %v", ErrNotWalkable, r.pose)
	}

	// Writes keep going after cancellation so the finish sequence lands.
	wctx := context.WithoutCancel(ctx)
	amount := math.Max(-1, math.Min(1, coeff)) * ops.max
	up, down := r.tripods[0], r.tripods[1]
	first := true

	for {
		r.logErr("lift up", up.LiftUp(wctx, r.lift))
		stop := r.sleep(ctx, r.settle) != nil

		if !stop {
			move := amount
			if !first {
				move = 2 * amount
			}
			r.logErr("body move", ops.bodyMove(down, wctx, move))
			stop = ctx.Err() != nil || !r.input.ContinueMovement(kind)
		}

		if stop {
			r.logErr("finish step", ops.finish(up, wctx))
			r.logErr("lift up", down.LiftUp(wctx, r.lift))
			r.logErr("finish step", ops.finish(down, wctx))
			r.pose = PoseCentered
			return ctx.Err()
		}

		r.logErr("step", ops.step(up, wctx, 2*amount))
		up, down = down, up
		first = false
	}
}

func (r *Robot) logErr(what string, err error) {
	if err != nil {
		r.log.Printf("robot: %s: %v", what, err)
	}
}
