package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
)

// positionTable answers PresentPosition from a map.
type positionTable map[byte]int

func (p positionTable) PresentPosition(_ context.Context, id byte) (int, error) {
	pos, ok := p[id]
	if !ok {
		return 0, dynamixel.ErrNoReply
	}
	return pos, nil
}

func TestReadAngles(t *testing.T) {
	cal := DefaultCalibration()
	a := kinematics.Angles{Knee: kinematics.Radians(90), Hip: kinematics.Radians(-30), Arm: kinematics.Radians(15)}

	positions := positionTable{}
	for _, name := range []LegName{LeftFront, RightFront} {
		out := a
		if name.Side() == Right {
			out = a.Mirror()
		}
		lc := cal[name]
		for _, j := range lc.Joints() {
			s := lc.Servo(j)
			positions[byte(s.ID)] = s.Position(out.Get(j))
		}
	}

	got, err := ReadAngles(context.Background(), positions, cal)
	if !errors.Is(err, dynamixel.ErrNoReply) {
		t.Errorf("error = %v, want ErrNoReply for the missing legs", err)
	}

	// positions are quantized to 300/1024 degrees
	const tol = 0.003
	for _, name := range []LegName{LeftFront, RightFront} {
		for _, j := range []kinematics.Joint{kinematics.Knee, kinematics.Hip, kinematics.Arm} {
			if d := got[name].Get(j) - a.Get(j); d > tol || d < -tol {
				t.Errorf("%s %s = %v, want %v", name, j, got[name].Get(j), a.Get(j))
			}
		}
	}
}
