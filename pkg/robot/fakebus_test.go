package robot

import (
	"context"
	"math"
	"testing"

	"github.com/gwillem/hexapod/pkg/kinematics"
)

type servoWrite struct {
	id  byte
	pos int
}

// recordBus records goal positions instead of sending them.
type recordBus struct {
	writes []servoWrite
	fail   map[byte]error
}

func (b *recordBus) SetGoalPosition(_ context.Context, id byte, pos int) error {
	if err := b.fail[id]; err != nil {
		return err
	}
	b.writes = append(b.writes, servoWrite{id, pos})
	return nil
}

// last returns the most recent position written to id.
func (b *recordBus) last(id int) (int, bool) {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].id == byte(id) {
			return b.writes[i].pos, true
		}
	}
	return 0, false
}

type writeEvent struct {
	leg    LegName
	angles kinematics.Angles
}

type writeLog struct {
	events []writeEvent
}

func (w *writeLog) record(name LegName, a kinematics.Angles) {
	w.events = append(w.events, writeEvent{name, a})
}

func (w *writeLog) legs() []LegName {
	out := make([]LegName, len(w.events))
	for i, e := range w.events {
		out[i] = e.leg
	}
	return out
}

func testParams(t *testing.T) *kinematics.Params {
	t.Helper()
	p, err := kinematics.NewParams(kinematics.DefaultBodyParams())
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	return p
}

// newTestLeg returns a leg in the default pose.
func newTestLeg(t *testing.T, name LegName, cal LegCalibration) (*Leg, *recordBus) {
	t.Helper()
	p := testParams(t)
	state, err := kinematics.NewState(p, kinematics.DefaultBodyParams().Height)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	bus := &recordBus{}
	l := NewLeg(name, state, cal, bus, nil)
	if err := l.SetPosition(context.Background(), PoseDefault); err != nil {
		t.Fatalf("SetPosition(default): %v", err)
	}
	bus.writes = nil
	return l, bus
}

func defaultPose(t *testing.T) kinematics.Snapshot {
	t.Helper()
	def, ok := kinematics.Defaults()
	if !ok {
		t.Fatal("default pose not computed")
	}
	return def
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func anglesEqual(a, b kinematics.Angles) bool {
	return almostEqual(a.Knee, b.Knee) && almostEqual(a.Hip, b.Hip) && almostEqual(a.Arm, b.Arm)
}
