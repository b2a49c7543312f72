package teleop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/hexapod/pkg/kinematics"
	"github.com/gwillem/hexapod/pkg/robot"
)

// fakeDriver reports each finished command on done.
type fakeDriver struct {
	c    *Controller
	pose robot.Pose
	done chan string
}

func (d *fakeDriver) MakeMovement(_ context.Context, kind robot.GaitKind, _ float64) error {
	for cycle := 1; ; cycle++ {
		if cycle == 3 {
			d.c.Stop()
		}
		if !d.c.ContinueMovement(kind) {
			d.done <- fmt.Sprintf("walk %s %d", kind, cycle)
			return nil
		}
	}
}

func (d *fakeDriver) SetPose(_ context.Context, pose robot.Pose) error {
	d.pose = pose
	d.done <- "pose " + pose.String()
	return nil
}

func (d *fakeDriver) RaiseBody(_ context.Context, h float64) error {
	d.done <- fmt.Sprintf("raise %.1f", h)
	return nil
}

func (d *fakeDriver) Pose() robot.Pose { return d.pose }

var testTime = time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

func newTestController() (*Controller, *fakeDriver) {
	c := newController(time.Second)
	c.now = func() time.Time { return testTime }
	d := &fakeDriver{c: c, pose: robot.PoseDefault, done: make(chan string, 4)}
	c.driver = d
	return c, d
}

func TestController_ContinueMovement(t *testing.T) {
	c, _ := newTestController()
	c.running = true
	now := testTime
	c.now = func() time.Time { return now }

	c.Walk(robot.GaitHexapod, 0.5)
	if !c.ContinueMovement(robot.GaitHexapod) {
		t.Error("ContinueMovement right after Walk = false, want true")
	}
	if c.ContinueMovement(robot.GaitRotate) {
		t.Error("ContinueMovement for another gait = true, want false")
	}

	now = now.Add(2 * time.Second)
	if c.ContinueMovement(robot.GaitHexapod) {
		t.Error("ContinueMovement after hold expired = true, want false")
	}

	c.Walk(robot.GaitHexapod, 0.5)
	c.Stop()
	if c.ContinueMovement(robot.GaitHexapod) {
		t.Error("ContinueMovement after Stop = true, want false")
	}
}

func TestController_NotRunningStops(t *testing.T) {
	c, _ := newTestController()
	c.Walk(robot.GaitHexapod, 1)
	if c.ContinueMovement(robot.GaitHexapod) {
		t.Error("ContinueMovement while not running = true, want false")
	}
}

func TestController_WalkWhileMoving(t *testing.T) {
	c, _ := newTestController()
	c.moving = true
	c.walk = robot.GaitHexapod

	c.Walk(robot.GaitHexapod, 1)
	if got := len(c.cmdCh); got != 0 {
		t.Errorf("repeating the running gait queued %d commands, want 0", got)
	}
	c.Walk(robot.GaitRotate, 1)
	if got := len(c.cmdCh); got != 1 {
		t.Errorf("switching gait queued %d commands, want 1", got)
	}
}

func TestController_WalkRepeatBeforePickup(t *testing.T) {
	c, _ := newTestController()

	c.Walk(robot.GaitHexapod, 1)
	c.Walk(robot.GaitHexapod, 1)
	if got := len(c.cmdCh); got != 1 {
		t.Fatalf("got %d queued commands, want 1", got)
	}
	<-c.cmdCh

	// Picked up but not yet moving.
	c.Walk(robot.GaitHexapod, 1)
	if got := len(c.cmdCh); got != 0 {
		t.Errorf("key repeat before the gait started queued %d commands, want 0", got)
	}
}

func TestController_PoseDropsPendingWalk(t *testing.T) {
	c, _ := newTestController()
	c.Walk(robot.GaitHexapod, 1)
	c.SetPose(robot.PoseStanding)
	<-c.cmdCh

	c.Walk(robot.GaitHexapod, 1)
	if got := len(c.cmdCh); got != 1 {
		t.Errorf("walk after replaced walk queued %d commands, want 1", got)
	}
}

func TestController_SubmitReplacesPending(t *testing.T) {
	c, _ := newTestController()
	c.SetPose(robot.PoseStanding)
	c.SetPose(robot.PoseCentered)

	if got := len(c.cmdCh); got != 1 {
		t.Fatalf("got %d queued commands, want 1", got)
	}
	if cmd := <-c.cmdCh; cmd.pose != robot.PoseCentered {
		t.Errorf("queued pose = %s, want centered", cmd.pose)
	}
}

func TestController_Start(t *testing.T) {
	c, d := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	steps := []struct {
		send func()
		want string
	}{
		{func() { c.Walk(robot.GaitHexapod, 0.5) }, "walk hexapod 3"},
		{func() { c.SetPose(robot.PoseStanding) }, "pose standing"},
		{func() { c.RaiseBody(1.5) }, "raise 1.5"},
	}
	for _, s := range steps {
		s.send()
		select {
		case got := <-d.done:
			if got != s.want {
				t.Errorf("got %q, want %q", got, s.want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", s.want)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestController_StartTwice(t *testing.T) {
	c, _ := newTestController()
	c.running = true
	if err := c.Start(context.Background()); err == nil {
		t.Error("second Start succeeded, want error")
	}
}

func TestController_Record(t *testing.T) {
	c, _ := newTestController()
	c.pose = robot.PoseStanding
	a := kinematics.Angles{Knee: 1, Hip: -0.5, Arm: 0.25}

	c.record(robot.LeftFront, a)
	c.record(robot.RightBack, a.Mirror())

	// only the latest state is kept
	s := <-c.States()
	if len(s.Angles) != 2 || s.Angles[robot.RightBack] != a.Mirror() {
		t.Errorf("got angles %+v", s.Angles)
	}
	if s.Pose != robot.PoseStanding {
		t.Errorf("pose = %s, want standing", s.Pose)
	}
	select {
	case <-c.States():
		t.Error("got a second state, want only the latest")
	default:
	}
}

func TestController_Logs(t *testing.T) {
	c, _ := newTestController()
	c.Printf("servo %d: %s", 11, "overheating")

	got := <-c.Logs()
	if want := "[12:30:45] servo 11: overheating"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	for i := 0; i < 20; i++ {
		c.Printf("line %d", i)
	}
	if n := len(c.logCh); n != cap(c.logCh) {
		t.Errorf("log buffer holds %d lines, want %d", n, cap(c.logCh))
	}
	if first := <-c.Logs(); !strings.HasSuffix(first, "line 0") {
		t.Errorf("first buffered line = %q, want the oldest", first)
	}
}
