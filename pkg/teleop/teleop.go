// Package teleop drives the hexapod from interactive input.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/hexapod/pkg/kinematics"
	"github.com/gwillem/hexapod/pkg/robot"
)

// DefaultHold is how long a walk command keeps the gait going without being
// repeated. Terminals report key repeats, not key releases.
const DefaultHold = 400 * time.Millisecond

// State represents the current state of teleoperation.
type State struct {
	Angles    map[robot.LegName]kinematics.Angles
	Pose      robot.Pose
	Moving    bool
	Timestamp time.Time
	Error     error
}

// Driver is the part of the robot the controller commands.
// *robot.Robot and *robot.Hexapod satisfy it.
type Driver interface {
	MakeMovement(ctx context.Context, kind robot.GaitKind, coeff float64) error
	SetPose(ctx context.Context, pose robot.Pose) error
	RaiseBody(ctx context.Context, h float64) error
	Pose() robot.Pose
}

type commandKind int

const (
	cmdWalk commandKind = iota
	cmdPose
	cmdRaise
)

type command struct {
	kind  commandKind
	gait  robot.GaitKind
	coeff float64
	pose  robot.Pose
	raise float64
}

// Controller turns commands into gait and pose calls on one goroutine.
// It is also the robot's motion input and log sink.
type Controller struct {
	driver Driver
	closer func() error
	hold   time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	running  bool
	moving   bool
	walking  bool // walk queued, not yet picked up
	pose     robot.Pose
	walk     robot.GaitKind
	deadline time.Time
	angles   map[robot.LegName]kinematics.Angles

	cmdCh   chan command
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Robot *robot.Config
	Hold  time.Duration
}

// NewController opens the hexapod described by cfg.Robot.
func NewController(ctx context.Context, cfg Config) (*Controller, error) {
	c := newController(cfg.Hold)
	h, err := robot.Open(ctx, cfg.Robot, robot.OpenOptions{
		Input:   c,
		Logger:  c,
		OnWrite: c.record,
	})
	if err != nil {
		return nil, fmt.Errorf("open hexapod: %w", err)
	}
	c.driver = h
	c.closer = func() error {
		return errors.Join(h.Disable(context.Background()), h.Close())
	}
	return c, nil
}

func newController(hold time.Duration) *Controller {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Controller{
		hold:    hold,
		now:     time.Now,
		angles:  make(map[robot.LegName]kinematics.Angles, 6),
		cmdCh:   make(chan command, 1),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// Close closes the controller and releases resources.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.closer == nil {
		return nil
	}
	if err := c.closer(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Printf sends a log line to Logs, dropping it if nobody is reading.
func (c *Controller) Printf(format string, args ...any) {
	c.log(format, args...)
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Walk starts or keeps up a gait. Repeating the same gait within the hold
// time continues it; anything else lets the current gait finish its step.
func (c *Controller) Walk(kind robot.GaitKind, coeff float64) {
	c.mu.Lock()
	same := (c.walking || c.moving) && c.walk == kind
	c.walk = kind
	c.walking = true
	c.deadline = c.now().Add(c.hold)
	c.mu.Unlock()

	if !same {
		c.submit(command{kind: cmdWalk, gait: kind, coeff: coeff})
	}
}

// Stop ends the current gait after its step.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.deadline = time.Time{}
	c.mu.Unlock()
}

// SetPose queues a pose transition.
func (c *Controller) SetPose(pose robot.Pose) {
	c.Stop()
	c.submit(command{kind: cmdPose, pose: pose})
}

// RaiseBody queues a body height change.
func (c *Controller) RaiseBody(h float64) {
	c.submit(command{kind: cmdRaise, raise: h})
}

// submit queues cmd, replacing one that has not started yet.
func (c *Controller) submit(cmd command) {
	select {
	case c.cmdCh <- cmd:
	default:
		select {
		case old := <-c.cmdCh:
			if old.kind == cmdWalk && cmd.kind != cmdWalk {
				c.mu.Lock()
				c.walking = false
				c.mu.Unlock()
			}
		default:
		}
		select {
		case c.cmdCh <- cmd:
		default:
		}
	}
}

// ContinueMovement reports whether the gait kind was commanded again within
// the hold time.
func (c *Controller) ContinueMovement(kind robot.GaitKind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running && c.walk == kind && c.now().Before(c.deadline)
}

// Moving reports whether a gait is in progress.
func (c *Controller) Moving() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moving
}

// Start runs commands until ctx is canceled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.pose = c.driver.Pose()
	c.mu.Unlock()

	c.log("Teleoperation started in pose %s", c.pose)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case cmd := <-c.cmdCh:
			c.run(ctx, cmd)
		}
	}
}

func (c *Controller) run(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdWalk:
		c.mu.Lock()
		c.walking = false
		c.moving = true
		c.mu.Unlock()
		c.log("Walking: %s at %.0f%%", cmd.gait, cmd.coeff*100)
		err = c.driver.MakeMovement(ctx, cmd.gait, cmd.coeff)
		c.setMoving(false)
		if err == nil {
			c.log("Stopped")
		}
	case cmdPose:
		err = c.driver.SetPose(ctx, cmd.pose)
		if err == nil {
			c.log("Pose: %s", cmd.pose)
		}
	case cmdRaise:
		err = c.driver.RaiseBody(ctx, cmd.raise)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log("Error: %v", err)
	}

	pose := c.driver.Pose()
	c.mu.Lock()
	c.pose = pose
	c.mu.Unlock()
	c.sendState(c.snapshot(err))
}

func (c *Controller) setMoving(on bool) {
	c.mu.Lock()
	c.moving = on
	c.mu.Unlock()
}

// record is the robot's write hook. It runs while the robot is locked and
// must not call back into the driver.
func (c *Controller) record(name robot.LegName, a kinematics.Angles) {
	c.mu.Lock()
	c.angles[name] = a
	c.mu.Unlock()
	c.sendState(c.snapshot(nil))
}

func (c *Controller) snapshot(err error) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	angles := make(map[robot.LegName]kinematics.Angles, len(c.angles))
	for k, v := range c.angles {
		angles[k] = v
	}
	return State{
		Angles:    angles,
		Pose:      c.pose,
		Moving:    c.moving,
		Timestamp: c.now(),
		Error:     err,
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.log("Teleoperation stopped")
}
