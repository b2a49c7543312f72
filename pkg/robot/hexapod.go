package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
)

// Hexapod is a Robot driving real servos over a Dynamixel bus.
type Hexapod struct {
	*Robot
	bus         *dynamixel.Bus
	calibration Calibration
}

// OpenOptions carries the runtime hooks that do not live in the config file.
type OpenOptions struct {
	Input   MotionInput
	Logger  Logger
	OnWrite func(LegName, kinematics.Angles)
}

// Open opens the serial bus from cfg and moves the robot to its initial
// pose.
func Open(ctx context.Context, cfg *Config, opts OpenOptions) (*Hexapod, error) {
	pose, err := cfg.Pose()
	if err != nil {
		return nil, err
	}
	var busLog dynamixel.Logger
	if opts.Logger != nil {
		busLog = opts.Logger
	}

	// Open serial bus
	bus, err := dynamixel.NewBus(dynamixel.BusConfig{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReturnLevel: cfg.ReturnLevel,
		Logger:      busLog,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	r, err := New(ctx, Options{
		Body:        cfg.Body,
		Calibration: cfg.Calibration,
		Bus:         bus,
		Input:       opts.Input,
		Logger:      opts.Logger,
		OnWrite:     opts.OnWrite,
		LiftHeight:  cfg.Gait.LiftHeight,
		Settle:      cfg.Gait.Settle(),
		MaxStep:     cfg.Gait.MaxStep,
		MaxRotation: cfg.Gait.MaxRotation,
		InitialPose: pose,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}

	return &Hexapod{Robot: r, bus: bus, calibration: r.calibration()}, nil
}

// Bus returns the underlying servo bus.
func (h *Hexapod) Bus() *dynamixel.Bus { return h.bus }

// Close closes the bus connection.
func (h *Hexapod) Close() error {
	return h.bus.Close()
}

// Enable enables torque on all servos.
func (h *Hexapod) Enable(ctx context.Context) error {
	return h.setTorque(ctx, true)
}

// Disable disables torque on all servos.
func (h *Hexapod) Disable(ctx context.Context) error {
	return h.setTorque(ctx, false)
}

func (h *Hexapod) setTorque(ctx context.Context, on bool) error {
	var errs []error
	for _, id := range h.calibration.ServoIDs() {
		if err := h.bus.SetTorqueEnable(ctx, byte(id), on); err != nil {
			errs = append(errs, fmt.Errorf("servo %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ReadPositions reads the present angle of every joint, converted back to
// the left-leg convention.
func (h *Hexapod) ReadPositions(ctx context.Context) (map[LegName]kinematics.Angles, error) {
	return ReadAngles(ctx, h.bus, h.calibration)
}

// PositionReader reads a servo's present position. *dynamixel.Bus satisfies
// it.
type PositionReader interface {
	PresentPosition(ctx context.Context, id byte) (int, error)
}

// ReadAngles reads the present angle of every calibrated joint. Servos that
// fail to answer are left at zero and reported in the returned error.
func ReadAngles(ctx context.Context, bus PositionReader, cal Calibration) (map[LegName]kinematics.Angles, error) {
	out := make(map[LegName]kinematics.Angles, len(cal))
	var errs []error
	for _, name := range AllLegs() {
		lc, ok := cal[name]
		if !ok {
			continue
		}
		var vals [3]float64
		for _, j := range lc.Joints() {
			s := lc.Servo(j)
			pos, err := bus.PresentPosition(ctx, byte(s.ID))
			if err != nil {
				errs = append(errs, fmt.Errorf("read %s %s (servo %d): %w", name, j, s.ID, err))
				continue
			}
			vals[j] = s.Angle(pos)
		}
		a := kinematics.Angles{Knee: vals[kinematics.Knee], Hip: vals[kinematics.Hip], Arm: vals[kinematics.Arm]}
		if name.Side() == Right {
			a = a.Mirror()
		}
		out[name] = a
	}
	return out, errors.Join(errs...)
}
