package dynamixel

import (
	"context"
	"fmt"
	"math"
)

// baudRates maps the AX-12A baud rate register codes to bits per second.
var baudRates = map[int]int{
	1:   1_000_000,
	3:   500_000,
	4:   400_000,
	7:   250_000,
	9:   200_000,
	16:  115_200,
	34:  57_600,
	103: 19_200,
	207: 9_600,
}

// BaudRate returns the line speed selected by a baud rate register code.
func BaudRate(code int) (int, bool) {
	rate, ok := baudRates[code]
	return rate, ok
}

// SetBaud programs the baud rate code of servo id. Unknown codes are rejected
// before anything is sent.
func (b *Bus) SetBaud(ctx context.Context, id byte, code int) error {
	if _, ok := baudRates[code]; !ok {
		return fmt.Errorf("%w: %d", ErrInvalidBaudRate, code)
	}
	return b.WriteSingle(ctx, id, RegBaudRate, code)
}

// SetReturnLevel changes which requests are answered, on servo id and in the
// bus's own expectation of replies.
func (b *Bus) SetReturnLevel(ctx context.Context, id byte, lvl ReturnLevel) error {
	if !lvl.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidReturnLevel, lvl)
	}
	b.mu.Lock()
	b.returnLevel = lvl
	b.mu.Unlock()
	return b.WriteSingle(ctx, id, RegReturnLevel, int(lvl))
}

const (
	// CenterPosition is the goal position of the 0° origin.
	CenterPosition = 512
	// MaxPosition is the highest goal position (-150°).
	MaxPosition = 1023

	positionRange = 300.0 // degrees covered by 0..1024
)

// AngleToPosition converts an angle in radians to a goal position:
// 512 at the origin, 0 at +150° (clockwise) and 1023 at -150°. Angles beyond
// the travel are clamped.
func AngleToPosition(rad float64) int {
	deg := rad * 180 / math.Pi
	pos := int(math.Round(CenterPosition - deg*1024/positionRange))
	return min(max(pos, 0), MaxPosition)
}

// PositionToAngle is the inverse of AngleToPosition.
func PositionToAngle(pos int) float64 {
	deg := float64(CenterPosition-pos) * positionRange / 1024
	return deg * math.Pi / 180
}

// SetGoalPosition sets the raw goal position (0..1023).
func (b *Bus) SetGoalPosition(ctx context.Context, id byte, pos int) error {
	if pos < 0 || pos > MaxPosition {
		return fmt.Errorf("%w: goal position %d", ErrValueOutOfRange, pos)
	}
	return b.WriteSingle(ctx, id, RegGoalPosition, pos)
}

// SetGoalAngle sets the goal position from an angle in radians.
func (b *Bus) SetGoalAngle(ctx context.Context, id byte, rad float64) error {
	return b.SetGoalPosition(ctx, id, AngleToPosition(rad))
}

func (b *Bus) SetGoalVelocity(ctx context.Context, id byte, velocity int) error {
	return b.WriteSingle(ctx, id, RegGoalVelocity, velocity)
}

func (b *Bus) SetMaxTorque(ctx context.Context, id byte, torque int) error {
	return b.WriteSingle(ctx, id, RegMaxTorque, torque)
}

func (b *Bus) SetPunch(ctx context.Context, id byte, punch int) error {
	return b.WriteSingle(ctx, id, RegPunch, punch)
}

// SetLED turns the servo LED on or off.
func (b *Bus) SetLED(ctx context.Context, id byte, on bool) error {
	return b.WriteSingle(ctx, id, RegLED, boolValue(on))
}

// SetTorqueEnable enables or releases the motor.
func (b *Bus) SetTorqueEnable(ctx context.Context, id byte, on bool) error {
	return b.WriteSingle(ctx, id, RegTorqueEnable, boolValue(on))
}

// PresentPosition reads the current raw position.
func (b *Bus) PresentPosition(ctx context.Context, id byte) (int, error) {
	return b.ReadSingle(ctx, id, RegPresentPosition)
}

// PresentAngle reads the current position in radians.
func (b *Bus) PresentAngle(ctx context.Context, id byte) (float64, error) {
	pos, err := b.PresentPosition(ctx, id)
	if err != nil {
		return 0, err
	}
	return PositionToAngle(pos), nil
}

func boolValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
