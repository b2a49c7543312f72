package dynamixel

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedReply     = errors.New("malformed reply")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrLengthMismatch     = errors.New("length mismatch")
	ErrWrongRespondent    = errors.New("reply from wrong servo")
	ErrNoReply            = errors.New("no status packet")
	ErrActuatorFault      = errors.New("actuator fault")
	ErrInvalidBaudRate    = errors.New("invalid baud rate code")
	ErrInvalidReturnLevel = errors.New("invalid return level")
	ErrUnknownRegister    = errors.New("unknown register")
	ErrValueOutOfRange    = errors.New("value out of range for register")
	ErrBroadcastRead      = errors.New("cannot read from broadcast id")
)

// Fault is one bit of the status byte carried by every reply.
type Fault uint8

const (
	FaultInputVoltage Fault = 1 << iota
	FaultAngleLimit
	FaultOverheating
	FaultRange
	FaultChecksum
	FaultOverload
	FaultInstruction
	FaultGlitch
)

func (f Fault) String() string {
	switch f {
	case FaultInputVoltage:
		return "voltage out of range"
	case FaultAngleLimit:
		return "required position out of range"
	case FaultOverheating:
		return "temperature out of range"
	case FaultRange:
		return "command out of range"
	case FaultChecksum:
		return "corrupted packet sent, checksum does not match"
	case FaultOverload:
		return "load out of range"
	case FaultInstruction:
		return "undefined or missing command"
	case FaultGlitch:
		return "glitch"
	}
	return fmt.Sprintf("fault(%#02x)", uint8(f))
}

// StatusError reports a non-zero status byte. Fault is the lowest set bit;
// Status keeps the whole byte for callers that care about the rest.
type StatusError struct {
	ID     byte
	Status byte
	Fault  Fault
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("servo %d: %s (status %#02x)", e.ID, e.Fault, e.Status)
}

// Is makes errors.Is(err, ErrActuatorFault) true for any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrActuatorFault
}

// DecodeStatus returns nil for a zero status byte and a *StatusError naming
// the lowest set fault bit otherwise.
func DecodeStatus(id, status byte) error {
	if status == 0 {
		return nil
	}
	for bit := 0; bit < 8; bit++ {
		f := Fault(1 << bit)
		if status&byte(f) != 0 {
			return &StatusError{ID: id, Status: status, Fault: f}
		}
	}
	return nil
}
