// Package dynamixel talks to AX-12A servos over a half-duplex serial bus
// using Dynamixel protocol 1.0.
package dynamixel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ReturnLevel controls which requests are answered with a status packet.
type ReturnLevel int

const (
	ReturnNone ReturnLevel = iota // never reply
	ReturnRead                    // reply to reads only
	ReturnAll                     // reply to everything
)

func (l ReturnLevel) valid() bool {
	return l >= ReturnNone && l <= ReturnAll
}

// Port is the byte stream underneath a Bus. go.bug.st/serial ports satisfy it.
// Read must return (0, nil) once the read timeout expires without data.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// Logger receives diagnostic output. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// BusConfig describes how to open a bus.
type BusConfig struct {
	Port        string
	BaudRate    int
	ReturnLevel ReturnLevel
	Timeout     time.Duration // read timeout for status packets
	Logger      Logger
}

const (
	DefaultBaudRate = 1_000_000
	DefaultTimeout  = 20 * time.Millisecond
)

// Bus is a request/response channel to every servo sharing one serial line.
// At most one packet is in flight: each exchange holds the bus lock from the
// request write until the reply is validated or found missing.
type Bus struct {
	mu          sync.Mutex
	port        Port
	returnLevel ReturnLevel
	logger      Logger
	rx          [maxPacketSize]byte
}

// NewBus opens the serial port described by cfg.
func NewBus(cfg BusConfig) (*Bus, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if !cfg.ReturnLevel.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidReturnLevel, cfg.ReturnLevel)
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return NewBusWithPort(port, cfg), nil
}

// NewBusWithPort wraps an already opened port. Only ReturnLevel and Logger
// are taken from cfg.
func NewBusWithPort(port Port, cfg BusConfig) *Bus {
	return &Bus{
		port:        port,
		returnLevel: cfg.ReturnLevel,
		logger:      cfg.Logger,
	}
}

// Close closes the underlying port.
func (b *Bus) Close() error {
	return b.port.Close()
}

// ReturnLevel returns the bus-wide reply setting.
func (b *Bus) ReturnLevel() ReturnLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.returnLevel
}

func (b *Bus) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}

// WriteSingle writes value into reg of servo id. Unless the target is the
// broadcast id or the return level suppresses write replies, it waits for the
// status packet and validates it.
func (b *Bus) WriteSingle(ctx context.Context, id byte, reg Register, value int) error {
	if value < 0 || value > reg.MaxValue() {
		return fmt.Errorf("%w: %s=%d", ErrValueOutOfRange, reg, value)
	}
	_, err := b.exchange(ctx, id, InstWrite, writeParams(reg, value))
	return err
}

// ReadSingle reads reg of servo id. One or two payload bytes are decoded
// (low byte first) according to the register width.
func (b *Bus) ReadSingle(ctx context.Context, id byte, reg Register) (int, error) {
	if id == BroadcastID {
		return 0, ErrBroadcastRead
	}
	reply, err := b.exchange(ctx, id, InstRead, readParams(reg))
	if err != nil {
		return 0, err
	}

	data := payload(reply)
	if len(data) < reg.Width() {
		return 0, fmt.Errorf("%w: %d payload bytes for %s", ErrMalformedReply, len(data), reg)
	}
	if reg.Width() == 2 {
		return int(data[0]) | int(data[1])<<8, nil
	}
	return int(data[0]), nil
}

// Ping checks that servo id is present on the bus.
func (b *Bus) Ping(ctx context.Context, id byte) error {
	if id == BroadcastID {
		return ErrBroadcastRead
	}
	_, err := b.exchange(ctx, id, InstPing, nil)
	return err
}

// expectsReply reports whether a status packet follows a request. Reads and
// pings are always answered by an individually addressed servo.
func (b *Bus) expectsReply(id byte, inst Instruction) bool {
	if id == BroadcastID {
		return false
	}
	if inst != InstWrite {
		return true
	}
	return b.returnLevel == ReturnAll
}

func (b *Bus) exchange(ctx context.Context, id byte, inst Instruction, params []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.flush()

	pkt := EncodePacket(id, inst, params)
	if _, err := b.port.Write(pkt); err != nil {
		return nil, fmt.Errorf("write packet: %w", err)
	}

	if !b.expectsReply(id, inst) {
		return nil, nil
	}

	reply, err := b.readReply()
	if err != nil {
		if errors.Is(err, ErrNoReply) {
			b.logf("servo %d: could not read status packet", id)
		}
		return nil, err
	}

	if err := validateFrame(reply); err != nil {
		b.logf("servo %d: %v, packet [% X]", id, err, reply)
		b.flush()
		return nil, err
	}

	if reply[2] != id {
		b.flush()
		b.logf("servo %d: wrong id %d replied", id, reply[2])
		return nil, fmt.Errorf("%w: addressed %d, got %d", ErrWrongRespondent, id, reply[2])
	}

	if err := DecodeStatus(reply[2], reply[4]); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			b.logf("servo %d: status error: %s", id, se.Fault)
		}
		b.flush()
		return nil, err
	}

	// rx is reused by the next exchange
	return bytes.Clone(reply), nil
}

// readReply collects one status packet. It reads the four bytes up to and
// including LEN first, then the rest of the declared length. A read that
// times out ends collection early; whatever was gathered is returned for
// validation.
func (b *Bus) readReply() ([]byte, error) {
	n, want := 0, 4
	for n < want {
		m, err := b.port.Read(b.rx[n:want])
		if err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		if m == 0 {
			break
		}
		n += m

		if want == 4 && n == 4 {
			if b.rx[0] != headerByte || b.rx[1] != headerByte {
				break
			}
			want = int(b.rx[3]) + 4
		}
	}

	if n == 0 {
		return nil, ErrNoReply
	}
	return b.rx[:n], nil
}

// flush discards anything left in the receive buffer so the next exchange
// starts on a packet boundary.
func (b *Bus) flush() {
	if err := b.port.ResetInputBuffer(); err != nil {
		b.logf("flush input buffer: %v", err)
	}
}
