package dynamixel

import (
	"context"
	"errors"
	"math"
	"testing"
)

func newTestBus(lvl ReturnLevel) (*Bus, *fakePort) {
	port := &fakePort{}
	return NewBusWithPort(port, BusConfig{ReturnLevel: lvl}), port
}

func TestWriteSingle(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	port.queue(statusPacket(11, 0))

	if err := bus.WriteSingle(context.Background(), 11, RegGoalPosition, 1023); err != nil {
		t.Fatalf("WriteSingle: %v", err)
	}

	want := EncodePacket(11, InstWrite, []byte{30, 0xFF, 0x03})
	if len(port.written) != 1 || string(port.written[0]) != string(want) {
		t.Errorf("written = % X, want % X", port.written, want)
	}
}

func TestWriteSingle_NoReplyExpected(t *testing.T) {
	tests := []struct {
		name string
		lvl  ReturnLevel
		id   byte
	}{
		{"return none", ReturnNone, 1},
		{"return read", ReturnRead, 1},
		{"broadcast", ReturnAll, BroadcastID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, port := newTestBus(tt.lvl)
			// Nothing queued: waiting for a reply would yield ErrNoReply.
			if err := bus.WriteSingle(context.Background(), tt.id, RegLED, 1); err != nil {
				t.Errorf("WriteSingle = %v, want nil", err)
			}
			if len(port.written) != 1 {
				t.Errorf("wrote %d packets, want 1", len(port.written))
			}
		})
	}
}

func TestWriteSingle_ValueOutOfRange(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	err := bus.WriteSingle(context.Background(), 1, RegLED, 256)
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("WriteSingle = %v, want ErrValueOutOfRange", err)
	}
	if len(port.written) != 0 {
		t.Errorf("wrote %d packets, want 0", len(port.written))
	}
}

func TestReadSingle(t *testing.T) {
	bus, port := newTestBus(ReturnRead)
	port.queue(
		statusPacket(11, 0),
		statusPacket(11, 0, 0xFF, 0x03),
		statusPacket(11, 0, 0x2A),
	)
	ctx := context.Background()

	if err := bus.WriteSingle(ctx, 11, RegGoalPosition, 1023); err != nil {
		t.Fatalf("WriteSingle: %v", err)
	}
	// Return level "read" means the write reply above was never consumed;
	// the flush before the read drops it.
	got, err := bus.ReadSingle(ctx, 11, RegGoalPosition)
	if err != nil {
		t.Fatalf("ReadSingle: %v", err)
	}
	if got != 1023 {
		t.Errorf("ReadSingle(goal_position) = %d, want 1023", got)
	}

	got, err = bus.ReadSingle(ctx, 11, RegPresentTemperature)
	if err != nil {
		t.Fatalf("ReadSingle: %v", err)
	}
	if got != 42 {
		t.Errorf("ReadSingle(present_temperature) = %d, want 42", got)
	}

	wantReq := EncodePacket(11, InstRead, []byte{byte(RegPresentTemperature), 1})
	if last := port.written[len(port.written)-1]; string(last) != string(wantReq) {
		t.Errorf("read request = % X, want % X", last, wantReq)
	}
}

func TestReadSingle_WrongRespondent(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	port.queue(statusPacket(12, 0, 0x00, 0x02))

	_, err := bus.ReadSingle(context.Background(), 11, RegPresentPosition)
	if !errors.Is(err, ErrWrongRespondent) {
		t.Errorf("ReadSingle = %v, want ErrWrongRespondent", err)
	}
}

func TestReadSingle_WrongRespondentWithStatusError(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	port.queue(statusPacket(12, 0x04, 0x00, 0x02))

	_, err := bus.ReadSingle(context.Background(), 11, RegPresentPosition)
	if !errors.Is(err, ErrWrongRespondent) {
		t.Errorf("ReadSingle = %v, want ErrWrongRespondent", err)
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Errorf("ReadSingle reported status error from servo %d", se.ID)
	}
}

func TestReadSingle_NoReply(t *testing.T) {
	bus, _ := newTestBus(ReturnNone)
	_, err := bus.ReadSingle(context.Background(), 11, RegPresentPosition)
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("ReadSingle = %v, want ErrNoReply", err)
	}
}

func TestReadSingle_Broadcast(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	if _, err := bus.ReadSingle(context.Background(), BroadcastID, RegID); !errors.Is(err, ErrBroadcastRead) {
		t.Errorf("ReadSingle(broadcast) = %v, want ErrBroadcastRead", err)
	}
	if len(port.written) != 0 {
		t.Errorf("wrote %d packets, want 0", len(port.written))
	}
}

func TestExchange_FlushesOnValidationFailure(t *testing.T) {
	bad := statusPacket(1, 0)
	bad[len(bad)-1] ^= 0xFF
	// Trailing junk stays in the receive buffer until flushed.
	bad = append(bad, 0xAA, 0xBB)

	bus, port := newTestBus(ReturnAll)
	port.queue(bad)

	err := bus.WriteSingle(context.Background(), 1, RegLED, 0)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("WriteSingle = %v, want ErrChecksumMismatch", err)
	}
	if len(port.pending) != 0 {
		t.Errorf("pending = % X after failure, want empty", port.pending)
	}
	// One flush before the request, one after the failure.
	if port.resets != 2 {
		t.Errorf("resets = %d, want 2", port.resets)
	}
}

func TestExchange_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
		want  error
	}{
		{"short", []byte{0xFF, 0xFF, 0x01}, ErrMalformedReply},
		{"bad header", []byte{0x00, 0xFF, 0x01, 0x02, 0x00, 0xFC}, ErrMalformedReply},
		{"overload", statusPacket(1, byte(FaultOverload)), ErrActuatorFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, port := newTestBus(ReturnAll)
			port.queue(tt.reply)
			err := bus.WriteSingle(context.Background(), 1, RegLED, 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("WriteSingle = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExchange_CanceledContext(t *testing.T) {
	bus, port := newTestBus(ReturnAll)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := bus.WriteSingle(ctx, 1, RegLED, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteSingle = %v, want context.Canceled", err)
	}
	if len(port.written) != 0 {
		t.Errorf("wrote %d packets, want 0", len(port.written))
	}
}

func TestSetBaud(t *testing.T) {
	bus, port := newTestBus(ReturnNone)
	ctx := context.Background()

	for _, code := range []int{0, 2, 5, 255} {
		if err := bus.SetBaud(ctx, 1, code); !errors.Is(err, ErrInvalidBaudRate) {
			t.Errorf("SetBaud(%d) = %v, want ErrInvalidBaudRate", code, err)
		}
	}
	if len(port.written) != 0 {
		t.Fatalf("invalid codes wrote %d packets", len(port.written))
	}

	if err := bus.SetBaud(ctx, 1, 34); err != nil {
		t.Fatalf("SetBaud(34): %v", err)
	}
	if rate, _ := BaudRate(34); rate != 57_600 {
		t.Errorf("BaudRate(34) = %d, want 57600", rate)
	}
}

func TestSetReturnLevel(t *testing.T) {
	bus, port := newTestBus(ReturnNone)
	ctx := context.Background()

	if err := bus.SetReturnLevel(ctx, 1, ReturnLevel(3)); !errors.Is(err, ErrInvalidReturnLevel) {
		t.Errorf("SetReturnLevel(3) = %v, want ErrInvalidReturnLevel", err)
	}

	// The new level applies to the request that sets it.
	port.queue(statusPacket(1, 0))
	if err := bus.SetReturnLevel(ctx, 1, ReturnAll); err != nil {
		t.Fatalf("SetReturnLevel: %v", err)
	}
	if bus.ReturnLevel() != ReturnAll {
		t.Errorf("ReturnLevel = %d, want %d", bus.ReturnLevel(), ReturnAll)
	}
}

func TestPing(t *testing.T) {
	bus, port := newTestBus(ReturnNone)
	port.queue(statusPacket(5, 0))
	if err := bus.Ping(context.Background(), 5); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
	if err := bus.Ping(context.Background(), 6); !errors.Is(err, ErrNoReply) {
		t.Errorf("Ping(absent) = %v, want ErrNoReply", err)
	}
}

func TestAngleToPosition(t *testing.T) {
	tests := []struct {
		deg  float64
		want int
	}{
		{0, 512},
		{150, 0},
		{-150, 1023},
		{90, 205},
		{-90, 819},
		{200, 0},
		{-200, 1023},
	}
	for _, tt := range tests {
		got := AngleToPosition(tt.deg * math.Pi / 180)
		if got != tt.want {
			t.Errorf("AngleToPosition(%v°) = %d, want %d", tt.deg, got, tt.want)
		}
	}
}

func TestPositionToAngle_RoundTrip(t *testing.T) {
	for pos := 0; pos <= MaxPosition; pos += 31 {
		if back := AngleToPosition(PositionToAngle(pos)); back != pos {
			t.Errorf("round trip %d -> %d", pos, back)
		}
	}
}
