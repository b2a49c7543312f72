package dynamixel

import "fmt"

// Instruction is the opcode byte of a request packet.
type Instruction byte

const (
	InstPing  Instruction = 0x01
	InstRead  Instruction = 0x02
	InstWrite Instruction = 0x03
)

const (
	// BroadcastID addresses every servo on the bus. Servos never reply to it.
	BroadcastID byte = 0xFE
	// MaxID is the highest individually addressable servo.
	MaxID byte = 0xFD

	headerByte = 0xFF

	// Header(2) + ID + LEN + INSTR/ERR + CHECKSUM.
	packetOverhead = 6
	minReplySize   = 6
	maxPacketSize  = 255 + 4
)

// Checksum computes the protocol checksum of a packet without its trailing
// checksum byte: the complement of the low byte of the sum of everything after
// the two header bytes.
func Checksum(data []byte) byte {
	var sum byte
	for i := 2; i < len(data); i++ {
		sum += data[i]
	}
	return ^sum
}

// EncodePacket frames a request as
// [0xFF, 0xFF, ID, LEN, INSTR, PARAM..., CHECKSUM] with LEN = len(params)+2.
func EncodePacket(id byte, inst Instruction, params []byte) []byte {
	buf := make([]byte, len(params)+packetOverhead)
	buf[0] = headerByte
	buf[1] = headerByte
	buf[2] = id
	buf[3] = byte(len(params) + 2)
	buf[4] = byte(inst)
	copy(buf[5:], params)
	buf[len(buf)-1] = Checksum(buf[:len(buf)-1])
	return buf
}

// writeParams builds the parameter bytes of a write request: the address,
// the low byte of value and, for two-byte registers, the high byte.
func writeParams(reg Register, value int) []byte {
	if reg.Width() == 2 {
		return []byte{byte(reg), byte(value), byte(value >> 8)}
	}
	return []byte{byte(reg), byte(value)}
}

// readParams builds the parameter bytes of a read request: the address and
// the number of bytes to read.
func readParams(reg Register) []byte {
	return []byte{byte(reg), byte(reg.Width())}
}

// ValidateReply checks the framing of a status packet. Checks run in order:
// size, header, checksum, declared length, status byte.
func ValidateReply(buf []byte) error {
	if err := validateFrame(buf); err != nil {
		return err
	}
	return DecodeStatus(buf[2], buf[4])
}

// validateFrame checks size, header, checksum and declared length, leaving
// the status byte alone.
func validateFrame(buf []byte) error {
	n := len(buf)
	if n < minReplySize {
		return fmt.Errorf("%w: %d bytes", ErrMalformedReply, n)
	}
	if buf[0] != headerByte || buf[1] != headerByte {
		return fmt.Errorf("%w: header % X", ErrMalformedReply, buf[:2])
	}
	if sum := Checksum(buf[:n-1]); sum != buf[n-1] {
		return fmt.Errorf("%w: computed %#02x, read %#02x", ErrChecksumMismatch, sum, buf[n-1])
	}
	if int(buf[3])+4 != n {
		return fmt.Errorf("%w: declared %d, read %d bytes", ErrLengthMismatch, buf[3], n)
	}
	return nil
}

// payload returns the parameter bytes of a validated reply.
func payload(reply []byte) []byte {
	return reply[5 : len(reply)-1]
}
