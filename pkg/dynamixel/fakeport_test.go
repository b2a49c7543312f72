package dynamixel

// fakePort plays back one queued reply per written packet. Read returns
// (0, nil) once the pending bytes run out, like a serial port whose read
// timeout expired.
type fakePort struct {
	written [][]byte
	replies [][]byte
	pending []byte
	resets  int
	closed  bool
}

func (p *fakePort) queue(replies ...[]byte) {
	p.replies = append(p.replies, replies...)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written = append(p.written, append([]byte(nil), b...))
	if len(p.replies) > 0 {
		p.pending = append(p.pending, p.replies[0]...)
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	p.pending = nil
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

// statusPacket builds a reply; the status byte sits where a request carries
// its instruction.
func statusPacket(id, status byte, params ...byte) []byte {
	return EncodePacket(id, Instruction(status), params)
}
