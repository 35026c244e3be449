package stimpico

// Parser accumulates transport bytes into raw frames, one byte at a time.
// It hunts for a start marker, then copies bytes into a bounded buffer
// until the frame is complete. Once the flag byte arrives the expected
// length is known, so an end-marker byte inside the payload does not
// terminate the frame early. Frames with unknown flag bits have no
// knowable length and terminate on the first end marker or a full buffer;
// the codec then rejects them.
//
// The parser returns to hunting unconditionally after emitting a frame,
// whether it validates or not.
type Parser struct {
	buf  [MaxFrameLen]byte
	n    int
	want int
}

// Feed consumes one byte. When it completes a frame it returns the raw
// bytes (valid until the next Feed) and true.
func (p *Parser) Feed(b byte) ([]byte, bool) {
	if p.n == 0 {
		if b != StartByte {
			return nil, false
		}
		p.buf[0] = b
		p.n = 1
		return nil, false
	}

	p.buf[p.n] = b
	p.n++

	if p.n == 3 {
		if flags := p.buf[2]; flags&^flagsKnown == 0 {
			p.want = MinFrameLen + payloadLen(flags)
		} else {
			p.want = 0
		}
		return nil, false
	}

	switch {
	case p.want > 0 && p.n == p.want:
		return p.emit()
	case p.want == 0 && p.n >= MinFrameLen && b == EndByte:
		return p.emit()
	case p.n == MaxFrameLen:
		return p.emit()
	}

	return nil, false
}

// Reset drops any partially accumulated frame.
func (p *Parser) Reset() {
	p.n, p.want = 0, 0
}

func (p *Parser) emit() ([]byte, bool) {
	frame := p.buf[:p.n]
	p.n, p.want = 0, 0
	return frame, true
}
