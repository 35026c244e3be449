package stimpico

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrFraming        = errors.New("invalid frame")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrUnknownCommand = errors.New("unknown command")
)

// Encode builds a frame for the given command and parameter fields.
// Payload fields are ordered channel, amplitude, frequency; multi-byte
// values are little-endian.
func Encode(cmd Command, p Params) []byte {
	b := make([]byte, 3, MaxFrameLen)
	b[0] = StartByte
	b[1] = byte(cmd)
	b[2] = p.Flags()

	if p.Channel != nil {
		b = append(b, *p.Channel)
	}
	if p.Amplitude != nil {
		b = binary.LittleEndian.AppendUint16(b, *p.Amplitude)
	}
	if p.Frequency != nil {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(*p.Frequency))
	}

	b = append(b, Checksum(b), EndByte)
	return b
}

// Decode validates a full frame and extracts its fields. It fails without
// partial effects: a frame that does not validate end to end yields only an
// error. Unknown command codes decode fine; rejecting them is dispatch
// policy, not framing.
func Decode(b []byte) (Frame, error) {
	var f Frame

	if len(b) < MinFrameLen {
		return f, fmt.Errorf("%w: %d bytes", ErrFraming, len(b))
	}
	if len(b) > MaxFrameLen {
		return f, fmt.Errorf("%w: %d bytes exceeds maximum", ErrFraming, len(b))
	}
	if b[0] != StartByte {
		return f, fmt.Errorf("%w: bad start marker 0x%02X", ErrFraming, b[0])
	}
	if b[len(b)-1] != EndByte {
		return f, fmt.Errorf("%w: bad end marker 0x%02X", ErrFraming, b[len(b)-1])
	}

	flags := b[2]
	if flags&^flagsKnown != 0 {
		return f, fmt.Errorf("%w: unknown flag bits 0x%02X", ErrFraming, flags)
	}

	payload := b[3 : len(b)-2]
	if len(payload) != payloadLen(flags) {
		return f, fmt.Errorf("%w: payload length %d does not match flags 0x%02X", ErrFraming, len(payload), flags)
	}

	if sum := Checksum(b[:len(b)-2]); sum != b[len(b)-2] {
		return f, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrChecksum, b[len(b)-2], sum)
	}

	f.Command = Command(b[1])

	if flags&FlagChannel != 0 {
		f.Params.Channel = ToPtr(payload[0])
		payload = payload[1:]
	}
	if flags&FlagAmplitude != 0 {
		f.Params.Amplitude = ToPtr(binary.LittleEndian.Uint16(payload))
		payload = payload[2:]
	}
	if flags&FlagFrequency != 0 {
		f.Params.Frequency = ToPtr(math.Float32frombits(binary.LittleEndian.Uint32(payload)))
	}

	return f, nil
}

// Checksum is the XOR of all bytes from the start marker through the last
// payload byte.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}
