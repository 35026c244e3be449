package stimpico

type Command uint8

// Params is a partial stimulation parameter set. A nil field is absent from
// the frame and left untouched on the device.
type Params struct {
	Channel   *uint8   // 1..8
	Amplitude *uint16  // milliamps
	Frequency *float32 // hertz
}

// Flags returns the bitmask selecting the fields present in p.
func (p Params) Flags() byte {
	var flags byte
	if p.Channel != nil {
		flags |= FlagChannel
	}
	if p.Amplitude != nil {
		flags |= FlagAmplitude
	}
	if p.Frequency != nil {
		flags |= FlagFrequency
	}
	return flags
}

// Empty reports whether no field is present.
func (p Params) Empty() bool {
	return p.Flags() == 0
}

// Frame is a decoded protocol frame.
type Frame struct {
	Command Command
	Params  Params
}

func ToPtr[T any](v T) *T {
	return &v
}
