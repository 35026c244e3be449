package firmware

import "github.com/mdouchement/stimd/stimpico"

// AmplitudeDriver maps the logical amplitude to the PWM output shaping the
// stimulator's command voltage.
type AmplitudeDriver struct {
	board Board
}

func NewAmplitudeDriver(board Board) *AmplitudeDriver {
	return &AmplitudeDriver{board: board}
}

// Set writes the duty cycle for the given amplitude in milliamps.
func (d *AmplitudeDriver) Set(milliamps uint16) {
	d.board.SetDuty(DutyFromMilliamps(milliamps))
}

// DutyFromMilliamps linearly maps [0, 1000] mA onto the duty range
// [0, 1023]. Inputs above the domain are clamped by the mapping, not
// rejected.
func DutyFromMilliamps(milliamps uint16) uint16 {
	if milliamps > stimpico.AmplitudeMax {
		milliamps = stimpico.AmplitudeMax
	}
	return uint16(uint32(milliamps) * stimpico.DutyMax / stimpico.AmplitudeMax)
}
