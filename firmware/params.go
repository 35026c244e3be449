package firmware

// Params is the single authoritative stimulation parameter set on the
// device. It is owned by the command loop goroutine: only validated
// SET_PARAMS commands mutate it, and only the trigger generator reads the
// frequency back.
type Params struct {
	Channel   uint8   // 0 means none selected
	Amplitude uint16  // milliamps
	Frequency float32 // hertz, 0 disables triggering
}
