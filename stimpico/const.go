package stimpico

const (
	StartByte byte = 0xAA
	EndByte   byte = 0x55

	// ACK/NAK follow the ASCII control codes the firmware replies with.
	AckByte byte = 0x06
	NakByte byte = 0x15

	// MaxFrameLen bounds a full SET_PARAMS frame:
	// start + cmd + flags + 7 payload bytes + checksum + end.
	MaxFrameLen = 12
	// MinFrameLen is a frame with an empty payload.
	MinFrameLen = 5
)

const (
	CmdSetParams Command = 0x01

	// Other command codes are protocol-reserved and rejected with a NAK.
)

const (
	FlagChannel   byte = 1 << 0
	FlagAmplitude byte = 1 << 1
	FlagFrequency byte = 1 << 2

	flagsKnown = FlagChannel | FlagAmplitude | FlagFrequency
)

const (
	// ChannelCount is the number of output lines on the switch matrix.
	ChannelCount = 8

	// AmplitudeMax is the hardware-safe amplitude ceiling in milliamps.
	AmplitudeMax = 1000
	// DutyMax is the top of the 10-bit PWM range driving the amplitude output.
	DutyMax = 1023
)

// payloadLen returns the payload size selected by the flag bitmask.
func payloadLen(flags byte) int {
	var n int
	if flags&FlagChannel != 0 {
		n++
	}
	if flags&FlagAmplitude != 0 {
		n += 2
	}
	if flags&FlagFrequency != 0 {
		n += 4
	}
	return n
}
