package stimpico

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
		want   []byte
	}{
		{
			name:   "channel only",
			params: Params{Channel: ToPtr(uint8(5))},
			want:   []byte{0xAA, 0x01, 0x01, 0x05, 0xAF, 0x55},
		},
		{
			name:   "amplitude zero",
			params: Params{Amplitude: ToPtr(uint16(0))},
			want:   []byte{0xAA, 0x01, 0x02, 0x00, 0x00, 0xA9, 0x55},
		},
		{
			name: "all fields",
			params: Params{
				Channel:   ToPtr(uint8(5)),
				Amplitude: ToPtr(uint16(100)),
				Frequency: ToPtr(float32(1000)),
			},
			want: []byte{0xAA, 0x01, 0x07, 0x05, 0x64, 0x00, 0x00, 0x00, 0x7A, 0x44, 0xF3, 0x55},
		},
		{
			name:   "no fields",
			params: Params{},
			want:   []byte{0xAA, 0x01, 0x00, 0xAB, 0x55},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Encode(CmdSetParams, tc.params))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		params Params
	}{
		{name: "empty", params: Params{}},
		{name: "channel", params: Params{Channel: ToPtr(uint8(8))}},
		{name: "amplitude", params: Params{Amplitude: ToPtr(uint16(1000))}},
		{name: "frequency", params: Params{Frequency: ToPtr(float32(0.5))}},
		{
			name:   "channel and amplitude",
			params: Params{Channel: ToPtr(uint8(1)), Amplitude: ToPtr(uint16(42))},
		},
		{
			name:   "amplitude and frequency",
			params: Params{Amplitude: ToPtr(uint16(650)), Frequency: ToPtr(float32(130))},
		},
		{
			name: "all fields",
			params: Params{
				Channel:   ToPtr(uint8(3)),
				Amplitude: ToPtr(uint16(500)),
				Frequency: ToPtr(float32(60)),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := Decode(Encode(CmdSetParams, tc.params))
			require.NoError(t, err)

			assert.Equal(t, CmdSetParams, frame.Command)
			assert.Equal(t, tc.params, frame.Params)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		frame []byte
		err   error
	}{
		{
			name:  "too short",
			frame: []byte{0xAA, 0x01, 0x00, 0x55},
			err:   ErrFraming,
		},
		{
			name:  "too long",
			frame: []byte{0xAA, 0x01, 0x07, 0x05, 0x64, 0x00, 0x00, 0x00, 0x7A, 0x44, 0x00, 0xF3, 0x55},
			err:   ErrFraming,
		},
		{
			name:  "bad start marker",
			frame: []byte{0xAB, 0x01, 0x01, 0x05, 0xAF, 0x55},
			err:   ErrFraming,
		},
		{
			name:  "bad end marker",
			frame: []byte{0xAA, 0x01, 0x01, 0x05, 0xAF, 0x56},
			err:   ErrFraming,
		},
		{
			name:  "unknown flag bits",
			frame: []byte{0xAA, 0x01, 0x08, 0xA3, 0x55},
			err:   ErrFraming,
		},
		{
			name:  "payload shorter than flags",
			frame: []byte{0xAA, 0x01, 0x02, 0x00, 0xA9, 0x55},
			err:   ErrFraming,
		},
		{
			name:  "checksum mismatch",
			frame: []byte{0xAA, 0x01, 0x01, 0x05, 0xAE, 0x55},
			err:   ErrChecksum,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.frame)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestDecodeSingleBitCorruption(t *testing.T) {
	reference := Encode(CmdSetParams, Params{
		Channel:   ToPtr(uint8(5)),
		Amplitude: ToPtr(uint16(100)),
		Frequency: ToPtr(float32(1000)),
	})

	for i := range reference {
		for bit := range 8 {
			frame := make([]byte, len(reference))
			copy(frame, reference)
			frame[i] ^= 1 << bit

			_, err := Decode(frame)
			assert.Errorf(t, err, "byte %d bit %d flipped", i, bit)
		}
	}
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, byte(0x00), Checksum(nil))
	assert.Equal(t, byte(0xAF), Checksum([]byte{0xAA, 0x01, 0x01, 0x05}))
	assert.Equal(t, byte(0xA9), Checksum([]byte{0xAA, 0x01, 0x02, 0x00, 0x00}))
}
