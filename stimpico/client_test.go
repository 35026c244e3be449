package stimpico

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSetParams(t *testing.T) {
	testCases := []struct {
		name  string
		reply []byte
		err   error
	}{
		{name: "acknowledged", reply: []byte{AckByte}, err: nil},
		{name: "rejected", reply: []byte{NakByte}, err: ErrRejected},
		{name: "silent device", reply: nil, err: ErrTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host, device := net.Pipe()
			defer device.Close()

			c := NewClient(host)
			defer c.Close()
			c.SetTimeout(100 * time.Millisecond)

			params := Params{Channel: ToPtr(uint8(5))}
			want := Encode(CmdSetParams, params)

			received := make(chan []byte, 1)
			go func() {
				buf := make([]byte, len(want))
				if _, err := io.ReadFull(device, buf); err != nil {
					return
				}
				received <- buf

				if tc.reply != nil {
					device.Write(tc.reply)
				}
			}()

			err := c.SetParams(params)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}

			select {
			case frame := <-received:
				assert.Equal(t, want, frame)
			case <-time.After(time.Second):
				t.Fatal("device never received the frame")
			}
		})
	}
}

func TestClientIgnoresStrayBytes(t *testing.T) {
	host, device := net.Pipe()
	defer device.Close()

	c := NewClient(host)
	defer c.Close()
	c.SetTimeout(time.Second)

	go func() {
		buf := make([]byte, MaxFrameLen)
		if _, err := device.Read(buf); err != nil {
			return
		}

		// Firmware debug chatter before the real acknowledgement.
		device.Write([]byte("boot ok\n"))
		device.Write([]byte{AckByte})
	}()

	err := c.SetParams(Params{Amplitude: ToPtr(uint16(0))})
	require.NoError(t, err)
}
