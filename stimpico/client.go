package stimpico

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var (
	ErrNotFound = errors.New("device not found/plugged")
	ErrTimeout  = errors.New("no acknowledgement before timeout")
	ErrRejected = errors.New("command rejected by device")
)

// DefaultTimeout bounds the wait for an ACK/NAK after each command. The
// firmware answers within one stimulation period at worst, so a command
// that stays silent this long is a transport fault.
const DefaultTimeout = time.Second

// Client speaks the framed SET_PARAMS protocol with the stimulator
// switchbox. Every command expects exactly one ACK/NAK byte in response;
// commands are idempotent for a given field set so a timed-out command is
// safe to retry.
type Client struct {
	sync    sync.Mutex
	pname   string
	rw      io.ReadWriter
	serial  serial.Port
	log     logger.Logger
	timeout time.Duration
	acks    chan byte
	done    chan struct{}
}

// OpenAuto locates the switchbox by its USB identity (Raspberry Pi Pico
// CDC) and opens it.
func OpenAuto() (*Client, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var port *enumerator.PortDetails
	for _, p := range ports {
		if p.VID == "2e8a" && p.PID == "000a" {
			// The Pico exposes 2 CDC entries for this match; the first one
			// carries the stim protocol.
			port = p
			break
		}
	}
	if port == nil {
		return nil, ErrNotFound
	}

	fmt.Printf("Found stimulator switchbox on %s - PID: %s - VID: %s - SN: %s\n", port.Name, port.VID, port.PID, port.SerialNumber)
	return Open(port.Name)
}

// Open opens the switchbox on the given serial port (115200 8N1).
func Open(port string) (*Client, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err = p.ResetInputBuffer(); err != nil {
		return nil, err
	}
	if err = p.ResetOutputBuffer(); err != nil {
		return nil, err
	}

	c := NewClient(p)
	c.pname = port
	c.serial = p
	return c, nil
}

// NewClient wraps an established transport. Used by Open and by the
// in-process simulated device.
func NewClient(rw io.ReadWriter) *Client {
	c := &Client{
		pname:   "x-pipe",
		rw:      rw,
		timeout: DefaultTimeout,
		acks:    make(chan byte, 8),
		done:    make(chan struct{}),
	}

	go c.readResponses()
	return c
}

func (c *Client) SetLogger(l logger.Logger) {
	c.log = l
}

// SetTimeout overrides the ACK/NAK wait bound.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) Port() string {
	return c.pname
}

func (c *Client) Close() error {
	close(c.done)

	if c.serial != nil {
		if err := c.serial.ResetInputBuffer(); err != nil {
			return err
		}
		if err := c.serial.ResetOutputBuffer(); err != nil {
			return err
		}
		return c.serial.Close()
	}

	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SetParams sends one SET_PARAMS frame carrying the present fields of p and
// waits for the device's acknowledgement.
func (c *Client) SetParams(p Params) error {
	c.sync.Lock()
	defer c.sync.Unlock()

	frame := Encode(CmdSetParams, p)

	if c.log != nil {
		c.log.Debugf("TX % X", frame)
	}

	n, err := c.rw.Write(frame)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("write: short write %d of %d", n, len(frame))
	}

	select {
	case ack := <-c.acks:
		if ack == NakByte {
			return ErrRejected
		}
		return nil
	case <-time.After(c.timeout):
		return ErrTimeout
	}
}

// readResponses drains response bytes off the transport. Only ACK/NAK are
// meaningful; anything else is line noise or firmware debug output and is
// logged away.
func (c *Client) readResponses() {
	buf := make([]byte, 1)
	for {
		n, err := c.rw.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		switch buf[0] {
		case AckByte, NakByte:
			select {
			case c.acks <- buf[0]:
			case <-c.done:
				return
			}
		default:
			if c.log != nil {
				c.log.Debugf("RX stray byte 0x%02X", buf[0])
			}
		}
	}
}
