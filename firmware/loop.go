package firmware

import (
	"context"
	"io"
	"time"

	"github.com/mdouchement/logger"
	"github.com/mdouchement/stimd/stimpico"
)

// pollInterval is the cadence of the cooperative loop when no bytes are
// pending. It bounds trigger jitter well below the shortest supported
// stimulation period (2ms at 500Hz).
const pollInterval = 500 * time.Microsecond

// Controller runs the device side of the protocol: a single-threaded
// cooperative loop that drains transport bytes, dispatches validated
// commands, acknowledges each attempted frame, and fires trigger pulses on
// a monotonic schedule. Draining precedes the trigger check so command
// processing is prioritized within a pass, and the trigger schedule uses
// next-due comparisons instead of a blocking sleep, so command latency does
// not depend on the stimulation period.
type Controller struct {
	rw        io.ReadWriter
	board     Board
	log       logger.Logger
	now       func() time.Time
	parser    stimpico.Parser
	channels  *ChannelBank
	amplitude *AmplitudeDriver
	params    Params
	next      time.Time
	in        chan byte
}

func New(rw io.ReadWriter, board Board) *Controller {
	return &Controller{
		rw:        rw,
		board:     board,
		now:       time.Now,
		channels:  NewChannelBank(board),
		amplitude: NewAmplitudeDriver(board),
		in:        make(chan byte, 256),
	}
}

func (c *Controller) SetLogger(l logger.Logger) {
	c.log = l
}

// Params returns a copy of the current parameter set.
func (c *Controller) Params() Params {
	return c.params
}

// Run drives the loop until ctx is cancelled. On shutdown all channel
// lines are cleared and the amplitude output is zeroed.
func (c *Controller) Run(ctx context.Context) {
	go c.readTransport(ctx)

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			c.channels.AllOff()
			c.board.SetDuty(0)
			return
		case b := <-c.in:
			c.feed(b)
			c.drain()
		case <-tick.C:
			c.drain()
		}

		c.service(c.now())
	}
}

// drain consumes every byte currently buffered, without blocking.
func (c *Controller) drain() {
	for {
		select {
		case b := <-c.in:
			c.feed(b)
		default:
			return
		}
	}
}

func (c *Controller) feed(b byte) {
	frame, ok := c.parser.Feed(b)
	if !ok {
		return
	}
	c.handleFrame(frame)
}

// handleFrame decodes and dispatches one accumulated frame, answering with
// a single ACK or NAK. State is only mutated once the whole frame has
// validated.
func (c *Controller) handleFrame(raw []byte) {
	frame, err := stimpico.Decode(raw)
	if err != nil {
		if c.log != nil {
			c.log.WithError(err).Debugf("RX rejected frame % X", raw)
		}
		c.respond(stimpico.NakByte)
		return
	}

	if frame.Command != stimpico.CmdSetParams {
		if c.log != nil {
			c.log.Debugf("RX unknown command 0x%02X", byte(frame.Command))
		}
		c.respond(stimpico.NakByte)
		return
	}

	c.apply(frame.Params)
	c.respond(stimpico.AckByte)
}

// apply mutates device state for the fields flagged present. An
// out-of-range channel leaves the selection untouched but does not fail
// the command.
func (c *Controller) apply(p stimpico.Params) {
	if p.Channel != nil {
		c.channels.Select(int(*p.Channel))
		c.params.Channel = uint8(c.channels.Active())
	}

	if p.Amplitude != nil {
		c.params.Amplitude = *p.Amplitude
		c.amplitude.Set(*p.Amplitude)
	}

	if p.Frequency != nil {
		c.params.Frequency = *p.Frequency
		// Restart the schedule so the new period takes effect now, first
		// pulse on the next pass.
		c.next = c.now()
	}
}

// service fires at most one trigger pulse per pass, gated by the current
// frequency and the monotonic next-due time.
func (c *Controller) service(now time.Time) {
	if c.params.Frequency <= 0 {
		return
	}
	if now.Before(c.next) {
		return
	}

	c.board.PulseTrigger()

	period := time.Duration(float64(time.Second) / float64(c.params.Frequency))
	c.next = c.next.Add(period)
	if c.next.Before(now) {
		// More than a full period behind; re-anchor rather than bursting
		// pulses to catch up.
		c.next = now.Add(period)
	}
}

func (c *Controller) respond(b byte) {
	if _, err := c.rw.Write([]byte{b}); err != nil && c.log != nil {
		c.log.WithError(err).Error("Could not write response")
	}
}

func (c *Controller) readTransport(ctx context.Context) {
	buf := make([]byte, 64)
	for {
		n, err := c.rw.Read(buf)
		if err != nil {
			return
		}

		for _, b := range buf[:n] {
			select {
			case c.in <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}
