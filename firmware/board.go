package firmware

import (
	"sync"
	"time"
)

// Board abstracts the switchbox hardware: eight channel select lines, a
// PWM output shaping the amplitude command voltage, and the trigger line
// toward the constant-current stimulator.
type Board interface {
	// SetChannelLine drives one select line, n in 1..8.
	SetChannelLine(n int, high bool)
	// SetDuty writes the amplitude PWM duty cycle, 0..1023.
	SetDuty(duty uint16)
	// PulseTrigger asserts the trigger line for the minimal pulse width
	// (about a microsecond) and deasserts it. One call is one delivered
	// stimulation pulse.
	PulseTrigger()
}

// SimBoard is an in-memory Board for tests and the --sim daemon mode.
type SimBoard struct {
	mu       sync.Mutex
	lines    [ChannelCount]bool
	duty     uint16
	triggers int
	lastAt   time.Time
}

func NewSimBoard() *SimBoard {
	return &SimBoard{}
}

func (b *SimBoard) SetChannelLine(n int, high bool) {
	if n < 1 || n > ChannelCount {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[n-1] = high
}

func (b *SimBoard) SetDuty(duty uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duty = duty
}

func (b *SimBoard) PulseTrigger() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggers++
	b.lastAt = time.Now()
}

// Lines returns a snapshot of the channel select lines, index 0 is
// channel 1.
func (b *SimBoard) Lines() [ChannelCount]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines
}

func (b *SimBoard) Duty() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duty
}

// Triggers returns the number of pulses delivered so far.
func (b *SimBoard) Triggers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.triggers
}
