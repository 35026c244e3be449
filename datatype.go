package stimd

import (
	"time"

	"github.com/mdouchement/stimd/stimpico"
)

// Stimulator is the device link used by the controller. It is implemented
// by stimpico.Client for real hardware and by DummyStimulator for dev &
// tests.
type Stimulator interface {
	SetParams(p stimpico.Params) error
	Port() string
	Close() error
}

type Parameter string

const (
	Amplitude Parameter = "amplitude"
	Frequency Parameter = "frequency"
	Channel   Parameter = "channel"
)

// Rampable reports whether the parameter supports timed ramping. The
// channel is a switch selection, not a magnitude: interpolating it would
// sweep the stimulation site across electrodes mid-ramp.
func (p Parameter) Rampable() bool {
	return p == Amplitude || p == Frequency
}

// RampTarget is a user-intent label for a ramp destination. Labels carry
// no ordering constraint: a "max" preset smaller than the "min" preset is
// valid input and ramps downward.
type RampTarget string

const (
	TargetMax  RampTarget = "max"
	TargetRest RampTarget = "rest"
	TargetMin  RampTarget = "min"
	// TargetUpdate marks a ramp spreading a delayed-mode flush over time.
	TargetUpdate RampTarget = "update"
)

type RampStatus string

const (
	RampIdle      RampStatus = "idle"
	RampRunning   RampStatus = "running"
	RampFrozen    RampStatus = "frozen"
	RampCompleted RampStatus = "completed"
)

type UpdateMode string

const (
	// UpdateLive sends every parameter edit to the device immediately.
	UpdateLive UpdateMode = "live"
	// UpdateDelayed accumulates edits locally until an explicit flush.
	UpdateDelayed UpdateMode = "delayed"
)

type ElectrodeMode string

const (
	// ElectrodeSingle has exactly one electrode, auto-enabled whenever
	// stimulation is turned on.
	ElectrodeSingle ElectrodeMode = "single"
	// ElectrodeMultiple never enables an electrode automatically.
	ElectrodeMultiple ElectrodeMode = "multiple"
)

// Sample is one entry of the read-only monitor stream: the current value
// of a parameter and the state of its ramp, if any.
type Sample struct {
	Parameter Parameter  `json:"parameter"`
	Value     float64    `json:"value"`
	Status    RampStatus `json:"ramp_status"`
	Target    RampTarget `json:"ramp_target,omitempty"`
	Progress  float64    `json:"ramp_progress,omitempty"` // 0..1
}

const (
	eventPublish = "publish"
	eventWatch   = "watch"
	eventUnwatch = "unwatch"
)

type event struct {
	name      string
	payload   []byte
	monitorID int64
	monitor   chan<- []byte
}

func ToPtr[T any](v T) *T {
	return &v
}

func genID() int64 {
	time.Sleep(time.Nanosecond)
	return time.Now().UnixNano()
}
