package stimd

import (
	"errors"
	"time"
)

var (
	ErrStimInactive = errors.New("stimulation is not active")
	ErrRampActive   = errors.New("a ramp is already running for this parameter")
	ErrNotRampable  = errors.New("parameter does not support ramping")
)

// Ramp drives a time-bounded linear transition of one parameter toward a
// target value. It is a plain state machine over injected clock readings:
// Running ticks interpolate, Freeze captures the in-flight value and stops
// the clock, Resume continues from the accumulated elapsed time, and the
// transition completes once elapsed reaches the duration.
type Ramp struct {
	param     Parameter
	target    RampTarget
	from      float64
	to        float64
	duration  time.Duration
	startedAt time.Time
	elapsed   time.Duration // accumulated across freeze gaps
	ticked    time.Duration // elapsed as of the last Tick
	status    RampStatus
	value     float64
}

func newRamp(param Parameter, target RampTarget, from, to float64, duration time.Duration, now time.Time) *Ramp {
	return &Ramp{
		param:     param,
		target:    target,
		from:      from,
		to:        to,
		duration:  duration,
		startedAt: now,
		status:    RampRunning,
		value:     from,
	}
}

func (r *Ramp) Status() RampStatus {
	return r.status
}

func (r *Ramp) Target() RampTarget {
	return r.target
}

// Value returns the last computed value. After a freeze this is exactly
// the frozen value, verbatim, until resume or quit.
func (r *Ramp) Value() float64 {
	return r.value
}

// Progress returns the completed fraction of the ramp in [0, 1], as of
// the last Tick.
func (r *Ramp) Progress() float64 {
	if r.duration <= 0 {
		return 1
	}
	return min(float64(r.ticked)/float64(r.duration), 1)
}

// Tick recomputes the current value for the given clock reading. While
// Running it interpolates linearly in elapsed/duration between the start
// and target values; direction does not matter. Once elapsed reaches the
// duration the value pins to the target and the status becomes Completed.
func (r *Ramp) Tick(now time.Time) float64 {
	if r.status != RampRunning {
		return r.value
	}

	e := r.elapsed + now.Sub(r.startedAt)
	if r.duration <= 0 || e >= r.duration {
		r.elapsed, r.ticked = r.duration, r.duration
		r.value = r.to
		r.status = RampCompleted
		return r.value
	}

	r.ticked = e
	r.value = r.from + (r.to-r.from)*(float64(e)/float64(r.duration))
	return r.value
}

// Freeze stops the clock, retaining the in-flight value as the effective
// current value. A no-op unless Running.
func (r *Ramp) Freeze(now time.Time) {
	if r.status != RampRunning {
		return
	}

	r.value = r.Tick(now)
	if r.status != RampRunning { // completed on this very tick
		return
	}

	r.elapsed += now.Sub(r.startedAt)
	r.status = RampFrozen
}

// Resume continues a frozen ramp from its accumulated elapsed time, not
// from zero.
func (r *Ramp) Resume(now time.Time) {
	if r.status != RampFrozen {
		return
	}

	r.startedAt = now
	r.status = RampRunning
}
