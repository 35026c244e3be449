package stimd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRampLinearInterpolation(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetMax, 0, 100, 2*time.Second, base)

	assert.Equal(t, RampRunning, r.Status())
	assert.Equal(t, float64(0), r.Value())

	assert.InDelta(t, 25, r.Tick(base.Add(500*time.Millisecond)), 1e-9)
	assert.InDelta(t, 50, r.Tick(base.Add(time.Second)), 1e-9)
	assert.InDelta(t, 0.5, r.Progress(), 1e-9)
	assert.Equal(t, RampRunning, r.Status())
}

func TestRampCompletion(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetMax, 0, 100, 2*time.Second, base)

	assert.Equal(t, float64(100), r.Tick(base.Add(2*time.Second)))
	assert.Equal(t, RampCompleted, r.Status())
	assert.Equal(t, float64(1), r.Progress())

	// Further ticks are inert.
	assert.Equal(t, float64(100), r.Tick(base.Add(time.Hour)))
	assert.Equal(t, RampCompleted, r.Status())
}

func TestRampOvershootPinsToTarget(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Frequency, TargetMax, 30, 130, time.Second, base)

	// A late tick never extrapolates past the target.
	assert.Equal(t, float64(130), r.Tick(base.Add(10*time.Second)))
	assert.Equal(t, RampCompleted, r.Status())
}

func TestRampDescending(t *testing.T) {
	base := time.Unix(1000, 0)

	// Target labels carry no ordering: "max" may sit below the start value
	// and the ramp goes downward.
	r := newRamp(Amplitude, TargetMax, 100, 40, 2*time.Second, base)

	assert.InDelta(t, 70, r.Tick(base.Add(time.Second)), 1e-9)
	assert.Equal(t, float64(40), r.Tick(base.Add(2*time.Second)))
	assert.Equal(t, RampCompleted, r.Status())
}

func TestRampZeroDuration(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetRest, 10, 50, 0, base)

	assert.Equal(t, float64(50), r.Tick(base))
	assert.Equal(t, RampCompleted, r.Status())
	assert.Equal(t, float64(1), r.Progress())
}

func TestRampFreezeResume(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetMax, 0, 100, 2*time.Second, base)

	r.Freeze(base.Add(time.Second))
	require.Equal(t, RampFrozen, r.Status())
	assert.InDelta(t, 50, r.Value(), 1e-9)

	// Frozen ramps hold their value verbatim, whatever the clock does.
	assert.InDelta(t, 50, r.Tick(base.Add(90*time.Second)), 1e-9)
	assert.Equal(t, RampFrozen, r.Status())

	// Resuming continues from the accumulated elapsed time: one second in,
	// one second to go.
	r.Resume(base.Add(1500 * time.Millisecond))
	require.Equal(t, RampRunning, r.Status())

	assert.InDelta(t, 75, r.Tick(base.Add(2*time.Second)), 1e-9)
	assert.Equal(t, float64(100), r.Tick(base.Add(2500*time.Millisecond)))
	assert.Equal(t, RampCompleted, r.Status())
}

func TestRampFreezeAfterDurationCompletes(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetMax, 0, 100, time.Second, base)

	r.Freeze(base.Add(2 * time.Second))
	assert.Equal(t, RampCompleted, r.Status())
	assert.Equal(t, float64(100), r.Value())

	// Resume on a completed ramp is a no-op.
	r.Resume(base.Add(3 * time.Second))
	assert.Equal(t, RampCompleted, r.Status())
}

func TestRampFreezeIdempotent(t *testing.T) {
	base := time.Unix(1000, 0)
	r := newRamp(Amplitude, TargetMax, 0, 100, 2*time.Second, base)

	r.Freeze(base.Add(time.Second))
	v := r.Value()

	r.Freeze(base.Add(90 * time.Second))
	assert.Equal(t, v, r.Value())
	assert.Equal(t, RampFrozen, r.Status())
}
