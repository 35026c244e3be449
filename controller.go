package stimd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mdouchement/logger"
	"github.com/mdouchement/stimd/stimpico"
)

// Controller owns the host side of the stimulation session: the current
// parameter set, the electrode selection, the ramp engine and the
// live/delayed update policy. All mutation goes through its methods and
// the scheduler tick under one lock; monitor watchers only ever receive
// snapshot copies.
type Controller struct {
	mu       sync.Mutex
	stim     Stimulator
	cfg      Config
	listener net.Listener
	ticker   *time.Ticker
	events   chan event
	now      func() time.Time

	running       bool
	mode          UpdateMode
	channel       int // 0 means none
	values        map[Parameter]float64
	staged        map[Parameter]float64
	stagedChannel *int
	ramps         map[Parameter]*Ramp
}

func New(cfg Config, stim Stimulator) (*Controller, error) {
	if cfg.Tick.Duration <= 0 {
		cfg.Tick.Duration = 50 * time.Millisecond
	}
	if cfg.UpdateMode == "" {
		cfg.UpdateMode = UpdateLive
	}

	c := &Controller{
		stim:   stim,
		cfg:    cfg,
		ticker: time.NewTicker(cfg.Tick.Duration),
		events: make(chan event, 10),
		now:    time.Now,
		mode:   cfg.UpdateMode,
		values: map[Parameter]float64{
			Amplitude: cfg.Amplitude.Value,
			Frequency: cfg.Frequency.Value,
		},
		staged: make(map[Parameter]float64),
		ramps:  make(map[Parameter]*Ramp),
	}

	err := os.MkdirAll(filepath.Dir(cfg.Socket), 0o755)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if _, err := os.Stat(cfg.Socket); err == nil {
		fmt.Printf("Removing existing %s\n", cfg.Socket)
		os.Remove(cfg.Socket)
	}
	c.listener, err = net.Listen("unix", cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	return c, nil
}

func (c *Controller) Launch(ctx context.Context) {
	log := logger.LogWith(ctx)

	go c.eventLoop(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/monitor", c.monitor(log))
	go func() {
		for {
			log.Info("Starting HTTP server on ", c.listener.Addr().String())
			err := http.Serve(c.listener, mux)
			if err != nil {
				log.WithError(err).Error("Could not serve HTTP")
			}

			select {
			case <-ctx.Done():
				return
			default:
			}
			time.Sleep(2 * time.Second)
		}
	}()

	go func() {
		for {
			select {
			case now := <-c.ticker.C:
				c.tick(now, log)
			case <-ctx.Done():
				c.ticker.Stop()
				if err := c.listener.Close(); err != nil {
					log.WithError(err).Error("Could not close socket listener")
				}
				if err := os.Remove(c.listener.Addr().String()); err != nil && err != os.ErrNotExist {
					// listener.Close() should remove the socket but ceinture et bretelles!
					log.WithError(err).Errorf("Could not remove socket %s", c.listener.Addr().String())
				}

				close(c.events)
				return
			}
		}
	}()
}

// Start turns stimulation on and pushes the full current parameter set to
// the device. In single electrode mode the only electrode is auto-enabled;
// in multiple mode no assumption is made about the active channel.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true

	if c.cfg.Electrode.Mode == ElectrodeSingle && c.channel == 0 {
		c.channel = 1
	}

	p := stimpico.Params{
		Amplitude: stimpico.ToPtr(uint16(math.Round(c.values[Amplitude]))),
		Frequency: stimpico.ToPtr(float32(c.values[Frequency])),
	}
	if c.channel > 0 {
		p.Channel = stimpico.ToPtr(uint8(c.channel))
	}
	c.mu.Unlock()

	return c.stim.SetParams(p)
}

// Stop turns stimulation off. Any ramp in progress is discarded, leaving
// the last published value as the current one, and the device output is
// zeroed so it cannot keep pulsing unattended.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	clear(c.ramps)
	c.mu.Unlock()

	return c.stim.SetParams(stimpico.Params{
		Amplitude: stimpico.ToPtr(uint16(0)),
		Frequency: stimpico.ToPtr(float32(0)),
	})
}

func (c *Controller) SetUpdateMode(mode UpdateMode) error {
	switch mode {
	case UpdateLive, UpdateDelayed:
	default:
		return fmt.Errorf("%s: unknown update mode", mode)
	}

	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetAmplitude(v float64) error {
	return c.setValue(Amplitude, v)
}

func (c *Controller) SetFrequency(v float64) error {
	return c.setValue(Frequency, v)
}

func (c *Controller) setValue(param Parameter, v float64) error {
	pc, err := c.cfg.Parameter(param)
	if err != nil {
		return err
	}
	if v < 0 || v > pc.Maximum {
		return fmt.Errorf("%s: %g out of range [0,%g]", param, v, pc.Maximum)
	}

	c.mu.Lock()
	if r := c.ramps[param]; r != nil && r.Status() == RampRunning {
		c.mu.Unlock()
		return ErrRampActive
	}

	if c.mode == UpdateDelayed {
		c.staged[param] = v
		c.mu.Unlock()
		return nil
	}

	c.values[param] = v
	running := c.running
	c.mu.Unlock()

	if !running {
		// The device pulses autonomously as soon as frequency > 0, so
		// nothing is pushed while stimulation is off. Start sends the full
		// set.
		return nil
	}
	return c.stim.SetParams(fieldParams(param, v))
}

// SetChannel selects the active electrode, 1-based.
func (c *Controller) SetChannel(n int) error {
	if n < 1 || n > c.cfg.Electrode.Count {
		return fmt.Errorf("channel %d out of range [1,%d]", n, c.cfg.Electrode.Count)
	}

	c.mu.Lock()
	if c.mode == UpdateDelayed {
		c.stagedChannel = ToPtr(n)
		c.mu.Unlock()
		return nil
	}

	c.channel = n
	running := c.running
	c.mu.Unlock()

	if !running {
		return nil
	}
	return c.stim.SetParams(stimpico.Params{Channel: stimpico.ToPtr(uint8(n))})
}

// Flush sends the edits accumulated in delayed mode. With a zero duration
// they go out immediately as one command; otherwise amplitude and
// frequency are spread over the duration with the ramp mechanism. The
// channel is a switch selection and always applies at the start of the
// flush.
func (c *Controller) Flush(d time.Duration) error {
	c.mu.Lock()

	if len(c.staged) == 0 && c.stagedChannel == nil {
		c.mu.Unlock()
		return nil
	}

	if d > 0 {
		for param := range c.staged {
			if r := c.ramps[param]; r != nil && r.Status() == RampRunning {
				c.mu.Unlock()
				return ErrRampActive
			}
		}
	}

	var p stimpico.Params
	if c.stagedChannel != nil {
		c.channel = *c.stagedChannel
		c.stagedChannel = nil
		p.Channel = stimpico.ToPtr(uint8(c.channel))
	}

	if d <= 0 {
		if v, ok := c.staged[Amplitude]; ok {
			c.values[Amplitude] = v
			p.Amplitude = stimpico.ToPtr(uint16(math.Round(v)))
		}
		if v, ok := c.staged[Frequency]; ok {
			c.values[Frequency] = v
			p.Frequency = stimpico.ToPtr(float32(v))
		}
		clear(c.staged)
		running := c.running
		c.mu.Unlock()

		if !running {
			return nil
		}
		return c.stim.SetParams(p)
	}

	now := c.now()
	for param, v := range c.staged {
		c.ramps[param] = newRamp(param, TargetUpdate, c.values[param], v, d, now)
	}
	clear(c.staged)
	running := c.running
	c.mu.Unlock()

	if !running || p.Channel == nil {
		return nil
	}
	return c.stim.SetParams(p)
}

// StartRamp begins a transition of param from its current value to the
// configured preset for target. A zero duration falls back to the
// preset's configured duration. Ramps are mutually exclusive per
// parameter while running; a frozen ramp is replaced, its captured value
// having already become the current value.
func (c *Controller) StartRamp(param Parameter, target RampTarget, d time.Duration) error {
	if !param.Rampable() {
		return fmt.Errorf("%s: %w", param, ErrNotRampable)
	}

	pc, err := c.cfg.Parameter(param)
	if err != nil {
		return err
	}
	preset, err := pc.Preset(target)
	if err != nil {
		return err
	}
	if d <= 0 {
		d = preset.Duration.Duration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrStimInactive
	}
	if r := c.ramps[param]; r != nil && r.Status() == RampRunning {
		return ErrRampActive
	}

	c.ramps[param] = newRamp(param, target, c.values[param], preset.Value, d, c.now())
	return nil
}

// FreezeRamps pauses every running ramp, capturing each in-flight value as
// the new effective current value. Stimulation continues uninterrupted at
// the frozen values.
func (c *Controller) FreezeRamps() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for param, r := range c.ramps {
		r.Freeze(now)
		c.values[param] = r.Value()
	}
}

// ResumeRamps continues every frozen ramp from its elapsed time, not from
// zero.
func (c *Controller) ResumeRamps() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, r := range c.ramps {
		r.Resume(now)
	}
}

// QuitRamps discards every ramp. The current values stand as final; no
// further interpolation occurs.
func (c *Controller) QuitRamps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.ramps)
}

// Value returns the current value of a parameter as displayed to
// collaborators.
func (c *Controller) Value(param Parameter) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if param == Channel {
		return float64(c.channel)
	}
	return c.values[param]
}

// Snapshot returns the monitor view: one sample per parameter.
func (c *Controller) Snapshot() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() []Sample {
	samples := make([]Sample, 0, 3)
	for _, param := range []Parameter{Channel, Amplitude, Frequency} {
		s := Sample{Parameter: param, Status: RampIdle}
		if param == Channel {
			s.Value = float64(c.channel)
		} else {
			s.Value = c.values[param]
		}

		if r := c.ramps[param]; r != nil {
			s.Status = r.Status()
			s.Target = r.Target()
			s.Progress = r.Progress()
		}

		samples = append(samples, s)
	}
	return samples
}

// tick is one scheduler pass: recompute every running ramp, publish the
// values to the device when updates are live, and refresh the monitor
// watchers. A completed ramp is published once with its Completed status
// before returning to Idle.
func (c *Controller) tick(now time.Time, log logger.Logger) {
	c.mu.Lock()

	var outs []stimpico.Params
	for param, r := range c.ramps {
		if r.Status() != RampRunning {
			continue
		}

		v := r.Tick(now)
		c.values[param] = v
		if c.running && c.mode == UpdateLive {
			outs = append(outs, fieldParams(param, v))
		}
	}

	payload, err := json.Marshal(c.snapshotLocked())

	for param, r := range c.ramps {
		if r.Status() == RampCompleted {
			log.Infof("Ramp %s to %s completed at %g", param, r.Target(), r.Value())
			delete(c.ramps, param)
		}
	}
	c.mu.Unlock()

	for _, p := range outs {
		if serr := c.stim.SetParams(p); serr != nil {
			// Recoverable: SET_PARAMS is idempotent per field set, the next
			// tick re-publishes the value.
			log.WithError(serr).Error("Could not push ramp update")
		}
	}

	if err != nil {
		log.WithError(err).Error("Could not serialize samples") // Should never happen
		return
	}

	// The monitor stream is best effort: a stalled event loop must never
	// delay the scheduler.
	select {
	case c.events <- event{name: eventPublish, payload: payload}:
	default:
	}
}

func fieldParams(param Parameter, v float64) stimpico.Params {
	switch param {
	case Amplitude:
		return stimpico.Params{Amplitude: stimpico.ToPtr(uint16(math.Round(v)))}
	case Frequency:
		return stimpico.Params{Frequency: stimpico.ToPtr(float32(v))}
	}
	return stimpico.Params{}
}

func (c *Controller) eventLoop(ctx context.Context) {
	log := logger.LogWith(ctx)
	watchers := map[int64]chan<- []byte{}

	for e := range c.events {
		switch e.name {
		case eventPublish:
			for _, watcher := range watchers {
				select {
				case watcher <- e.payload:
				default:
					log.Debug("Dropped sample for slow monitor watcher")
				}
			}
		case eventWatch:
			watchers[e.monitorID] = e.monitor
		case eventUnwatch:
			close(watchers[e.monitorID])
			delete(watchers, e.monitorID)
		}
	}
}

func (c *Controller) monitor(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Monitor client connected")

		// Set http headers required for SSE.
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		disconnected := r.Context().Done()

		id := genID()
		ch := make(chan []byte, 20)
		c.events <- event{name: eventWatch, monitorID: id, monitor: ch}

		rc := http.NewResponseController(w)
		for {
			select {
			case <-disconnected:
				log.Info("Monitor client disconnected")
				c.events <- event{name: eventUnwatch, monitorID: id}
				return
			case payload := <-ch:
				_, err := w.Write(append(payload, '\n', '\n'))
				if err != nil {
					log.WithError(err).Error("Could not write monitor SSE payload")
					return
				}

				err = rc.Flush()
				if err != nil {
					log.WithError(err).Error("Could not flush monitor SSE payload")
					return
				}
			}
		}
	}
}
