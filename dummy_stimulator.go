package stimd

import (
	"sync"

	"github.com/mdouchement/logger"
	"github.com/mdouchement/stimd/stimpico"
)

// A DummyStimulator should only be used for dev & tests. It acknowledges
// every command and records what the device would have applied.
type DummyStimulator struct {
	sync      sync.Mutex
	log       logger.Logger
	calls     []stimpico.Params
	channel   uint8
	amplitude uint16
	frequency float32
}

func NewDummyStimulator() *DummyStimulator {
	return &DummyStimulator{}
}

func (s *DummyStimulator) SetLogger(l logger.Logger) {
	s.log = l
}

func (s *DummyStimulator) Port() string {
	return "x-testing"
}

func (s *DummyStimulator) Close() error {
	return nil
}

func (s *DummyStimulator) SetParams(p stimpico.Params) error {
	s.sync.Lock()
	defer s.sync.Unlock()

	s.calls = append(s.calls, p)

	if p.Channel != nil {
		if n := *p.Channel; n >= 1 && n <= stimpico.ChannelCount {
			s.channel = n
		}
	}
	if p.Amplitude != nil {
		s.amplitude = *p.Amplitude
	}
	if p.Frequency != nil {
		s.frequency = *p.Frequency
	}

	if s.log != nil {
		s.log.Debugf("dummy set_params flags=0x%02X", p.Flags())
	}

	return nil
}

// Calls returns a copy of every SetParams invocation so far.
func (s *DummyStimulator) Calls() []stimpico.Params {
	s.sync.Lock()
	defer s.sync.Unlock()

	calls := make([]stimpico.Params, len(s.calls))
	copy(calls, s.calls)
	return calls
}

func (s *DummyStimulator) Channel() uint8 {
	s.sync.Lock()
	defer s.sync.Unlock()
	return s.channel
}

func (s *DummyStimulator) Amplitude() uint16 {
	s.sync.Lock()
	defer s.sync.Unlock()
	return s.amplitude
}

func (s *DummyStimulator) Frequency() float32 {
	s.sync.Lock()
	defer s.sync.Unlock()
	return s.frequency
}
