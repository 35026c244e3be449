package stimd

import (
	"fmt"
	"os"
	"time"

	"github.com/mdouchement/stimd/stimpico"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Debug  bool   `yaml:"debug"`
	Socket string `yaml:"socket"`
	// Port is the serial port of the switchbox; empty means auto-detection
	// by USB VID/PID.
	Port string `yaml:"port"`
	// Tick is the ramp/update scheduler cadence.
	Tick       Duration        `yaml:"tick"`
	UpdateMode UpdateMode      `yaml:"update_mode"`
	Electrode  ElectrodeConfig `yaml:"electrode"`
	Amplitude  ParameterConfig `yaml:"amplitude"`
	Frequency  ParameterConfig `yaml:"frequency"`
}

type ElectrodeConfig struct {
	Mode  ElectrodeMode `yaml:"mode"`
	Count int           `yaml:"count"`
}

type ParameterConfig struct {
	// Value is the initial parameter value at daemon start.
	Value float64 `yaml:"value"`
	// Maximum is the hard ceiling; edits and presets beyond it are
	// rejected at load or call time.
	Maximum float64 `yaml:"maximum"`
	Ramp    struct {
		Max  RampPreset `yaml:"max"`
		Rest RampPreset `yaml:"rest"`
		Min  RampPreset `yaml:"min"`
	} `yaml:"ramp"`
}

// RampPreset is a configured ramp destination: the value the target label
// stands for and the default transition duration. Preset values are not
// ordered between each other, only bounded by the parameter maximum.
type RampPreset struct {
	Value    float64  `yaml:"value"`
	Duration Duration `yaml:"duration"`
}

// Preset resolves a target label for a parameter.
func (c ParameterConfig) Preset(target RampTarget) (RampPreset, error) {
	switch target {
	case TargetMax:
		return c.Ramp.Max, nil
	case TargetRest:
		return c.Ramp.Rest, nil
	case TargetMin:
		return c.Ramp.Min, nil
	}
	return RampPreset{}, fmt.Errorf("%s: unknown ramp target", target)
}

func (c Config) Parameter(param Parameter) (ParameterConfig, error) {
	switch param {
	case Amplitude:
		return c.Amplitude, nil
	case Frequency:
		return c.Frequency, nil
	}
	return ParameterConfig{}, fmt.Errorf("%s: %w", param, ErrNotRampable)
}

func Load(path string) (Config, error) {
	var c Config

	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()

	codec := yaml.NewDecoder(f)
	err = codec.Decode(&c)
	if err != nil {
		return c, err
	}

	//

	if c.Socket == "" {
		return c, fmt.Errorf("socket: no path provided")
	}

	if c.Tick.Duration == 0 {
		c.Tick.Duration = 50 * time.Millisecond
	}
	if c.Tick.Duration < 0 {
		return c, fmt.Errorf("tick: must be positive")
	}

	switch c.UpdateMode {
	case "":
		c.UpdateMode = UpdateLive
	case UpdateLive, UpdateDelayed:
	default:
		return c, fmt.Errorf("update_mode: %s: must be live or delayed", c.UpdateMode)
	}

	switch c.Electrode.Mode {
	case ElectrodeSingle:
		if c.Electrode.Count == 0 {
			c.Electrode.Count = 1
		}
		if c.Electrode.Count != 1 {
			return c, fmt.Errorf("electrode: single mode has exactly one electrode, got %d", c.Electrode.Count)
		}
	case ElectrodeMultiple:
		if c.Electrode.Count < 1 || c.Electrode.Count > stimpico.ChannelCount {
			return c, fmt.Errorf("electrode: count must be in range [1,%d]", stimpico.ChannelCount)
		}
	default:
		return c, fmt.Errorf("electrode: mode %s: must be single or multiple", c.Electrode.Mode)
	}

	if c.Amplitude.Maximum <= 0 || c.Amplitude.Maximum > stimpico.AmplitudeMax {
		return c, fmt.Errorf("amplitude: maximum must be in range (0,%d] mA", stimpico.AmplitudeMax)
	}
	if err = validateParameter(Amplitude, c.Amplitude); err != nil {
		return c, err
	}

	if c.Frequency.Maximum <= 0 {
		return c, fmt.Errorf("frequency: maximum must be positive")
	}
	if err = validateParameter(Frequency, c.Frequency); err != nil {
		return c, err
	}

	return c, nil
}

func validateParameter(param Parameter, c ParameterConfig) error {
	if c.Value < 0 || c.Value > c.Maximum {
		return fmt.Errorf("%s: value %g out of range [0,%g]", param, c.Value, c.Maximum)
	}

	for _, target := range []RampTarget{TargetMax, TargetRest, TargetMin} {
		preset, err := c.Preset(target)
		if err != nil {
			return err
		}

		if preset.Value < 0 || preset.Value > c.Maximum {
			return fmt.Errorf("%s: ramp %s: value %g out of range [0,%g]", param, target, preset.Value, c.Maximum)
		}
		if preset.Duration.Duration < 0 {
			return fmt.Errorf("%s: ramp %s: duration must be non-negative", param, target)
		}
	}

	return nil
}
