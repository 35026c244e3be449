package stimd

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()

	f, err := os.CreateTemp("", "stimd_config_*.yml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(f.Name()) })

	_, err = f.WriteString(yaml)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return f.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
debug: true
socket: /run/stimd/stimd.sock
port: /dev/ttyACM0
tick: 20ms
update_mode: delayed
electrode:
  mode: multiple
  count: 4
amplitude:
  value: 0
  maximum: 650
  ramp:
    max:
      value: 100
      duration: 15s
    rest:
      value: 50
      duration: 10s
    min:
      value: 10
      duration: 10s
frequency:
  value: 30
  maximum: 500
  ramp:
    max:
      value: 130
      duration: 30s
    rest:
      value: 30
      duration: 20s
    min:
      value: 1
      duration: 20s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "/run/stimd/stimd.sock", cfg.Socket)
	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, 20*time.Millisecond, cfg.Tick.Duration)
	assert.Equal(t, UpdateDelayed, cfg.UpdateMode)
	assert.Equal(t, ElectrodeMultiple, cfg.Electrode.Mode)
	assert.Equal(t, 4, cfg.Electrode.Count)
	assert.Equal(t, float64(650), cfg.Amplitude.Maximum)
	assert.Equal(t, float64(100), cfg.Amplitude.Ramp.Max.Value)
	assert.Equal(t, 15*time.Second, cfg.Amplitude.Ramp.Max.Duration.Duration)
	assert.Equal(t, float64(30), cfg.Frequency.Value)
	assert.Equal(t, float64(1), cfg.Frequency.Ramp.Min.Value)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
socket: /tmp/stimd.sock
electrode:
  mode: single
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Tick.Duration)
	assert.Equal(t, UpdateLive, cfg.UpdateMode)
	assert.Equal(t, 1, cfg.Electrode.Count)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "missing socket",
			yaml: `
electrode:
  mode: single
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "socket",
		},
		{
			name: "unknown update mode",
			yaml: `
socket: /tmp/stimd.sock
update_mode: batch
electrode:
  mode: single
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "update_mode",
		},
		{
			name: "unknown electrode mode",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: dual
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "electrode",
		},
		{
			name: "single mode with several electrodes",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: single
  count: 2
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "single mode",
		},
		{
			name: "multiple mode count too high",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: multiple
  count: 9
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "count must be in range",
		},
		{
			name: "amplitude maximum above hardware limit",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: single
amplitude:
  maximum: 1500
frequency:
  maximum: 500
`,
			err: "amplitude",
		},
		{
			name: "preset value above maximum",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: single
amplitude:
  maximum: 1000
  ramp:
    max:
      value: 1200
      duration: 10s
frequency:
  maximum: 500
`,
			err: "out of range",
		},
		{
			name: "negative preset duration",
			yaml: `
socket: /tmp/stimd.sock
electrode:
  mode: single
amplitude:
  maximum: 1000
  ramp:
    rest:
      value: 50
      duration: -10s
frequency:
  maximum: 500
`,
			err: "duration must be non-negative",
		},
		{
			name: "negative tick",
			yaml: `
socket: /tmp/stimd.sock
tick: -50ms
electrode:
  mode: single
amplitude:
  maximum: 1000
frequency:
  maximum: 500
`,
			err: "tick",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/stimd.yml")
	require.Error(t, err)
}
