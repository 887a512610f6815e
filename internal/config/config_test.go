package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/pattern"
	"github.com/coreman2200/fairylights/internal/sequence"
)

const sample = `
driver: gpio
channels: 2
fps: 50
pwm:
  freq_hz: 800
  pins:
    - {white: GPIO12, colour: GPIO13}
    - {white: GPIO18, colour: GPIO19}
pattern:
  kind: sequence
  period_ms: 1200
  brightness: 200
  rail: colour
program:
  loop: true
  clips:
    - name: chase
      duration_s: 30
      pattern: {kind: sequence, period_ms: 600, brightness: 255}
    - name: chaos
      duration_s: 60
      pattern: {kind: chaos, speed: 0.002, mode: single, rail: color}
`

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadSample(t *testing.T) {
	c, err := LoadValid(write(t, sample))
	require.NoError(t, err)
	assert.Equal(t, DriverGPIO, c.Driver)
	assert.Equal(t, 50, c.FPS)
	assert.Equal(t, PinPair{White: "GPIO18", Colour: "GPIO19"}, c.PWM.Pins[1])
	assert.Equal(t, pattern.KindSequence, c.Pattern.Kind)
	assert.Equal(t, channel.Colour, c.Pattern.Rail)
	assert.Equal(t, 1200.0, c.Pattern.PeriodMs)

	require.NotNil(t, c.Program)
	require.Len(t, c.Program.Clips, 2)
	assert.True(t, c.Program.Loop)
	assert.Equal(t, pattern.ChaosSingle, c.Program.Clips[1].Pattern.Mode)
	assert.Equal(t, channel.Colour, c.Program.Clips[1].Pattern.Rail)

	// defaults survive for absent keys
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, 10, c.Strip.PixelsPerChannel)
}

func TestLoadPatternIsNotMergedWithDefault(t *testing.T) {
	_, err := LoadValid(write(t, "pattern: {kind: alternate, brightness: 100}\n"))
	require.Error(t, err)
	assert.Equal(t, pattern.ErrInvalidSpec, errors.Cause(err))

	_, err = LoadValid(write(t, "pattern: {brightness: 100}\n"))
	require.Error(t, err)
	assert.Equal(t, pattern.ErrInvalidSpec, errors.Cause(err))

	c, err := LoadValid(write(t, "pattern: {kind: alternate, frequency: 2, brightness: 100}\n"))
	require.NoError(t, err)
	assert.Equal(t, pattern.Spec{Kind: pattern.KindAlternate, Frequency: 2, Brightness: 100}, c.Pattern)

	// absent key keeps the default pattern
	c, err = LoadValid(write(t, "fps: 30\n"))
	require.NoError(t, err)
	assert.Equal(t, Default().Pattern, c.Pattern)
}

func TestSaveRoundTrip(t *testing.T) {
	c := Default()
	c.Program = &sequence.Program{Clips: []sequence.Clip{{Name: "a", DurationS: 1, Pattern: pattern.Spec{Kind: pattern.KindOff}}}}
	p := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(p, c))
	got, err := LoadValid(p)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		Name   string
		Mutate func(*Config)
	}{
		{"no channels", func(c *Config) { c.Channels = 0 }},
		{"fps", func(c *Config) { c.FPS = -1 }},
		{"driver", func(c *Config) { c.Driver = "dmx" }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"gpio pins", func(c *Config) { c.Driver = DriverGPIO }},
		{"strip colour", func(c *Config) { c.Driver = DriverStrip; c.Strip.Colour = "blue" }},
		{"strip pixels", func(c *Config) { c.Driver = DriverStrip; c.Strip.PixelsPerChannel = 0 }},
		{"pattern count", func(c *Config) { c.Pattern.Channels = 3 }},
		{"self test", func(c *Config) { c.SelfTest = "plane_z" }},
	}
	require.NoError(t, Default().Validate())
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			c := Default()
			tc.Mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Equal(t, ErrInvalid, errors.Cause(err))
		})
	}

	c := Default()
	c.Pattern = pattern.Spec{Kind: pattern.KindSolid, Brightness: 400}
	assert.Equal(t, pattern.ErrInvalidSpec, errors.Cause(c.Validate()))
}

func TestLevel(t *testing.T) {
	c := Default()
	c.LogLevel = "debug"
	assert.Equal(t, "debug", c.Level().String())
	c.LogLevel = ""
	assert.Equal(t, "info", c.Level().String())
}
