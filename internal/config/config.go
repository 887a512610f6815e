package config

import (
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/pattern"
	"github.com/coreman2200/fairylights/internal/selftest"
	"github.com/coreman2200/fairylights/internal/sequence"
)

// ErrInvalid is the cause of every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	DriverSim   = "sim"
	DriverGPIO  = "gpio"
	DriverStrip = "strip"
)

// PinPair names the white and colour pins of one channel, e.g. GPIO12.
type PinPair struct {
	White  string `yaml:"white"`
	Colour string `yaml:"colour"`
}

type PWM struct {
	FreqHz int       `yaml:"freq_hz,omitempty"`
	Pins   []PinPair `yaml:"pins,omitempty"`
}

type Strip struct {
	PixelsPerChannel int    `yaml:"pixels_per_channel,omitempty"`
	Serpentine       bool   `yaml:"serpentine,omitempty"`
	White            string `yaml:"white,omitempty"`  // #rrggbb
	Colour           string `yaml:"colour,omitempty"` // #rrggbb
}

type Config struct {
	Driver   string `yaml:"driver"` // "gpio" | "strip" | "sim"
	Channels int    `yaml:"channels"`
	FPS      int    `yaml:"fps"`
	LogLevel string `yaml:"log_level,omitempty"`
	Addr     string `yaml:"addr,omitempty"` // preview/health/metrics; empty disables

	PWM   PWM   `yaml:"pwm,omitempty"`
	Strip Strip `yaml:"strip,omitempty"`

	Pattern  pattern.Spec      `yaml:"pattern"`
	Program  *sequence.Program `yaml:"program,omitempty"`
	SelfTest string            `yaml:"self_test,omitempty"`
}

// Default is a six-channel simulated string running a slow wave.
func Default() *Config {
	return &Config{
		Driver:   DriverSim,
		Channels: 6,
		FPS:      60,
		LogLevel: "info",
		Addr:     ":8080",
		PWM:      PWM{FreqHz: 1000},
		Strip: Strip{
			PixelsPerChannel: 10,
			White:            "#fff1d6",
			Colour:           "#3a7bff",
		},
		Pattern: pattern.Spec{Kind: pattern.KindWave, Frequency: 0.25, Rail: channel.White},
	}
}

// Load reads path over the defaults, so absent keys keep their default. The
// pattern is taken whole: a present pattern key starts from an empty Spec.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	def := c.Pattern
	c.Pattern = pattern.Spec{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	var keys struct {
		Pattern *yaml.Node `yaml:"pattern"`
	}
	if err := yaml.Unmarshal(b, &keys); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if keys.Pattern == nil {
		c.Pattern = def
	}
	return c, nil
}

// LoadValid is Load followed by Validate.
func LoadValid(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalid, format, args...)
}

// Validate checks the whole file, including the pattern and program, without
// touching hardware.
func (c *Config) Validate() error {
	if c.Channels <= 0 {
		return invalid("channels %d must be > 0", c.Channels)
	}
	if c.FPS < 0 || c.FPS > 1000 {
		return invalid("fps %d outside [0,1000]", c.FPS)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return invalid("log_level %q", c.LogLevel)
		}
	}
	switch c.Driver {
	case DriverSim:
	case DriverGPIO:
		if len(c.PWM.Pins) != c.Channels {
			return invalid("pwm.pins has %d pairs for %d channels", len(c.PWM.Pins), c.Channels)
		}
		for i, p := range c.PWM.Pins {
			if p.White == "" || p.Colour == "" {
				return invalid("pwm.pins[%d] needs both white and colour", i)
			}
		}
		if c.PWM.FreqHz < 0 {
			return invalid("pwm.freq_hz %d must be >= 0", c.PWM.FreqHz)
		}
	case DriverStrip:
		if c.Strip.PixelsPerChannel <= 0 {
			return invalid("strip.pixels_per_channel %d must be > 0", c.Strip.PixelsPerChannel)
		}
		for name, hex := range map[string]string{"white": c.Strip.White, "colour": c.Strip.Colour} {
			if _, err := colorful.Hex(hex); err != nil {
				return invalid("strip.%s %q is not #rrggbb", name, hex)
			}
		}
	default:
		return invalid("unknown driver %q", c.Driver)
	}
	// a program may stand in for the pattern
	if c.Pattern.Kind != "" || c.Program == nil {
		if err := c.Pattern.Validate(); err != nil {
			return errors.Wrap(err, "pattern")
		}
		if c.Pattern.Channels != 0 && c.Pattern.Channels != c.Channels {
			return invalid("pattern declares %d channels, config has %d", c.Pattern.Channels, c.Channels)
		}
	}
	if c.Program != nil {
		if err := c.Program.Validate(); err != nil {
			return errors.Wrap(err, "program")
		}
	}
	if c.SelfTest != "" {
		if _, err := selftest.ParseKind(c.SelfTest); err != nil {
			return errors.Wrap(ErrInvalid, err.Error())
		}
	}
	return nil
}

// Level is the parsed log level, info when unset.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return l
}
