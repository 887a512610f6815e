package pattern

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/coreman2200/fairylights/internal/channel"
)

// Kind names a pattern variant.
type Kind string

const (
	KindOff       Kind = "off"
	KindSolid     Kind = "solid"
	KindSequence  Kind = "sequence"
	KindWave      Kind = "wave"
	KindChaos     Kind = "chaos"
	KindAlternate Kind = "alternate"
)

// Spec carries the construction parameters of any pattern variant.
// Only the fields a variant needs are read.
//
//	solid:     brightness, rail
//	sequence:  period_ms, brightness, rail
//	wave:      frequency, rail
//	chaos:     speed, mode (multi|single), rail (single only)
//	alternate: frequency, brightness
type Spec struct {
	Kind       Kind         `yaml:"kind" json:"kind"`
	Channels   int          `yaml:"channels,omitempty" json:"channels,omitempty"` // 0 = every bound channel
	Brightness int          `yaml:"brightness,omitempty" json:"brightness,omitempty"`
	Rail       channel.Rail `yaml:"rail,omitempty" json:"rail,omitempty"`
	PeriodMs   float64      `yaml:"period_ms,omitempty" json:"period_ms,omitempty"`
	Frequency  float64      `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Speed      float64      `yaml:"speed,omitempty" json:"speed,omitempty"`
	Mode       ChaosMode    `yaml:"mode,omitempty" json:"mode,omitempty"`
}

func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	switch s.Kind {
	case KindSolid:
		fmt.Fprintf(&b, "(%s@%d)", s.Rail, s.Brightness)
	case KindSequence:
		fmt.Fprintf(&b, "(%s@%d, %gms)", s.Rail, s.Brightness, s.PeriodMs)
	case KindWave:
		fmt.Fprintf(&b, "(%s, %gHz)", s.Rail, s.Frequency)
	case KindChaos:
		fmt.Fprintf(&b, "(%s, speed %g)", s.mode(), s.Speed)
	case KindAlternate:
		fmt.Fprintf(&b, "(%gHz@%d)", s.Frequency, s.Brightness)
	}
	return b.String()
}

func (s Spec) mode() ChaosMode {
	if s.Mode == "" {
		return ChaosMulti
	}
	return s.Mode
}

// Validate checks every parameter the variant needs without touching hardware.
func (s Spec) Validate() error {
	if s.Channels < 0 {
		return errors.Wrapf(ErrInvalidSpec, "channel count %d must be >= 0", s.Channels)
	}
	switch s.Kind {
	case KindOff:
		return nil
	case KindSolid:
		_, err := checkBrightness(s.Brightness)
		return err
	case KindSequence:
		if _, err := checkBrightness(s.Brightness); err != nil {
			return err
		}
		return checkPositive("period_ms", s.PeriodMs)
	case KindWave:
		return checkPositive("frequency", s.Frequency)
	case KindChaos:
		if m := s.mode(); m != ChaosMulti && m != ChaosSingle {
			return errors.Wrapf(ErrInvalidSpec, "unknown chaos mode %q", s.Mode)
		}
		return checkPositive("speed", s.Speed)
	case KindAlternate:
		if _, err := checkBrightness(s.Brightness); err != nil {
			return err
		}
		return checkPositive("frequency", s.Frequency)
	case "":
		return errors.Wrap(ErrInvalidSpec, "missing kind")
	}
	return errors.Wrapf(ErrInvalidSpec, "unknown kind %q", s.Kind)
}

// count resolves the declared channel count against the bound channels.
func (s Spec) count(chs []channel.Driver) int {
	if s.Channels == 0 {
		return len(chs)
	}
	return s.Channels
}
