package pattern

import (
	"math"

	"github.com/pkg/errors"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/effect"
)

// ErrInvalidSpec is the cause of every rejected pattern.
var ErrInvalidSpec = errors.New("invalid pattern")

// Pattern animates a fixed bank of channels in lockstep, one effect per channel.
// A Pattern is never edited after construction; a scheme change builds a new one.
type Pattern struct {
	kind    Kind
	effects []effect.Effect
}

// Update advances every effect to time t, in channel order.
func (p *Pattern) Update(t effect.Millis) {
	for _, e := range p.effects {
		e.Update(t)
	}
}

// Kind is the variant this pattern was built as.
func (p *Pattern) Kind() Kind { return p.kind }

// Len is the channel count.
func (p *Pattern) Len() int { return len(p.effects) }

// Effect returns the effect bound to channel i.
func (p *Pattern) Effect(i int) effect.Effect { return p.effects[i] }

// bindFunc creates the effect for channel i of n.
type bindFunc func(i, n int, ch channel.Driver) (effect.Effect, error)

// build fills exactly n slots or fails. Parameters are validated by callers
// before this runs, so an error here is a programming error in bind.
func build(kind Kind, n int, chs []channel.Driver, bind bindFunc) (*Pattern, error) {
	if err := checkCount(n, chs); err != nil {
		return nil, err
	}
	p := &Pattern{kind: kind, effects: make([]effect.Effect, n)}
	for i := 0; i < n; i++ {
		e, err := bind(i, n, chs[i])
		if err != nil {
			return nil, errors.Wrapf(err, "%s channel %d", kind, i)
		}
		p.effects[i] = e
	}
	return p, nil
}

func checkCount(n int, chs []channel.Driver) error {
	if n <= 0 {
		return errors.Wrapf(ErrInvalidSpec, "channel count %d must be > 0", n)
	}
	if n != len(chs) {
		return errors.Wrapf(ErrInvalidSpec, "pattern declares %d channels but %d are bound", n, len(chs))
	}
	for i, ch := range chs {
		if ch == nil {
			return errors.Wrapf(ErrInvalidSpec, "channel %d is nil", i)
		}
	}
	return nil
}

func checkBrightness(b int) (channel.Level, error) {
	if b < 0 || b > int(channel.MaxLevel) {
		return 0, errors.Wrapf(ErrInvalidSpec, "brightness %d outside [0,255]", b)
	}
	return channel.Level(b), nil
}

func checkPositive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return errors.Wrapf(ErrInvalidSpec, "%s %v must be > 0", name, v)
	}
	return nil
}

// NewSolid gives every channel the same fixed rail and level.
func NewSolid(n int, chs []channel.Driver, brightness int, rail channel.Rail) (*Pattern, error) {
	lvl, err := checkBrightness(brightness)
	if err != nil {
		return nil, err
	}
	return build(KindSolid, n, chs, func(_, _ int, ch channel.Driver) (effect.Effect, error) {
		return effect.NewSolid(ch, lvl, rail)
	})
}

// NewOff is the safe default: every channel dark.
func NewOff(chs []channel.Driver) (*Pattern, error) {
	return build(KindOff, len(chs), chs, func(_, _ int, ch channel.Driver) (effect.Effect, error) {
		return effect.NewSolid(ch, 0, channel.White)
	})
}

// NewSequence chases a single lit channel across the bank once per period.
// Channel i gets dutyCycle 1/n and phaseRatio i/n.
func NewSequence(n int, chs []channel.Driver, periodMs float64, brightness int, rail channel.Rail) (*Pattern, error) {
	lvl, err := checkBrightness(brightness)
	if err != nil {
		return nil, err
	}
	if err := checkPositive("period_ms", periodMs); err != nil {
		return nil, err
	}
	return build(KindSequence, n, chs, func(i, n int, ch channel.Driver) (effect.Effect, error) {
		return effect.NewBlink(ch, periodMs, 1/float64(n), float64(i)/float64(n), lvl, rail)
	})
}

// NewWave runs a travelling brightness wave: channel i is i*360/n degrees behind channel 0.
func NewWave(n int, chs []channel.Driver, frequency float64, rail channel.Rail) (*Pattern, error) {
	if err := checkPositive("frequency", frequency); err != nil {
		return nil, err
	}
	return build(KindWave, n, chs, func(i, n int, ch channel.Driver) (effect.Effect, error) {
		return effect.NewFade(ch, frequency, float64(i)*360/float64(n), rail)
	})
}

// ChaosMode picks between rail-switching and single-rail chaos.
type ChaosMode string

const (
	ChaosMulti  ChaosMode = "multi"
	ChaosSingle ChaosMode = "single"
)

// NewChaos seeds channel i with i so channels diverge on the same recurrence.
// In ChaosSingle mode every channel stays on rail.
func NewChaos(n int, chs []channel.Driver, speed float64, mode ChaosMode, rail channel.Rail) (*Pattern, error) {
	if err := checkPositive("speed", speed); err != nil {
		return nil, err
	}
	switch mode {
	case "", ChaosMulti:
		return build(KindChaos, n, chs, func(i, _ int, ch channel.Driver) (effect.Effect, error) {
			return effect.NewChaos(ch, speed, float64(i))
		})
	case ChaosSingle:
		return build(KindChaos, n, chs, func(i, _ int, ch channel.Driver) (effect.Effect, error) {
			return effect.NewChaosSingle(ch, speed, float64(i), rail)
		})
	}
	return nil, errors.Wrapf(ErrInvalidSpec, "unknown chaos mode %q", mode)
}

// NewAlternate flips every channel between rails together.
func NewAlternate(n int, chs []channel.Driver, frequency float64, brightness int) (*Pattern, error) {
	lvl, err := checkBrightness(brightness)
	if err != nil {
		return nil, err
	}
	if err := checkPositive("frequency", frequency); err != nil {
		return nil, err
	}
	return build(KindAlternate, n, chs, func(_, _ int, ch channel.Driver) (effect.Effect, error) {
		return effect.NewAlternate(ch, frequency, lvl)
	})
}
