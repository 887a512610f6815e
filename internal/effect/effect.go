package effect

import (
	"math"

	"github.com/pkg/errors"

	"github.com/coreman2200/fairylights/internal/channel"
)

// Millis is the frame clock in milliseconds. It wraps after ~49.7 days;
// all interval math uses unsigned subtraction so the wrap is harmless.
type Millis uint32

// ErrInvalidParam is the cause of every constructor rejection.
var ErrInvalidParam = errors.New("invalid effect parameter")

// Kind enumerates the closed set of effect variants.
type Kind uint8

const (
	KindFade Kind = iota
	KindAlternate
	KindBlink
	KindSolid
	KindChaos
	KindChaosSingle
)

func (k Kind) String() string {
	switch k {
	case KindFade:
		return "fade"
	case KindAlternate:
		return "alternate"
	case KindBlink:
		return "blink"
	case KindSolid:
		return "solid"
	case KindChaos:
		return "chaos"
	case KindChaosSingle:
		return "chaos-single"
	}
	return "unknown"
}

// Effect maps time to a (rail, level) pair on the one channel it is bound to.
// Update runs in bounded time and never fails.
type Effect interface {
	Kind() Kind
	Update(t Millis)
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidParam, format, args...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkChannel(ch channel.Driver) error {
	if ch == nil {
		return invalid("nil channel")
	}
	return nil
}

// toLevel scales a unit value to a drive level, rounding and clamping.
func toLevel(unit float64) channel.Level {
	v := math.Round(255 * unit)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return channel.MaxLevel
	}
	return channel.Level(v)
}
