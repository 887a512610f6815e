package effect

import (
	"github.com/coreman2200/fairylights/internal/channel"
)

// Blink lights one rail for a duty-cycle window inside a repeating period.
// The window opens phaseRatio*period after the start of each cycle.
type Blink struct {
	ch         channel.Driver
	periodMs   float64
	dutyCycle  float64
	phaseRatio float64
	brightness channel.Level
	rail       channel.Rail

	delay      float64 // period * phaseRatio
	onEnd      float64 // delay + period * dutyCycle
	cycleStart Millis
}

// NewBlink validates and binds a blink effect. dutyCycle and phaseRatio are in [0,1].
func NewBlink(ch channel.Driver, periodMs, dutyCycle, phaseRatio float64, brightness channel.Level, rail channel.Rail) (*Blink, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	if !finite(periodMs) || periodMs <= 0 {
		return nil, invalid("blink period %vms must be > 0", periodMs)
	}
	if !finite(dutyCycle) || dutyCycle < 0 || dutyCycle > 1 {
		return nil, invalid("blink duty cycle %v outside [0,1]", dutyCycle)
	}
	if !finite(phaseRatio) || phaseRatio < 0 || phaseRatio > 1 {
		return nil, invalid("blink phase ratio %v outside [0,1]", phaseRatio)
	}
	b := &Blink{
		ch:         ch,
		periodMs:   periodMs,
		dutyCycle:  dutyCycle,
		phaseRatio: phaseRatio,
		brightness: brightness,
		rail:       rail,
		delay:      periodMs * phaseRatio,
		onEnd:      periodMs*phaseRatio + periodMs*dutyCycle,
	}
	ch.SelectRail(rail)
	ch.SetBrightness(brightness)
	return b, nil
}

func (b *Blink) Kind() Kind { return KindBlink }

func (b *Blink) PhaseRatio() float64 { return b.phaseRatio }
func (b *Blink) DutyCycle() float64  { return b.dutyCycle }
func (b *Blink) PeriodMs() float64   { return b.periodMs }

// Update evaluates the cycle position. On rollover the cycle restarts at t and
// the same call is evaluated at the start of the new cycle.
func (b *Blink) Update(t Millis) {
	delta := float64(t - b.cycleStart)
	if delta >= b.periodMs {
		b.cycleStart = t
		delta = 0
	}
	b.ch.SetBrightness(b.levelAt(delta))
}

func (b *Blink) levelAt(delta float64) channel.Level {
	switch {
	case delta < b.delay:
		return 0
	case delta < b.onEnd:
		return b.brightness
	default:
		return 0
	}
}
