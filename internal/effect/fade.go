package effect

import (
	"math"

	"github.com/coreman2200/fairylights/internal/channel"
)

// Fade pulses one rail along a raised cosine.
type Fade struct {
	ch        channel.Driver
	frequency float64 // oscillations per second
	phaseDeg  float64
	phaseRad  float64
	rail      channel.Rail
}

// NewFade binds a fade to ch. frequency must be > 0.
func NewFade(ch channel.Driver, frequency, phaseDeg float64, rail channel.Rail) (*Fade, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	if !finite(frequency) || frequency <= 0 {
		return nil, invalid("fade frequency %v must be > 0", frequency)
	}
	if !finite(phaseDeg) {
		return nil, invalid("fade phase %v is not finite", phaseDeg)
	}
	f := &Fade{
		ch:        ch,
		frequency: frequency,
		phaseDeg:  phaseDeg,
		phaseRad:  phaseDeg * math.Pi / 180,
		rail:      rail,
	}
	ch.SelectRail(rail)
	return f, nil
}

func (f *Fade) Kind() Kind { return KindFade }

// PhaseDegrees returns the construction phase offset.
func (f *Fade) PhaseDegrees() float64 { return f.phaseDeg }

// Frequency returns oscillations per second.
func (f *Fade) Frequency() float64 { return f.frequency }

// Level is the pure time -> level mapping used by Update.
func (f *Fade) Level(t Millis) channel.Level {
	seconds := float64(t) / 1000
	v := math.Cos(2*math.Pi*f.frequency*seconds + f.phaseRad)
	return toLevel((v + 1) / 2)
}

func (f *Fade) Update(t Millis) {
	f.ch.SetBrightness(f.Level(t))
}
