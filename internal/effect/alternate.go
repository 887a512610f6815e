package effect

import (
	"github.com/coreman2200/fairylights/internal/channel"
)

// Alternate flips between the white and colour rail at a fixed rate.
// Above ~30 Hz both rails appear lit at once.
type Alternate struct {
	ch         channel.Driver
	frequency  float64
	intervalMs float64
	brightness channel.Level

	lastFlip Millis
	rail     channel.Rail
}

// NewAlternate starts on the white rail at the given brightness.
func NewAlternate(ch channel.Driver, frequency float64, brightness channel.Level) (*Alternate, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	if !finite(frequency) || frequency <= 0 {
		return nil, invalid("alternate frequency %v must be > 0", frequency)
	}
	a := &Alternate{
		ch:         ch,
		frequency:  frequency,
		intervalMs: 1000 / frequency,
		brightness: brightness,
		rail:       channel.White,
	}
	ch.SelectRail(a.rail)
	ch.SetBrightness(brightness)
	return a, nil
}

func (a *Alternate) Kind() Kind { return KindAlternate }

// Rail is the rail currently selected.
func (a *Alternate) Rail() channel.Rail { return a.rail }

// Update flips at most once per call; missed flips after a stall are not replayed.
func (a *Alternate) Update(t Millis) {
	if float64(t-a.lastFlip) <= a.intervalMs {
		return
	}
	if a.rail == channel.White {
		a.rail = channel.Colour
	} else {
		a.rail = channel.White
	}
	a.lastFlip = t
	a.ch.SelectRail(a.rail)
}
