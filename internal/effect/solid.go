package effect

import (
	"github.com/coreman2200/fairylights/internal/channel"
)

// Solid holds a fixed rail and level set at construction.
type Solid struct {
	ch         channel.Driver
	brightness channel.Level
	rail       channel.Rail
}

func NewSolid(ch channel.Driver, brightness channel.Level, rail channel.Rail) (*Solid, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	s := &Solid{ch: ch, brightness: brightness, rail: rail}
	ch.SelectRail(rail)
	ch.SetBrightness(brightness)
	return s, nil
}

func (s *Solid) Kind() Kind { return KindSolid }

func (s *Solid) Update(Millis) {}
