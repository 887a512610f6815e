// Package gpio drives two-rail channels from pairs of PWM pins, one pin per
// rail (typically the two inputs of an H-bridge feeding a fairy-light string).
package gpio

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/coreman2200/fairylights/internal/channel"
)

// DefaultFrequency is the PWM carrier used when none is configured.
const DefaultFrequency = 1 * physic.KiloHertz

// PinNames names the white and colour pins of one channel, e.g. "GPIO12".
type PinNames struct {
	White  string
	Colour string
}

// Pins is a resolved white/colour pin pair.
type Pins struct {
	White  gpio.PinOut
	Colour gpio.PinOut
}

// Channel is one two-rail output.
type Channel struct {
	pins Pins
	freq physic.Frequency

	mu    sync.Mutex
	state channel.State
	err   error
}

func duty(l channel.Level) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(l) / int64(channel.MaxLevel))
}

func (c *Channel) SelectRail(r channel.Rail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Rail = r
	c.apply()
}

func (c *Channel) SetBrightness(l channel.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Level = l
	c.apply()
}

// apply zeroes the inactive pin before driving the active one.
func (c *Channel) apply() {
	active, inactive := c.pins.White, c.pins.Colour
	if c.state.Rail == channel.Colour {
		active, inactive = inactive, active
	}
	c.latch(inactive.PWM(0, c.freq))
	c.latch(active.PWM(duty(c.state.Level), c.freq))
}

func (c *Channel) latch(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

func (c *Channel) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// takeErr returns and clears the first error since the last call.
func (c *Channel) takeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.err
	c.err = nil
	return err
}

func (c *Channel) off() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Level = 0
	if err := c.pins.White.Out(gpio.Low); err != nil {
		return err
	}
	return c.pins.Colour.Out(gpio.Low)
}

// Bank is a set of PWM channels.
type Bank struct {
	chans   []*Channel
	drivers []channel.Driver
}

// NewBank wraps already-resolved pins. Every channel starts dark on the white rail.
func NewBank(pairs []Pins, freq physic.Frequency) (*Bank, error) {
	if len(pairs) == 0 {
		return nil, errors.New("no channels")
	}
	if freq <= 0 {
		freq = DefaultFrequency
	}
	b := &Bank{
		chans:   make([]*Channel, len(pairs)),
		drivers: make([]channel.Driver, len(pairs)),
	}
	for i, p := range pairs {
		if p.White == nil || p.Colour == nil {
			return nil, errors.Errorf("channel %d: missing pin", i)
		}
		c := &Channel{pins: p, freq: freq}
		c.SetBrightness(0)
		if err := c.takeErr(); err != nil {
			return nil, errors.Wrapf(err, "channel %d", i)
		}
		b.chans[i] = c
		b.drivers[i] = c
	}
	return b, nil
}

// Open initialises the host drivers and resolves pins by name.
func Open(names []PinNames, freq physic.Frequency) (*Bank, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host init")
	}
	pairs := make([]Pins, len(names))
	for i, n := range names {
		w, err := lookup(n.White)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d white", i)
		}
		c, err := lookup(n.Colour)
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d colour", i)
		}
		pairs[i] = Pins{White: w, Colour: c}
	}
	return NewBank(pairs, freq)
}

func lookup(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("no such pin %q", name)
	}
	return p, nil
}

func (b *Bank) Channels() []channel.Driver { return b.drivers }

func (b *Bank) States() []channel.State {
	out := make([]channel.State, len(b.chans))
	for i, c := range b.chans {
		out[i] = c.State()
	}
	return out
}

// Flush writes nothing (PWM writes are immediate) but reports latched pin errors.
func (b *Bank) Flush() error {
	for i, c := range b.chans {
		if err := c.takeErr(); err != nil {
			return errors.Wrapf(err, "channel %d", i)
		}
	}
	return nil
}

// Close drives every pin low.
func (b *Bank) Close() error {
	var first error
	for i, c := range b.chans {
		if err := c.off(); err != nil && first == nil {
			first = errors.Wrapf(err, "channel %d", i)
		}
	}
	return first
}
