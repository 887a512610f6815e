// Package sim is an in-memory channel bank. No hardware required.
package sim

import (
	"sync"

	"github.com/coreman2200/fairylights/internal/channel"
)

// Channel records the last rail/level it was given.
type Channel struct {
	mu      sync.Mutex
	state   channel.State
	selects int
	writes  int
}

func (c *Channel) SelectRail(r channel.Rail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Rail = r
	c.selects++
}

func (c *Channel) SetBrightness(l channel.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Level = l
	c.writes++
}

// State returns the current rail/level.
func (c *Channel) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selects counts SelectRail calls.
func (c *Channel) Selects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selects
}

// Writes counts SetBrightness calls.
func (c *Channel) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Bank is a fixed set of sim channels.
type Bank struct {
	chans   []*Channel
	drivers []channel.Driver
	flushes int
	closed  bool

	// FlushErr, if set, is returned by every Flush.
	FlushErr error
}

// NewBank returns n dark channels on the white rail.
func NewBank(n int) *Bank {
	b := &Bank{
		chans:   make([]*Channel, n),
		drivers: make([]channel.Driver, n),
	}
	for i := range b.chans {
		b.chans[i] = &Channel{}
		b.drivers[i] = b.chans[i]
	}
	return b
}

func (b *Bank) Channels() []channel.Driver { return b.drivers }

// Channel returns the concrete sim channel at i.
func (b *Bank) Channel(i int) *Channel { return b.chans[i] }

func (b *Bank) States() []channel.State {
	out := make([]channel.State, len(b.chans))
	for i, c := range b.chans {
		out[i] = c.State()
	}
	return out
}

func (b *Bank) Flush() error {
	b.flushes++
	return b.FlushErr
}

// Flushes counts Flush calls.
func (b *Bank) Flushes() int { return b.flushes }

func (b *Bank) Close() error {
	for _, c := range b.chans {
		c.SetBrightness(0)
	}
	b.closed = true
	return nil
}

func (b *Bank) Closed() bool { return b.closed }
