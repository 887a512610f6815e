// Package strip mirrors two-rail channels onto an addressable LED strip. Each
// channel lights its span of pixels in the colour of its active rail, scaled
// by its level.
package strip

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/layout"
)

const (
	DefaultWhite  = "#fff1d6"
	DefaultColour = "#3a7bff"
)

// BitRate is the SPI clock nrzled requires to encode WS281x bits.
const BitRate = 2500 * physic.KiloHertz

// Options configures a strip Bank.
type Options struct {
	Layout layout.Layout
	White  colorful.Color
	Colour colorful.Color
}

// ParseColour reads a #rrggbb rail colour.
func ParseColour(hex string) (colorful.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, errors.Wrapf(err, "rail colour %q", hex)
	}
	return c, nil
}

// DefaultOptions gives n channels of px pixels with the default rail colours.
func DefaultOptions(n, px int) Options {
	w, _ := colorful.Hex(DefaultWhite)
	c, _ := colorful.Hex(DefaultColour)
	return Options{
		Layout: layout.Layout{Channels: n, PixelsPerChannel: px},
		White:  w,
		Colour: c,
	}
}

// Channel holds the state that the next Flush paints.
type Channel struct {
	mu    sync.Mutex
	state channel.State
}

func (c *Channel) SelectRail(r channel.Rail) {
	c.mu.Lock()
	c.state.Rail = r
	c.mu.Unlock()
}

func (c *Channel) SetBrightness(l channel.Level) {
	c.mu.Lock()
	c.state.Level = l
	c.mu.Unlock()
}

func (c *Channel) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Bank paints channels onto a display.Drawer.
type Bank struct {
	drawer  display.Drawer
	port    io.Closer
	opts    Options
	chans   []*Channel
	drivers []channel.Driver
	img     *image.NRGBA

	mu sync.Mutex
}

// NewBank binds Layout.Channels channels to d.
func NewBank(d display.Drawer, opts Options) (*Bank, error) {
	if d == nil {
		return nil, errors.New("nil drawer")
	}
	if opts.Layout.Channels <= 0 || opts.Layout.PixelsPerChannel <= 0 {
		return nil, errors.Errorf("empty layout %dx%d", opts.Layout.Channels, opts.Layout.PixelsPerChannel)
	}
	b := &Bank{
		drawer:  d,
		opts:    opts,
		chans:   make([]*Channel, opts.Layout.Channels),
		drivers: make([]channel.Driver, opts.Layout.Channels),
		img:     image.NewNRGBA(image.Rect(0, 0, opts.Layout.Count(), 1)),
	}
	for i := range b.chans {
		c := &Channel{}
		b.chans[i] = c
		b.drivers[i] = c
	}
	return b, nil
}

// Open drives a WS281x strip on the first SPI port. Without one it prints
// frames to the console and reports console=true.
func Open(opts Options) (b *Bank, console bool, err error) {
	if _, err := host.Init(); err != nil {
		return nil, false, errors.Wrap(err, "host init")
	}
	n := opts.Layout.Count()
	port, err := spireg.Open("")
	if err != nil {
		b, err := NewBank(screen.New(n), opts)
		return b, true, err
	}
	o := nrzOpts(n)
	d, err := nrzled.NewSPI(port, &o)
	if err != nil {
		port.Close()
		return nil, false, errors.Wrap(err, "nrzled")
	}
	b, err = NewBank(d, opts)
	if err != nil {
		port.Close()
		return nil, false, err
	}
	b.port = port
	return b, false, nil
}

// nrzOpts is an RGB strip of n pixels at BitRate.
func nrzOpts(n int) nrzled.Opts {
	o := nrzled.DefaultOpts
	o.NumPixels = n
	o.Channels = 3
	o.Freq = BitRate
	return o
}

func (b *Bank) Channels() []channel.Driver { return b.drivers }

func (b *Bank) States() []channel.State {
	out := make([]channel.State, len(b.chans))
	for i, c := range b.chans {
		out[i] = c.State()
	}
	return out
}

// Pixel is the colour channel state s paints.
func (b *Bank) Pixel(s channel.State) color.NRGBA {
	c := b.opts.White
	if s.Rail == channel.Colour {
		c = b.opts.Colour
	}
	f := float64(s.Level) / float64(channel.MaxLevel)
	r, g, bl := colorful.Color{R: c.R * f, G: c.G * f, B: c.B * f}.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: 0xff}
}

func (b *Bank) paint(states []channel.State) {
	for i, s := range states {
		px := b.Pixel(s)
		for _, idx := range b.opts.Layout.Span(i) {
			b.img.SetNRGBA(idx, 0, px)
		}
	}
}

// Flush pushes the current channel states to the strip in one draw.
func (b *Bank) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paint(b.States())
	if err := b.drawer.Draw(b.drawer.Bounds(), b.img, image.Point{}); err != nil {
		return errors.Wrap(err, "draw")
	}
	return nil
}

// Close blanks the strip and releases the port.
func (b *Bank) Close() error {
	for _, c := range b.chans {
		c.SetBrightness(0)
	}
	err := b.Flush()
	if herr := b.drawer.Halt(); err == nil && herr != nil {
		err = errors.Wrap(herr, "halt")
	}
	if b.port != nil {
		if cerr := b.port.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close port")
		}
	}
	return err
}
