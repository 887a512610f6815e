package layout

// Layout places channels end to end along one addressable strip, each
// channel owning PixelsPerChannel consecutive pixels.
type Layout struct {
	Channels         int
	PixelsPerChannel int
	// Serpentine reverses every odd channel's span, for strips folded back
	// on themselves between runs.
	Serpentine bool
}

// Index maps pixel px of channel ch to its linear strip index (0..Count-1).
func (l Layout) Index(ch, px int) int {
	if l.Serpentine && ch%2 == 1 {
		px = l.PixelsPerChannel - 1 - px
	}
	return ch*l.PixelsPerChannel + px
}

func (l Layout) Count() int {
	return l.Channels * l.PixelsPerChannel
}

// Span returns the strip indices owned by channel ch, in drawing order.
func (l Layout) Span(ch int) []int {
	out := make([]int, l.PixelsPerChannel)
	for px := range out {
		out[px] = l.Index(ch, px)
	}
	return out
}
