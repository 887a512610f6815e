package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexLinear(t *testing.T) {
	l := Layout{Channels: 3, PixelsPerChannel: 4}
	assert.Equal(t, 12, l.Count())
	assert.Equal(t, 0, l.Index(0, 0))
	assert.Equal(t, 7, l.Index(1, 3))
	assert.Equal(t, []int{8, 9, 10, 11}, l.Span(2))
}

func TestIndexSerpentine(t *testing.T) {
	l := Layout{Channels: 3, PixelsPerChannel: 4, Serpentine: true}
	assert.Equal(t, []int{0, 1, 2, 3}, l.Span(0))
	assert.Equal(t, []int{7, 6, 5, 4}, l.Span(1))
	assert.Equal(t, []int{8, 9, 10, 11}, l.Span(2))
}

func TestIndexCoversEveryPixelOnce(t *testing.T) {
	l := Layout{Channels: 5, PixelsPerChannel: 7, Serpentine: true}
	seen := map[int]bool{}
	for ch := 0; ch < l.Channels; ch++ {
		for _, i := range l.Span(ch) {
			assert.False(t, seen[i], "index %d reused", i)
			seen[i] = true
		}
	}
	assert.Len(t, seen, l.Count())
}
