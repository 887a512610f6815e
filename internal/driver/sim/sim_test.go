package sim

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/fairylights/internal/channel"
)

func TestChannelTracksWrites(t *testing.T) {
	b := NewBank(2)
	ch := b.Channels()[1]
	ch.SelectRail(channel.Colour)
	ch.SetBrightness(33)
	ch.SetBrightness(34)

	assert.Equal(t, channel.State{Rail: channel.Colour, Level: 34}, b.Channel(1).State())
	assert.Equal(t, 1, b.Channel(1).Selects())
	assert.Equal(t, 2, b.Channel(1).Writes())
	assert.Equal(t, channel.State{}, b.States()[0])
}

func TestFlushAndClose(t *testing.T) {
	b := NewBank(1)
	assert.NoError(t, b.Flush())
	b.FlushErr = errors.New("stuck")
	assert.Error(t, b.Flush())
	assert.Equal(t, 2, b.Flushes())

	b.Channels()[0].SetBrightness(200)
	assert.NoError(t, b.Close())
	assert.True(t, b.Closed())
	assert.Equal(t, channel.Level(0), b.States()[0].Level)
}
