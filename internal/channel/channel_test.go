package channel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRail(t *testing.T) {
	for in, want := range map[string]Rail{"white": White, "Colour": Colour, " color ": Colour, "W": White} {
		got, err := ParseRail(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRail("amber")
	assert.Error(t, err)
}

func TestOutputsZeroInactiveRail(t *testing.T) {
	w, c := State{Rail: White, Level: 90}.Outputs()
	assert.Equal(t, Level(90), w)
	assert.Equal(t, Level(0), c)

	w, c = State{Rail: Colour, Level: 255}.Outputs()
	assert.Equal(t, Level(0), w)
	assert.Equal(t, Level(255), c)
}

func TestRailJSON(t *testing.T) {
	b, err := json.Marshal(State{Rail: Colour, Level: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rail":"colour","level":3}`, string(b))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"rail":"white","level":7}`), &s))
	assert.Equal(t, State{Rail: White, Level: 7}, s)
}
