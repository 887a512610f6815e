package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/engine"
	"github.com/coreman2200/fairylights/internal/pattern"
)

func TestPrintFrame(t *testing.T) {
	var buf bytes.Buffer
	printFrame(&buf, engine.Frame{T: 42, Pattern: "off", States: []channel.State{
		{Rail: channel.White, Level: 7},
		{Rail: channel.Colour, Level: 255},
	}})
	assert.Equal(t, "t=0000000042 off                          W  7 C255\n", buf.String())
}

func TestLoadProgramYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	y := filepath.Join(dir, "p.yaml")
	require.NoError(t, os.WriteFile(y, []byte("loop: true\nclips:\n  - name: a\n    duration_s: 2\n    pattern: {kind: wave, frequency: 1}\n"), 0644))
	p, err := loadProgram(y)
	require.NoError(t, err)
	assert.True(t, p.Loop)
	assert.Equal(t, pattern.KindWave, p.Clips[0].Pattern.Kind)

	j := filepath.Join(dir, "p.json")
	require.NoError(t, os.WriteFile(j, []byte(`{"clips":[{"name":"b","duration_s":1,"pattern":{"kind":"off"}}]}`), 0644))
	p, err = loadProgram(j)
	require.NoError(t, err)
	assert.Equal(t, "b", p.Clips[0].Name)
}
