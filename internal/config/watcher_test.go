package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/fairylights/internal/pattern"
)

func startWatcher(t *testing.T, path string) (chan *Config, chan error) {
	t.Helper()
	got := make(chan *Config, 4)
	errs := make(chan error, 4)
	w := NewWatcher(path, zerolog.Nop(),
		WithDebounce(30*time.Millisecond),
		WithErrorHandler(func(err error) { errs <- err }))
	w.OnReload(func(c *Config) { got <- c })
	require.NoError(t, w.Start())
	t.Cleanup(func() { assert.NoError(t, w.Stop()) })
	time.Sleep(50 * time.Millisecond)
	return got, errs
}

func TestWatcherReloads(t *testing.T) {
	path := write(t, "driver: sim\nchannels: 3\n")
	got, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("driver: sim\nchannels: 3\npattern: {kind: solid, brightness: 9}\n"), 0644))
	select {
	case c := <-got:
		assert.Equal(t, pattern.KindSolid, c.Pattern.Kind)
		assert.Equal(t, 9, c.Pattern.Brightness)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherSeesRenameReplace(t *testing.T) {
	path := write(t, "driver: sim\nchannels: 3\n")
	got, _ := startWatcher(t, path)

	tmp := filepath.Join(filepath.Dir(path), ".config.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("driver: sim\nchannels: 4\n"), 0644))
	require.NoError(t, os.Rename(tmp, path))
	select {
	case c := <-got:
		assert.Equal(t, 4, c.Channels)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcherRejectsInvalid(t *testing.T) {
	path := write(t, "driver: sim\nchannels: 3\n")
	got, errs := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("driver: sim\nchannels: 3\npattern: {kind: wave, frequency: -2}\n"), 0644))
	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for rejection")
	}
	assert.Len(t, got, 0)
}
