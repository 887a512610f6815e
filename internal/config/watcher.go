package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the file must be quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the config file when it changes and hands each valid
// snapshot to the registered handlers. The parent directory is watched so
// editors that replace the file by rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	handlers []func(*Config)
	onError  func(error)
	log      zerolog.Logger

	mu      sync.RWMutex
	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithErrorHandler is called with every load or validation failure.
func WithErrorHandler(h func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = h }
}

func NewWatcher(path string, log zerolog.Logger, opts ...WatcherOption) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		log:      log.With().Str("component", "config").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler for valid reloaded configs.
func (w *Watcher) OnReload(h func(*Config)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, h)
	w.mu.Unlock()
}

func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw
	w.log.Info().Str("path", w.path).Dur("debounce", w.debounce).Msg("config watcher started")
	go w.watch()
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watch() {
	defer close(w.done)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Debug().Msg("config watcher stopped")
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug().Str("op", ev.Op.String()).Msg("config change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	c, err := LoadValid(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload rejected")
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.log.Info().Str("pattern", c.Pattern.String()).Msg("config reloaded")

	w.mu.RLock()
	hs := append([]func(*Config){}, w.handlers...)
	w.mu.RUnlock()
	for _, h := range hs {
		h(c)
	}
}
