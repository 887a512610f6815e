// Package engine is the driver loop: it owns the active pattern, supplies the
// millisecond clock, updates and flushes the bank once per frame and reports
// each frame to observers.
package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/effect"
	"github.com/coreman2200/fairylights/internal/metrics"
	"github.com/coreman2200/fairylights/internal/pattern"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// Frame is what one RenderOnce drove onto the bank.
type Frame struct {
	ID      uint64          `json:"id"`
	T       effect.Millis   `json:"t"`
	Pattern string          `json:"pattern"`
	States  []channel.State `json:"states"`
}

// Observer sees every frame after it is flushed. Observers run on the render
// goroutine and must not block.
type Observer func(Frame)

// Engine drives one bank with one pattern at a time.
type Engine struct {
	bank channel.Bank
	reg  *pattern.Registry
	log  zerolog.Logger
	diag diagnostics.Sink

	// mu serialises pattern construction against frame updates, so two
	// patterns never write the same channel concurrently.
	mu        sync.Mutex
	active    *pattern.Pattern
	spec      pattern.Spec
	frameID   uint64
	observers []Observer

	t0  time.Time
	now func() time.Time
}

// New binds an engine to bank and installs the all-off pattern.
func New(bank channel.Bank, reg *pattern.Registry, log zerolog.Logger, diag diagnostics.Sink) (*Engine, error) {
	if bank == nil {
		return nil, errors.New("nil bank")
	}
	if reg == nil {
		reg = pattern.DefaultRegistry()
	}
	e := &Engine{
		bank: bank,
		reg:  reg,
		log:  log.With().Str("component", "engine").Logger(),
		diag: diag,
		now:  time.Now,
	}
	e.t0 = e.now()
	off, err := pattern.NewOff(bank.Channels())
	if err != nil {
		return nil, errors.Wrap(err, "safe default")
	}
	e.active = off
	e.spec = pattern.Spec{Kind: pattern.KindOff}
	return e, nil
}

// Now is the milliseconds elapsed since the engine started, truncated to 32
// bits. It wraps after ~49.7 days; effects tolerate that.
func (e *Engine) Now() effect.Millis {
	return effect.Millis(uint64(e.now().Sub(e.t0).Milliseconds()))
}

// Install builds s and makes it the active pattern. If s is rejected the
// engine falls back to all channels off and the error is returned.
func (e *Engine) Install(s pattern.Spec) error {
	e.mu.Lock()
	p, err := e.reg.Build(s, e.bank.Channels())
	if err == nil {
		e.setLocked(p, s)
		e.mu.Unlock()
		e.diag.Push(active(s))
		return nil
	}

	metrics.PatternRejected()
	e.log.Error().Err(err).Str("pattern", s.String()).Msg("pattern rejected, falling back to off")
	off, oerr := pattern.NewOff(e.bank.Channels())
	if oerr == nil {
		e.setLocked(off, pattern.Spec{Kind: pattern.KindOff})
	}
	e.mu.Unlock()

	e.diag.Push(diagnostics.FromError(diagnostics.CodePatternRejected, "Pattern rejected: "+s.String(), err))
	if oerr != nil {
		return errors.Wrap(oerr, "safe default")
	}
	e.diag.Push(diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     diagnostics.CodePatternFallback,
		Summary:  "All channels off",
	})
	return err
}

// Swap installs an already-built pattern. p must be bound to this engine's bank.
func (e *Engine) Swap(p *pattern.Pattern, s pattern.Spec) error {
	if p == nil {
		return errors.New("nil pattern")
	}
	if p.Len() != len(e.bank.Channels()) {
		return errors.Wrapf(pattern.ErrInvalidSpec, "pattern has %d channels, bank has %d", p.Len(), len(e.bank.Channels()))
	}
	e.mu.Lock()
	e.setLocked(p, s)
	e.mu.Unlock()
	e.diag.Push(active(s))
	return nil
}

func active(s pattern.Spec) diagnostics.Diagnostic {
	return diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Code:     diagnostics.CodePatternActive,
		Summary:  "Pattern active",
		Detail:   s.String(),
	}
}

func (e *Engine) setLocked(p *pattern.Pattern, s pattern.Spec) {
	e.active = p
	e.spec = s
	metrics.PatternInstalled(string(p.Kind()))
	e.log.Info().Str("pattern", s.String()).Int("channels", p.Len()).Msg("pattern installed")
}

// Active is the spec of the running pattern.
func (e *Engine) Active() pattern.Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spec
}

// Observe registers o for every subsequent frame.
func (e *Engine) Observe(o Observer) {
	if o == nil {
		return
	}
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// RenderOnce updates the active pattern at t and flushes the bank. Observers
// see the frame even if the flush failed.
func (e *Engine) RenderOnce(t effect.Millis) error {
	start := time.Now()

	e.mu.Lock()
	e.active.Update(t)
	err := e.bank.Flush()
	e.frameID++
	f := Frame{
		ID:      e.frameID,
		T:       t,
		Pattern: e.spec.String(),
		States:  e.bank.States(),
	}
	obs := e.observers
	e.mu.Unlock()

	metrics.Frame(time.Since(start), err)
	for i, s := range f.States {
		w, c := s.Outputs()
		ch := strconv.Itoa(i)
		metrics.SetChannelLevel(ch, channel.White.String(), float64(w))
		metrics.SetChannelLevel(ch, channel.Colour.String(), float64(c))
	}
	for _, o := range obs {
		o(f)
	}
	if err != nil {
		return errors.Wrapf(err, "flush frame %d", f.ID)
	}
	return nil
}

// Run renders at fps until ctx is done. Flush failures are logged and
// reported once per streak; the loop keeps going.
func (e *Engine) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	e.log.Info().Int("fps", fps).Msg("render loop started")
	failing := false
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("render loop stopped")
			return nil
		case <-ticker.C:
			err := e.RenderOnce(e.Now())
			switch {
			case err != nil && !failing:
				failing = true
				e.log.Warn().Err(err).Msg("flush failed")
				e.diag.Push(diagnostics.FromError(diagnostics.CodeFlushFailed, "Hardware write failed", err))
			case err == nil && failing:
				failing = false
				e.log.Info().Msg("flush recovered")
			}
		}
	}
}
