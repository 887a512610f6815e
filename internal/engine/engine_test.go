package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/driver/sim"
	"github.com/coreman2200/fairylights/internal/effect"
	"github.com/coreman2200/fairylights/internal/pattern"
)

func newEngine(t *testing.T, n int) (*Engine, *sim.Bank, *[]diagnostics.Diagnostic) {
	t.Helper()
	bank := sim.NewBank(n)
	var diags []diagnostics.Diagnostic
	e, err := New(bank, nil, zerolog.Nop(), func(d diagnostics.Diagnostic) { diags = append(diags, d) })
	require.NoError(t, err)
	return e, bank, &diags
}

func TestStartsOff(t *testing.T) {
	e, bank, _ := newEngine(t, 3)
	assert.Equal(t, pattern.KindOff, e.Active().Kind)
	require.NoError(t, e.RenderOnce(100))
	for _, s := range bank.States() {
		assert.Equal(t, channel.Level(0), s.Level)
	}
	assert.Equal(t, 1, bank.Flushes())
}

func TestInstallAndRender(t *testing.T) {
	e, bank, _ := newEngine(t, 6)
	require.NoError(t, e.Install(pattern.Spec{Kind: pattern.KindSolid, Brightness: 128, Rail: channel.White}))

	var frames []Frame
	e.Observe(func(f Frame) { frames = append(frames, f) })
	require.NoError(t, e.RenderOnce(10))
	require.NoError(t, e.RenderOnce(5000))

	require.Len(t, frames, 2)
	assert.Equal(t, uint64(2), frames[1].ID)
	assert.Equal(t, effect.Millis(5000), frames[1].T)
	assert.Equal(t, "solid(white@128)", frames[1].Pattern)
	for _, s := range bank.States() {
		assert.Equal(t, channel.State{Rail: channel.White, Level: 128}, s)
	}
}

func TestInvalidInstallFallsBackToOff(t *testing.T) {
	e, bank, diags := newEngine(t, 4)
	require.NoError(t, e.Install(pattern.Spec{Kind: pattern.KindSolid, Brightness: 200, Rail: channel.Colour}))
	require.NoError(t, e.RenderOnce(1))

	err := e.Install(pattern.Spec{Kind: pattern.KindWave, Frequency: -1})
	require.Error(t, err)
	assert.Equal(t, pattern.ErrInvalidSpec, errors.Cause(err))
	assert.Equal(t, pattern.KindOff, e.Active().Kind)

	require.NoError(t, e.RenderOnce(2))
	for _, s := range bank.States() {
		assert.Equal(t, channel.Level(0), s.Level)
	}
	require.Len(t, *diags, 3)
	assert.Equal(t, diagnostics.CodePatternActive, (*diags)[0].Code)
	assert.Equal(t, "solid(colour@200)", (*diags)[0].Detail)
	assert.Equal(t, diagnostics.CodePatternRejected, (*diags)[1].Code)
	assert.Equal(t, diagnostics.CodePatternFallback, (*diags)[2].Code)
}

func TestDiagnosticsPushedOutsideLock(t *testing.T) {
	bank := sim.NewBank(2)
	var e *Engine
	var codes []string
	e, err := New(bank, nil, zerolog.Nop(), func(d diagnostics.Diagnostic) {
		// a sink that renders must not deadlock against Install
		require.NoError(t, e.RenderOnce(1))
		codes = append(codes, d.Code)
	})
	require.NoError(t, err)

	require.NoError(t, e.Install(pattern.Spec{Kind: pattern.KindSolid, Brightness: 5}))
	require.Error(t, e.Install(pattern.Spec{Kind: pattern.KindSolid, Brightness: 500}))
	assert.Equal(t, []string{
		diagnostics.CodePatternActive,
		diagnostics.CodePatternRejected,
		diagnostics.CodePatternFallback,
	}, codes)
}

func TestSwapRejectsWrongSize(t *testing.T) {
	e, _, _ := newEngine(t, 3)
	other := sim.NewBank(2)
	p, err := pattern.NewSolid(2, other.Channels(), 1, channel.White)
	require.NoError(t, err)
	assert.Error(t, e.Swap(p, pattern.Spec{Kind: pattern.KindSolid}))
	assert.Error(t, e.Swap(nil, pattern.Spec{}))
}

func TestSwapPrebuilt(t *testing.T) {
	e, bank, _ := newEngine(t, 2)
	spec := pattern.Spec{Kind: pattern.KindAlternate, Frequency: 1, Brightness: 50}
	p, err := pattern.Build(spec, bank.Channels())
	require.NoError(t, err)
	require.NoError(t, e.Swap(p, spec))
	require.NoError(t, e.RenderOnce(1001))
	assert.Equal(t, channel.State{Rail: channel.Colour, Level: 50}, bank.States()[0])
}

func TestFlushErrorReported(t *testing.T) {
	e, bank, _ := newEngine(t, 1)
	boom := errors.New("bus fault")
	bank.FlushErr = boom

	seen := 0
	e.Observe(func(Frame) { seen++ })
	err := e.RenderOnce(1)
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, 1, seen)
}

func TestNowWraps(t *testing.T) {
	e, _, _ := newEngine(t, 1)
	base := time.Unix(0, 0)
	e.t0 = base
	e.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	assert.Equal(t, effect.Millis(1500), e.Now())

	e.now = func() time.Time { return base.Add((1<<32 + 7) * time.Millisecond) }
	assert.Equal(t, effect.Millis(7), e.Now())
}

func TestRunStopsOnCancel(t *testing.T) {
	e, bank, diags := newEngine(t, 2)
	bank.FlushErr = errors.New("bus fault")

	var mu sync.Mutex
	n := 0
	e.Observe(func(Frame) {
		mu.Lock()
		n++
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx, 200))

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, n, 2)
	// one diagnostic per failure streak
	flushDiags := 0
	for _, d := range *diags {
		if d.Code == diagnostics.CodeFlushFailed {
			flushDiags++
		}
	}
	assert.Equal(t, 1, flushDiags)
}
