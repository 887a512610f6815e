package sequence

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrEmpty is returned when loading a program without clips.
var ErrEmpty = errors.New("program has no clips")

// Player owns the current Program timeline and uses Hooks to swap patterns.
// It is safe for concurrent use.
type Player struct {
	mu    sync.Mutex
	state PlayerState
	prog  Program
	nowS  float64 // position within program
	idx   int     // current clip index
	hooks Hooks
	// lastErr is the most recent SetPattern failure.
	lastErr error
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{state: Idle, hooks: h}
}

// Validate checks durations and every clip's pattern.
func (prog Program) Validate() error {
	if len(prog.Clips) == 0 {
		return ErrEmpty
	}
	for i, c := range prog.Clips {
		if !(c.DurationS > 0) || math.IsInf(c.DurationS, 1) {
			return errors.Errorf("clip %d (%s): duration %v must be > 0", i, c.Name, c.DurationS)
		}
		if err := c.Pattern.Validate(); err != nil {
			return errors.Wrapf(err, "clip %d (%s)", i, c.Name)
		}
	}
	return nil
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.state = Idle
	return nil
}

// Start moves to Running and installs the current clip.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.state = Running
	p.install()
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running {
		p.state = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Paused {
		p.state = Running
	}
}

// Stop stops and rewinds to the start. The active pattern is left as is.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	p.nowS = 0
	p.idx = 0
}

// Seek jumps to absolute program time t, clamped into [0, total).
func (p *Player) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	idx := 0
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	changed := idx != p.idx
	p.idx = idx
	p.nowS = t
	if changed && p.state != Idle {
		p.install()
	}
}

// Tick advances the timeline by dt seconds and swaps patterns at clip boundaries.
func (p *Player) Tick(dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running || len(p.prog.Clips) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt
	for p.state == Running {
		clip, localT := p.currentClipAndLocalT()
		if localT < clip.DurationS {
			return
		}
		p.advanceClip()
	}
}

// Run ticks the player at fps until ctx is done.
func (p *Player) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = 10
	}
	dt := time.Second / time.Duration(fps)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick(dt.Seconds())
		}
	}
}

// Status reports where the player is.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{State: p.state, Index: p.idx, PositionS: p.nowS}
	if p.idx < len(p.prog.Clips) {
		s.Clip = p.prog.Clips[p.idx].Name
	}
	return s
}

// Err is the last pattern install failure, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Player) install() {
	if p.hooks.SetPattern == nil {
		return
	}
	p.lastErr = p.hooks.SetPattern(p.prog.Clips[p.idx].Pattern)
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) advanceClip() {
	next := p.idx + 1
	if next >= len(p.prog.Clips) {
		if !p.prog.Loop {
			p.state = Idle
			if p.hooks.Done != nil {
				p.hooks.Done()
			}
			return
		}
		next = 0
		p.nowS -= p.totalDuration()
	}
	p.idx = next
	p.install()
}
