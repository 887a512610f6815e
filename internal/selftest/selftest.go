// Package selftest lights channels in a fixed order so the wiring of each
// channel and rail can be checked by eye.
package selftest

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/coreman2200/fairylights/internal/channel"
)

type Kind string

const (
	None Kind = ""
	// ChannelSweep lights one channel at a time, white then colour.
	ChannelSweep Kind = "channel_sweep"
	// RailFlip lights every channel on white, then every channel on colour.
	RailFlip Kind = "rail_flip"
	// Ramp raises every channel's white rail from 0 to full in eight steps.
	Ramp Kind = "ramp"
)

// ParseKind accepts the names above.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case ChannelSweep, RailFlip, Ramp:
		return k, nil
	}
	return None, errors.Errorf("unknown self-test %q", s)
}

type Plan struct {
	Kind  Kind
	Level channel.Level // 0 means full
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.Level == 0 {
		plan.Level = channel.MaxLevel
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step drives chs for the next step; returns false when complete, leaving
// every channel dark.
func (r *Runner) Step(chs []channel.Driver) bool {
	n := len(chs)
	for _, ch := range chs {
		ch.SetBrightness(0)
	}

	switch r.plan.Kind {
	case ChannelSweep:
		if r.step >= 2*n {
			return false
		}
		ch := chs[r.step/2]
		rail := channel.White
		if r.step%2 == 1 {
			rail = channel.Colour
		}
		ch.SelectRail(rail)
		ch.SetBrightness(r.plan.Level)
	case RailFlip:
		if r.step >= 2 {
			return false
		}
		rail := channel.White
		if r.step == 1 {
			rail = channel.Colour
		}
		for _, ch := range chs {
			ch.SelectRail(rail)
			ch.SetBrightness(r.plan.Level)
		}
	case Ramp:
		const steps = 8
		if r.step >= steps {
			return false
		}
		lvl := channel.Level(int(r.plan.Level) * (r.step + 1) / steps)
		for _, ch := range chs {
			ch.SelectRail(channel.White)
			ch.SetBrightness(lvl)
		}
	default:
		return false
	}
	r.step++
	return true
}

// Run steps through plan on bank, holding each step for hold, flushing after
// every step. The bank is left dark.
func Run(ctx context.Context, bank channel.Bank, plan Plan, hold time.Duration) error {
	r := NewRunner(plan)
	for {
		more := r.Step(bank.Channels())
		if err := bank.Flush(); err != nil {
			return errors.Wrapf(err, "self-test %s step %d", plan.Kind, r.step)
		}
		if !more {
			return nil
		}
		select {
		case <-ctx.Done():
			for _, ch := range bank.Channels() {
				ch.SetBrightness(0)
			}
			return bank.Flush()
		case <-time.After(hold):
		}
	}
}
