package effect

import (
	"math"

	"github.com/coreman2200/fairylights/internal/channel"
)

// ChaosWindowMs bounds the recurrence input; the output repeats every two minutes.
const ChaosWindowMs = 120000

// NominalChaosSpeed looks good on fairy lights.
const NominalChaosSpeed = 0.002

// ChaosValue is the shared recurrence, in [-1, 1].
func ChaosValue(speed, seed float64, t Millis) float64 {
	x := speed * float64(t%ChaosWindowMs)
	return math.Sin(math.Sin(math.Pow(x, 1.1)) + x + seed)
}

func checkChaos(speed, seed float64) error {
	if !finite(speed) || speed <= 0 {
		return invalid("chaos speed %v must be > 0", speed)
	}
	if !finite(seed) {
		return invalid("chaos seed %v is not finite", seed)
	}
	return nil
}

// Chaos switches rails on the sign of the recurrence and drives |r| as level.
type Chaos struct {
	ch    channel.Driver
	speed float64
	seed  float64
}

// NewChaos binds a multi-rail chaos effect. Seeds in [-10, 10] are typical.
func NewChaos(ch channel.Driver, speed, seed float64) (*Chaos, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	if err := checkChaos(speed, seed); err != nil {
		return nil, err
	}
	c := &Chaos{ch: ch, speed: speed, seed: seed}
	ch.SelectRail(channel.White)
	ch.SetBrightness(channel.MaxLevel)
	return c, nil
}

func (c *Chaos) Kind() Kind     { return KindChaos }
func (c *Chaos) Seed() float64  { return c.seed }
func (c *Chaos) Speed() float64 { return c.speed }

// Eval returns the state Update would drive at t.
func (c *Chaos) Eval(t Millis) channel.State {
	r := ChaosValue(c.speed, c.seed, t)
	rail := channel.Colour
	if r > 0 {
		rail = channel.White
	}
	return channel.State{Rail: rail, Level: toLevel(math.Abs(r))}
}

func (c *Chaos) Update(t Millis) {
	s := c.Eval(t)
	c.ch.SelectRail(s.Rail)
	c.ch.SetBrightness(s.Level)
}

// ChaosSingle runs the same recurrence on one fixed rail, normalised to [0,1].
type ChaosSingle struct {
	ch    channel.Driver
	speed float64
	seed  float64
	rail  channel.Rail
}

func NewChaosSingle(ch channel.Driver, speed, seed float64, rail channel.Rail) (*ChaosSingle, error) {
	if err := checkChannel(ch); err != nil {
		return nil, err
	}
	if err := checkChaos(speed, seed); err != nil {
		return nil, err
	}
	c := &ChaosSingle{ch: ch, speed: speed, seed: seed, rail: rail}
	ch.SelectRail(rail)
	ch.SetBrightness(channel.MaxLevel)
	return c, nil
}

func (c *ChaosSingle) Kind() Kind    { return KindChaosSingle }
func (c *ChaosSingle) Seed() float64 { return c.seed }

func (c *ChaosSingle) Level(t Millis) channel.Level {
	r := ChaosValue(c.speed, c.seed, t)
	return toLevel((r + 1) / 2)
}

func (c *ChaosSingle) Update(t Millis) {
	c.ch.SetBrightness(c.Level(t))
}
