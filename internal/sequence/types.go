package sequence

import (
	"github.com/coreman2200/fairylights/internal/pattern"
)

// Clip plays one pattern for a fixed duration.
type Clip struct {
	Name      string       `yaml:"name" json:"name"`
	Pattern   pattern.Spec `yaml:"pattern" json:"pattern"`
	DurationS float64      `yaml:"duration_s" json:"durationS"`
}

// Program is an ordered playlist of clips.
type Program struct {
	Version string `yaml:"version,omitempty" json:"version,omitempty"` // e.g. "seq.v1"
	Loop    bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Clips   []Clip `yaml:"clips" json:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks connect the player to whatever owns the lights.
type Hooks struct {
	// SetPattern replaces the active pattern wholesale.
	SetPattern func(s pattern.Spec) error
	// Done is called when a non-looping program runs out. Hooks run with the
	// player locked and must not call back into it.
	Done func()
}

// Status is a point-in-time view of the player.
type Status struct {
	State     PlayerState `json:"state"`
	Clip      string      `json:"clip,omitempty"`
	Index     int         `json:"index"`
	PositionS float64     `json:"positionS"`
}
