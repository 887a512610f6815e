package channel

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Rail selects which of the two outputs of a channel is lit.
type Rail uint8

const (
	White Rail = iota
	Colour
)

func (r Rail) String() string {
	switch r {
	case White:
		return "white"
	case Colour:
		return "colour"
	default:
		return fmt.Sprintf("rail(%d)", uint8(r))
	}
}

// ParseRail accepts "white", "colour" and "color" (case-insensitive).
func ParseRail(s string) (Rail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "colour", "color", "c":
		return Colour, nil
	}
	return White, errors.Errorf("unknown rail %q", s)
}

// MarshalText lets rails round-trip through YAML/JSON as names.
func (r Rail) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rail) UnmarshalText(b []byte) error {
	v, err := ParseRail(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Level is the drive level of the active rail.
type Level uint8

const MaxLevel Level = 255

// State is what a channel is showing right now.
type State struct {
	Rail  Rail  `json:"rail"`
	Level Level `json:"level"`
}

// Outputs splits the state into per-rail levels. The inactive rail is always 0.
func (s State) Outputs() (white, colour Level) {
	if s.Rail == White {
		return s.Level, 0
	}
	return 0, s.Level
}

// Driver is the hardware side of one two-rail channel.
//
// SelectRail must zero the now-inactive rail in the same call so there is never
// a frame with both rails lit; the current level carries over to the new rail.
// Neither call reports errors: implementations latch failures and surface them
// from Bank.Flush.
type Driver interface {
	SelectRail(r Rail)
	SetBrightness(l Level)
}

// Bank owns a fixed, ordered set of channel drivers.
type Bank interface {
	// Channels returns the drivers in index order. The slice must not be modified.
	Channels() []Driver
	// States snapshots the state of every channel.
	States() []State
	// Flush pushes any buffered output and reports errors latched since the last call.
	Flush() error
	// Close drives every channel dark and releases resources.
	Close() error
}
