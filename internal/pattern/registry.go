package pattern

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/coreman2200/fairylights/internal/channel"
)

// Builder constructs a pattern of the given spec over chs.
type Builder func(s Spec, chs []channel.Driver) (*Pattern, error)

// Registry maps kind names to builders.
type Registry struct{ m map[Kind]Builder }

func NewRegistry() *Registry { return &Registry{m: map[Kind]Builder{}} }

// DefaultRegistry knows every built-in variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindOff, func(_ Spec, chs []channel.Driver) (*Pattern, error) {
		return NewOff(chs)
	})
	r.Register(KindSolid, func(s Spec, chs []channel.Driver) (*Pattern, error) {
		return NewSolid(s.count(chs), chs, s.Brightness, s.Rail)
	})
	r.Register(KindSequence, func(s Spec, chs []channel.Driver) (*Pattern, error) {
		return NewSequence(s.count(chs), chs, s.PeriodMs, s.Brightness, s.Rail)
	})
	r.Register(KindWave, func(s Spec, chs []channel.Driver) (*Pattern, error) {
		return NewWave(s.count(chs), chs, s.Frequency, s.Rail)
	})
	r.Register(KindChaos, func(s Spec, chs []channel.Driver) (*Pattern, error) {
		return NewChaos(s.count(chs), chs, s.Speed, s.Mode, s.Rail)
	})
	r.Register(KindAlternate, func(s Spec, chs []channel.Driver) (*Pattern, error) {
		return NewAlternate(s.count(chs), chs, s.Frequency, s.Brightness)
	})
	return r
}

func (r *Registry) Register(k Kind, b Builder) {
	if b == nil {
		return
	}
	r.m[k] = b
}

func (r *Registry) Get(k Kind) (Builder, bool) { b, ok := r.m[k]; return b, ok }

// List returns the registered kinds, sorted.
func (r *Registry) List() []Kind {
	out := make([]Kind, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build validates s and constructs it over chs. Nothing is written to the
// channels unless the whole spec is valid.
func (r *Registry) Build(s Spec, chs []channel.Driver) (*Pattern, error) {
	b, ok := r.m[s.Kind]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSpec, "no builder for kind %q", s.Kind)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := checkCount(s.count(chs), chs); err != nil {
		return nil, err
	}
	return b(s, chs)
}

// Build uses the default registry.
func Build(s Spec, chs []channel.Driver) (*Pattern, error) {
	return defaultRegistry.Build(s, chs)
}

var defaultRegistry = DefaultRegistry()
