// Package normalizer turns the raw note stream of a keyboard into
// unambiguous presses and releases.
//
// Some keyboards send a zero-velocity note-on both as a regular note-off and,
// occasionally, for a key that is being struck again quickly. A zero-velocity
// note-on for a held key is a release. One for a key already at rest is
// taken to be a fast re-press and becomes a simulated press whose velocity is
// the rounded mean of the last few real press velocities.
//
// A Normalizer is not safe for concurrent use; the interpreter owns it and
// serializes access.
package normalizer

import (
	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/model"
)

type Config struct {
	// Capacity of the recent press velocity window.
	WindowSize int
	// Velocity of a simulated press when no press has been seen yet.
	FallbackVelocity model.Velocity
}

func DefaultConfig() Config {
	return Config{
		WindowSize:       constants.VelocityWindowSize,
		FallbackVelocity: constants.FallbackVelocity,
	}
}

// Outcome describes how an event was resolved.
type Outcome uint8

const (
	Passed Outcome = iota
	// Zero-velocity note-on for a held key.
	ZeroVelocityRelease
	// Zero-velocity note-on for a key at rest.
	SimulatedPress
	// Release for a key that was not held.
	OrphanRelease
)

func (o Outcome) String() string {
	switch o {
	case ZeroVelocityRelease:
		return "zero_velocity_release"
	case SimulatedPress:
		return "simulated_press"
	case OrphanRelease:
		return "orphan_release"
	}
	return "passed"
}

type Normalizer struct {
	cfg    Config
	held   map[model.Pitch]model.Velocity
	recent *velocityWindow
}

func New(cfg Config) *Normalizer {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = constants.VelocityWindowSize
	}
	if cfg.FallbackVelocity == 0 || cfg.FallbackVelocity > model.MaxMidiValue {
		cfg.FallbackVelocity = constants.FallbackVelocity
	}
	return &Normalizer{
		cfg:    cfg,
		held:   make(map[model.Pitch]model.Velocity),
		recent: newVelocityWindow(cfg.WindowSize),
	}
}

// Normalize resolves ev against the held keys. The event must already be
// valid. Pedal events pass through unchanged.
func (n *Normalizer) Normalize(ev model.PianoEvent) (model.PianoEvent, Outcome) {
	switch ev.Kind {
	case model.NotePress:
		if ev.Velocity > 0 {
			n.held[ev.Pitch] = ev.Velocity
			n.recent.push(ev.Velocity)
			return ev, Passed
		}
		if _, ok := n.held[ev.Pitch]; ok {
			delete(n.held, ev.Pitch)
			return model.Release(ev.Pitch), ZeroVelocityRelease
		}
		vel, ok := n.recent.mean()
		if !ok {
			vel = n.cfg.FallbackVelocity
		}
		n.held[ev.Pitch] = vel
		simulated := model.Press(ev.Pitch, vel)
		simulated.Simulated = true
		return simulated, SimulatedPress
	case model.NoteRelease:
		if _, ok := n.held[ev.Pitch]; !ok {
			return ev, OrphanRelease
		}
		delete(n.held, ev.Pitch)
		return ev, Passed
	default:
		return ev, Passed
	}
}

func (n *Normalizer) IsHeld(p model.Pitch) bool {
	_, ok := n.held[p]
	return ok
}

// Held returns a copy of the held keys and the velocity each was pressed at.
func (n *Normalizer) Held() map[model.Pitch]model.Velocity {
	res := make(map[model.Pitch]model.Velocity, len(n.held))
	for p, v := range n.held {
		res[p] = v
	}
	return res
}

func (n *Normalizer) RecentVelocities() []model.Velocity {
	return n.recent.snapshot()
}

// Reset forgets held keys, e.g. after the input device disconnects. Recent
// velocities are kept.
func (n *Normalizer) Reset() {
	n.held = make(map[model.Pitch]model.Velocity)
}
