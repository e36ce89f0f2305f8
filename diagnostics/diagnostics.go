// Package diagnostics receives one Record per interpreter decision.
package diagnostics

import (
	"log/slog"
	"sync"

	"github.com/jsphweid/sightreader/chord"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/normalizer"
)

type Op uint8

const (
	OpInput Op = iota
	OpSeek
	OpLoad
)

func (o Op) String() string {
	switch o {
	case OpSeek:
		return "seek"
	case OpLoad:
		return "load"
	}
	return "input"
}

type Record struct {
	Op Op
	// Normalized event, OpInput only.
	Event   model.PianoEvent
	Outcome normalizer.Outcome
	// Press belonged to the group under the cursor.
	Matched bool
	// Cursor moved to the next group.
	Advanced bool
	// Pitches of the group that was under the cursor.
	Group    model.Notes
	Position model.Position
	Err      error
}

type Sink interface {
	Record(r Record)
}

type SinkFunc func(r Record)

func (f SinkFunc) Record(r Record) { f(r) }

type Counts struct {
	Presses     uint64
	Releases    uint64
	Pedals      uint64
	Simulated   uint64
	Orphans     uint64
	Matched     uint64
	PassThrough uint64
	Advances    uint64
	Rejected    uint64
}

// Counter keeps running ordinals and logs every record at debug level.
type Counter struct {
	mu     sync.Mutex
	logger *slog.Logger
	counts Counts
}

func NewCounter(logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{logger: logger}
}

func (c *Counter) Record(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.Err != nil {
		c.counts.Rejected++
		c.logger.Debug("diagnostics: rejected", "op", r.Op.String(), "err", r.Err)
		return
	}
	if r.Op != OpInput {
		c.logger.Debug("diagnostics: cursor moved", "op", r.Op.String(), "measure", r.Position.Current, "next", r.Position.Lookahead)
		return
	}

	switch r.Event.Kind {
	case model.NotePress:
		c.counts.Presses++
		if r.Outcome == normalizer.SimulatedPress {
			c.counts.Simulated++
		}
		if r.Matched {
			c.counts.Matched++
		} else {
			c.counts.PassThrough++
		}
		if r.Advanced {
			c.counts.Advances++
		}
		c.logger.Debug("diagnostics: press",
			"ordinal", c.counts.Presses,
			"pitch", r.Event.Pitch,
			"velocity", r.Event.Velocity,
			"outcome", r.Outcome.String(),
			"group", chord.CreateChordKey(r.Group),
			"matched", r.Matched,
			"advanced", r.Advanced,
			"measure", r.Position.Current,
		)
	case model.NoteRelease:
		c.counts.Releases++
		if r.Outcome == normalizer.OrphanRelease {
			c.counts.Orphans++
		}
		c.logger.Debug("diagnostics: release",
			"ordinal", c.counts.Releases,
			"pitch", r.Event.Pitch,
			"outcome", r.Outcome.String(),
		)
	case model.PedalChange:
		c.counts.Pedals++
		c.logger.Debug("diagnostics: pedal", "pedal", r.Event.Pedal.String(), "position", r.Event.Position)
	}
}

func (c *Counter) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
