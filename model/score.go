package model

import (
	"fmt"

	"github.com/pkg/errors"
)

type Pitch = uint8
type Velocity = uint8

const MaxMidiValue = 127

// Hand is the optional voice tag carried by a NoteOnset.
type Hand uint8

const (
	AnyHand Hand = iota
	RightHand
	LeftHand
)

func (h Hand) String() string {
	switch h {
	case RightHand:
		return "right"
	case LeftHand:
		return "left"
	}
	return "any"
}

type NoteOnset struct {
	Pitch Pitch `json:"pitch"`
	Hand  Hand  `json:"hand,omitempty"`
}

// OnsetGroup is a chord: the notes notated to start together.
type OnsetGroup struct {
	Notes []NoteOnset `json:"notes"`
}

func (g OnsetGroup) Pitches() Notes {
	res := make(Notes, 0, len(g.Notes))
	for _, n := range g.Notes {
		res = append(res, n.Pitch)
	}
	return res
}

func (g OnsetGroup) Contains(p Pitch) bool {
	for _, n := range g.Notes {
		if n.Pitch == p {
			return true
		}
	}
	return false
}

type Measure struct {
	// Printed number, 1-based. Repeats may reuse a number.
	Number int          `json:"number"`
	Groups []OnsetGroup `json:"groups"`
}

// Score is immutable once handed to the interpreter; loading a new piece
// replaces it wholesale.
type Score struct {
	Source   string    `json:"source"`
	Measures []Measure `json:"measures"`
}

// Clone returns a copy sharing no slices with s.
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	res := &Score{Source: s.Source, Measures: make([]Measure, len(s.Measures))}
	for i, m := range s.Measures {
		groups := make([]OnsetGroup, len(m.Groups))
		for j, g := range m.Groups {
			groups[j] = OnsetGroup{Notes: append([]NoteOnset(nil), g.Notes...)}
		}
		res.Measures[i] = Measure{Number: m.Number, Groups: groups}
	}
	return res
}

func NewGroup(pitches ...Pitch) OnsetGroup {
	var g OnsetGroup
	for _, p := range pitches {
		g.Notes = append(g.Notes, NoteOnset{Pitch: p})
	}
	return g
}

// Validate reports ErrInvalidScore for empty or structurally malformed scores.
func (s *Score) Validate() error {
	if s == nil || len(s.Measures) == 0 {
		return errors.Wrap(ErrInvalidScore, "score has no measures")
	}
	for i, m := range s.Measures {
		if m.Number < 1 {
			return errors.Wrapf(ErrInvalidScore, "measure at position %d has number %d", i, m.Number)
		}
		if len(m.Groups) == 0 {
			return errors.Wrapf(ErrInvalidScore, "measure %d (position %d) has no onset groups", m.Number, i)
		}
		for j, g := range m.Groups {
			if err := g.validate(); err != nil {
				return errors.Wrapf(err, "measure %d (position %d) group %d", m.Number, i, j)
			}
		}
	}
	return nil
}

func (g OnsetGroup) validate() error {
	if len(g.Notes) == 0 {
		return errors.Wrap(ErrInvalidScore, "empty onset group")
	}
	seen := make(map[Pitch]bool, len(g.Notes))
	for _, n := range g.Notes {
		if n.Pitch > MaxMidiValue {
			return errors.Wrapf(ErrInvalidScore, "pitch %d out of range", n.Pitch)
		}
		if seen[n.Pitch] {
			return errors.Wrapf(ErrInvalidScore, "duplicate pitch %d", n.Pitch)
		}
		seen[n.Pitch] = true
	}
	return nil
}

// IndexOf returns the position index of the first measure printed as number.
func (s *Score) IndexOf(number int) (int, bool) {
	for i, m := range s.Measures {
		if m.Number == number {
			return i, true
		}
	}
	return 0, false
}

func (s *Score) NumGroups() int {
	var total int
	for _, m := range s.Measures {
		total += len(m.Groups)
	}
	return total
}

func (s *Score) String() string {
	return fmt.Sprintf("%s (%d measures, %d groups)", s.Source, len(s.Measures), s.NumGroups())
}
