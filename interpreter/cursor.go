package interpreter

import (
	"sort"

	"github.com/jsphweid/sightreader/model"
)

type cursor struct {
	measure   int
	group     int
	satisfied map[model.Pitch]bool
	finished  bool
}

func newCursor(measure int) cursor {
	return cursor{measure: measure, satisfied: make(map[model.Pitch]bool)}
}

func (c *cursor) currentGroup(s *model.Score) model.OnsetGroup {
	return s.Measures[c.measure].Groups[c.group]
}

// press marks p satisfied if it belongs to the current group and advances
// once the whole group is down.
func (c *cursor) press(s *model.Score, p model.Pitch) (matched, advanced bool) {
	if c.finished {
		return false, false
	}
	g := c.currentGroup(s)
	if !g.Contains(p) {
		return false, false
	}
	c.satisfied[p] = true
	if len(c.satisfied) < len(g.Notes) {
		return true, false
	}
	return true, c.advance(s)
}

func (c *cursor) advance(s *model.Score) bool {
	c.satisfied = make(map[model.Pitch]bool)
	switch {
	case c.group+1 < len(s.Measures[c.measure].Groups):
		c.group++
	case c.measure+1 < len(s.Measures):
		c.measure++
		c.group = 0
	default:
		c.finished = true
		return false
	}
	return true
}

func (c *cursor) position(s *model.Score) model.Position {
	current := s.Measures[c.measure].Number
	next := current
	if c.measure+1 < len(s.Measures) {
		next = s.Measures[c.measure+1].Number
	}
	return model.Position{Current: current, Lookahead: next}
}

func (c *cursor) snapshot() model.Cursor {
	satisfied := make(model.Notes, 0, len(c.satisfied))
	for p := range c.satisfied {
		satisfied = append(satisfied, p)
	}
	sort.Slice(satisfied, func(i, j int) bool {
		return satisfied[i] < satisfied[j]
	})
	return model.Cursor{
		MeasureIndex: c.measure,
		GroupIndex:   c.group,
		Satisfied:    satisfied,
		Finished:     c.finished,
	}
}
