package cmd

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/jsphweid/sightreader/model"
)

type positionSource interface {
	GetPosition() (current, lookahead int)
}

// positionReporter logs the position once a burst of events settles, so a
// chord is reported once rather than per key.
type positionReporter struct {
	src       positionSource
	debounced func(f func())

	mu   sync.Mutex
	last model.Position
	// test hook
	report func(pos model.Position)
}

func newPositionReporter(src positionSource, wait time.Duration) *positionReporter {
	r := &positionReporter{src: src, debounced: debounce.New(wait)}
	r.report = func(pos model.Position) {
		logger.Info("position", "measure", pos.Current, "next", pos.Lookahead)
	}
	return r
}

// Handle is an interpreter subscriber.
func (r *positionReporter) Handle(model.PianoEvent) {
	r.Trigger()
}

func (r *positionReporter) Trigger() {
	r.debounced(r.flush)
}

func (r *positionReporter) flush() {
	cur, next := r.src.GetPosition()
	pos := model.Position{Current: cur, Lookahead: next}

	r.mu.Lock()
	changed := pos != r.last
	r.last = pos
	r.mu.Unlock()

	if changed {
		r.report(pos)
	}
}
