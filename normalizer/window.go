package normalizer

import (
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/util"
)

// velocityWindow keeps the most recent non-zero press velocities, oldest
// evicted first.
type velocityWindow struct {
	size   int
	values []model.Velocity
}

func newVelocityWindow(size int) *velocityWindow {
	if size < 1 {
		size = 1
	}
	return &velocityWindow{size: size, values: make([]model.Velocity, 0, size)}
}

func (w *velocityWindow) push(v model.Velocity) {
	if v == 0 {
		return
	}
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

func (w *velocityWindow) mean() (model.Velocity, bool) {
	m, ok := util.RoundedMean(w.values)
	return model.Velocity(m), ok
}

func (w *velocityWindow) snapshot() []model.Velocity {
	return append([]model.Velocity(nil), w.values...)
}
