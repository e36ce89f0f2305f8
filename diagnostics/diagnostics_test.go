package diagnostics

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/normalizer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCounterCounts(t *testing.T) {
	c := NewCounter(quietLogger())
	c.Record(Record{Event: model.Press(60, 90), Matched: true, Advanced: true, Group: model.Notes{60}})
	c.Record(Record{Event: model.Press(72, 64), Outcome: normalizer.SimulatedPress})
	c.Record(Record{Event: model.Release(60)})
	c.Record(Record{Event: model.Release(61), Outcome: normalizer.OrphanRelease})
	c.Record(Record{Event: model.Pedal(model.Sustain, 127)})
	c.Record(Record{Op: OpSeek, Position: model.Position{Current: 3, Lookahead: 4}})
	c.Record(Record{Op: OpSeek, Err: errors.Wrap(model.ErrMeasureNotFound, "999")})

	assert.Equal(t, Counts{
		Presses:     2,
		Releases:    2,
		Pedals:      1,
		Simulated:   1,
		Orphans:     1,
		Matched:     1,
		PassThrough: 1,
		Advances:    1,
		Rejected:    1,
	}, c.Counts())
}

func TestSinkFunc(t *testing.T) {
	var got []Record
	var s Sink = SinkFunc(func(r Record) { got = append(got, r) })
	s.Record(Record{Op: OpLoad})
	assert.Len(t, got, 1)
	assert.Equal(t, "load", got[0].Op.String())
}
