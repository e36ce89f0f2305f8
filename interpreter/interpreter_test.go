package interpreter

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jsphweid/sightreader/diagnostics"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/normalizer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	events []model.PianoEvent
}

func (r *recorder) handle(ev model.PianoEvent) {
	r.events = append(r.events, ev)
}

func newTestInterpreter(t *testing.T, opts ...Option) (*Interpreter, *recorder) {
	t.Helper()
	in := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	rec := &recorder{}
	in.Subscribe(rec.handle)
	return in, rec
}

// tenMeasures has measures 1..10, each with a single C4 then a single D4.
func tenMeasures() *model.Score {
	s := &model.Score{Source: "ten.mid"}
	for i := 1; i <= 10; i++ {
		s.Measures = append(s.Measures, model.Measure{
			Number: i,
			Groups: []model.OnsetGroup{model.NewGroup(60), model.NewGroup(62)},
		})
	}
	return s
}

func position(in *Interpreter) model.Position {
	cur, next := in.GetPosition()
	return model.Position{Current: cur, Lookahead: next}
}

func TestChordInAnyOrderReachesTerminal(t *testing.T) {
	orders := [][]model.Pitch{
		{60, 64, 67},
		{67, 60, 64},
		{64, 67, 60},
	}
	for _, order := range orders {
		in, rec := newTestInterpreter(t)
		score := &model.Score{Measures: []model.Measure{{Number: 1, Groups: []model.OnsetGroup{model.NewGroup(60, 64, 67)}}}}
		require.NoError(t, in.LoadScore(score, "triad"))

		assert := assert.New(t)
		for i, p := range order {
			require.NoError(t, in.Input(model.Press(p, 80)))
			c, _ := in.Cursor()
			assert.Equal(i == len(order)-1, c.Finished)
		}

		before := position(in)
		require.NoError(t, in.Input(model.Press(72, 80)))
		assert.Equal(before, position(in))
		assert.Equal(model.Position{Current: 1, Lookahead: 1}, before)
		assert.Len(rec.events, 4)
		assert.Equal(model.Press(72, 80), rec.events[3])
	}
}

func TestAdvanceThroughMeasures(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	assert := assert.New(t)
	assert.Equal(model.Position{Current: 1, Lookahead: 2}, position(in))

	require.NoError(t, in.Input(model.Press(60, 90)))
	c, _ := in.Cursor()
	assert.Equal(0, c.MeasureIndex)
	assert.Equal(1, c.GroupIndex)

	require.NoError(t, in.Input(model.Press(62, 90)))
	c, _ = in.Cursor()
	assert.Equal(1, c.MeasureIndex)
	assert.Equal(0, c.GroupIndex)
	assert.Equal(model.Position{Current: 2, Lookahead: 3}, position(in))
}

func TestAdvanceIsMonotonicAndStopsAtEnd(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	last := -1
	for i := 0; i < 40; i++ {
		p := model.Pitch(60)
		if i%2 == 1 {
			p = 62
		}
		require.NoError(t, in.Input(model.Press(p, 90)))
		require.NoError(t, in.Input(model.Release(p)))
		c, _ := in.Cursor()
		index := c.MeasureIndex*2 + c.GroupIndex
		assert.GreaterOrEqual(t, index, last)
		last = index
	}

	c, _ := in.Cursor()
	assert.True(t, c.Finished)
	assert.Equal(t, 9, c.MeasureIndex)
	assert.Equal(t, 1, c.GroupIndex)
	assert.Equal(t, model.Position{Current: 10, Lookahead: 10}, position(in))
}

func TestUnscoredPressIsPassThrough(t *testing.T) {
	in, rec := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	before, _ := in.Cursor()
	for _, p := range []model.Pitch{61, 72, 30} {
		require.NoError(t, in.Input(model.Press(p, 70)))
	}
	after, _ := in.Cursor()

	assert.Equal(t, before, after)
	assert.Equal(t, []model.PianoEvent{
		model.Press(61, 70),
		model.Press(72, 70),
		model.Press(30, 70),
	}, rec.events)
}

func TestPartialChordKeepsSatisfiedPitches(t *testing.T) {
	in, _ := newTestInterpreter(t)
	score := &model.Score{Measures: []model.Measure{
		{Number: 1, Groups: []model.OnsetGroup{model.NewGroup(48, 60, 64), model.NewGroup(65)}},
	}}
	require.NoError(t, in.LoadScore(score, ""))

	require.NoError(t, in.Input(model.Press(64, 80)))
	require.NoError(t, in.Input(model.Release(64)))
	require.NoError(t, in.Input(model.Press(48, 80)))

	c, _ := in.Cursor()
	assert.Equal(t, model.Notes{48, 64}, c.Satisfied)
	assert.Equal(t, 0, c.GroupIndex)

	require.NoError(t, in.Input(model.Press(60, 80)))
	c, _ = in.Cursor()
	assert.Empty(t, c.Satisfied)
	assert.Equal(t, 1, c.GroupIndex)
}

func TestReleaseAndPedalAreForwardedWithoutCursorEffect(t *testing.T) {
	in, rec := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))
	before, _ := in.Cursor()

	require.NoError(t, in.Input(model.Release(60)))
	require.NoError(t, in.Input(model.Pedal(model.UnaCorda, 100)))

	after, _ := in.Cursor()
	assert.Equal(t, before, after)
	assert.Equal(t, []model.PianoEvent{model.Release(60), model.Pedal(model.UnaCorda, 100)}, rec.events)
}

func TestSeek(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))
	require.NoError(t, in.Input(model.Press(60, 90)))

	require.NoError(t, in.Seek(7))
	cur, next := in.GetPosition()

	assert := assert.New(t)
	assert.Equal(7, cur)
	assert.Equal(8, next)
	c, _ := in.Cursor()
	assert.Equal(0, c.GroupIndex)
	assert.Empty(c.Satisfied)
}

func TestSeekMissingMeasureLeavesCursor(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))
	require.NoError(t, in.Seek(4))
	require.NoError(t, in.Input(model.Press(60, 90)))
	before, _ := in.Cursor()
	beforePos := position(in)

	err := in.Seek(999)
	assert.True(t, errors.Is(err, model.ErrMeasureNotFound))
	err = in.Seek(0)
	assert.True(t, errors.Is(err, model.ErrMeasureNotFound))

	after, _ := in.Cursor()
	assert.Equal(t, before, after)
	assert.Equal(t, beforePos, position(in))
}

func TestSeekPicksFirstOccurrenceOfRepeatedNumber(t *testing.T) {
	in, _ := newTestInterpreter(t)
	g := []model.OnsetGroup{model.NewGroup(60)}
	score := &model.Score{Measures: []model.Measure{
		{Number: 1, Groups: g},
		{Number: 2, Groups: g},
		{Number: 1, Groups: g},
		{Number: 2, Groups: g},
		{Number: 3, Groups: g},
	}}
	require.NoError(t, in.LoadScore(score, ""))
	require.NoError(t, in.Seek(3))
	require.NoError(t, in.Seek(2))

	c, _ := in.Cursor()
	assert.Equal(t, 1, c.MeasureIndex)
	assert.Equal(t, model.Position{Current: 2, Lookahead: 1}, position(in))
}

func TestSeekClearsFinished(t *testing.T) {
	in, _ := newTestInterpreter(t)
	score := &model.Score{Measures: []model.Measure{{Number: 1, Groups: []model.OnsetGroup{model.NewGroup(60)}}}}
	require.NoError(t, in.LoadScore(score, ""))
	require.NoError(t, in.Input(model.Press(60, 90)))
	c, _ := in.Cursor()
	require.True(t, c.Finished)

	require.NoError(t, in.Seek(1))
	c, _ = in.Cursor()
	assert.False(t, c.Finished)
}

func TestEmptyScoreIsRejected(t *testing.T) {
	in, rec := newTestInterpreter(t)

	err := in.LoadScore(&model.Score{Source: "empty"}, "")
	assert := assert.New(t)
	assert.True(errors.Is(err, model.ErrInvalidScore))
	assert.Equal(Empty, in.State())

	err = in.Input(model.Press(60, 90))
	assert.True(errors.Is(err, model.ErrNoScore))
	assert.Empty(rec.events)
	assert.Empty(in.HeldNotes())

	err = in.Seek(1)
	assert.True(errors.Is(err, model.ErrNoScore))

	cur, next := in.GetPosition()
	assert.Equal(0, cur)
	assert.Equal(0, next)
}

func TestInvalidScoreKeepsPreviousScore(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), "first"))
	require.NoError(t, in.Seek(5))

	bad := &model.Score{Measures: []model.Measure{{Number: 1, Groups: []model.OnsetGroup{model.NewGroup(60, 60)}}}}
	err := in.LoadScore(bad, "second")

	assert.True(t, errors.Is(err, model.ErrInvalidScore))
	assert.Equal(t, "first", in.Score().Source)
	assert.Equal(t, model.Position{Current: 5, Lookahead: 6}, position(in))
}

func TestLoadScoreResetsCursorButKeepsHeldNotes(t *testing.T) {
	in, _ := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))
	require.NoError(t, in.Seek(3))
	require.NoError(t, in.Input(model.Press(40, 90)))

	require.NoError(t, in.LoadScore(tenMeasures(), "again"))
	c, _ := in.Cursor()
	assert.Equal(t, 0, c.MeasureIndex)
	assert.Contains(t, in.HeldNotes(), model.Pitch(40))
}

func TestInvalidEventDoesNotMutate(t *testing.T) {
	in, rec := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	bad := []model.PianoEvent{
		model.Press(128, 90),
		model.Press(60, 200),
		model.Release(255),
		model.Pedal(model.Sustain, 128),
		{Kind: model.PedalChange, Pedal: 9},
		{},
	}
	for _, ev := range bad {
		err := in.Input(ev)
		assert.True(t, errors.Is(err, model.ErrInvalidEvent), ev.String())
	}
	c, _ := in.Cursor()
	assert.Equal(t, 0, c.GroupIndex)
	assert.Empty(t, c.Satisfied)
	assert.Empty(t, rec.events)
	assert.Empty(t, in.HeldNotes())
}

func TestDuplicateZeroVelocityBecomesSimulatedPress(t *testing.T) {
	in, rec := newTestInterpreter(t)
	score := &model.Score{Measures: []model.Measure{{Number: 1, Groups: []model.OnsetGroup{
		model.NewGroup(50), model.NewGroup(51), model.NewGroup(52), model.NewGroup(60), model.NewGroup(61),
	}}}}
	require.NoError(t, in.LoadScore(score, ""))
	for i, v := range []model.Velocity{80, 90, 100} {
		p := model.Pitch(50 + i)
		require.NoError(t, in.Input(model.Press(p, v)))
		require.NoError(t, in.Input(model.Press(p, 0)))
	}
	rec.events = nil

	// 60 is at rest, so this is a fast re-press, and it satisfies the group
	require.NoError(t, in.Input(model.Press(60, 0)))

	assert := assert.New(t)
	require.Len(t, rec.events, 1)
	assert.Equal(model.NotePress, rec.events[0].Kind)
	assert.Equal(model.Velocity(90), rec.events[0].Velocity)
	assert.True(rec.events[0].Simulated)
	c, _ := in.Cursor()
	assert.Equal(4, c.GroupIndex)

	// now held, so the next zero-velocity note-on releases it
	require.NoError(t, in.Input(model.Press(60, 0)))
	assert.Equal(model.Release(60), rec.events[1])
}

func TestInputMessage(t *testing.T) {
	in, rec := newTestInterpreter(t)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	require.NoError(t, in.InputMessage(midi.NoteOn(0, 60, 99)))
	require.NoError(t, in.InputMessage(midi.NoteOff(0, 60)))
	require.NoError(t, in.InputMessage(midi.ControlChange(0, 66, 127)))
	require.NoError(t, in.InputMessage(midi.ProgramChange(0, 1)))

	assert.Equal(t, []model.PianoEvent{
		model.Press(60, 99),
		model.Release(60),
		model.Pedal(model.Sostenuto, 127),
	}, rec.events)
}

func TestSubscribersInRegistrationOrderAndCancel(t *testing.T) {
	in := New(WithLogger(quietLogger()))
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	var calls []string
	in.Subscribe(func(model.PianoEvent) { calls = append(calls, "a") })
	cancel := in.Subscribe(func(model.PianoEvent) { calls = append(calls, "b") })
	in.Subscribe(func(model.PianoEvent) { calls = append(calls, "c") })

	require.NoError(t, in.Input(model.Press(61, 10)))
	cancel()
	require.NoError(t, in.Input(model.Press(61, 10)))

	assert.Equal(t, []string{"a", "b", "c", "a", "c"}, calls)
}

func TestDiagnosticsAndNormalizerOptions(t *testing.T) {
	counter := diagnostics.NewCounter(quietLogger())
	in, rec := newTestInterpreter(t,
		WithDiagnostics(counter),
		WithNormalizer(normalizer.Config{WindowSize: 3, FallbackVelocity: 33}),
	)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	require.NoError(t, in.Input(model.Press(70, 0)))
	require.NoError(t, in.Input(model.Release(71)))
	require.NoError(t, in.Input(model.Press(60, 90)))
	assert.Error(t, in.Seek(42))

	assert.Equal(t, model.Velocity(33), rec.events[0].Velocity)
	counts := counter.Counts()
	assert.Equal(t, uint64(2), counts.Presses)
	assert.Equal(t, uint64(1), counts.Simulated)
	assert.Equal(t, uint64(1), counts.Orphans)
	assert.Equal(t, uint64(1), counts.Matched)
	assert.Equal(t, uint64(1), counts.Advances)
	assert.Equal(t, uint64(1), counts.Rejected)
}

func TestConcurrentInputIsSerialized(t *testing.T) {
	in := New(WithLogger(quietLogger()))
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	var mu sync.Mutex
	var count int
	in.Subscribe(func(model.PianoEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for d := 0; d < 4; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				p := model.Pitch(20 + d)
				_ = in.Input(model.Press(p, 64))
				_ = in.Input(model.Release(p))
				if i%25 == 0 {
					_ = in.Seek(d + 1)
				}
				in.GetPosition()
			}
		}(d)
	}
	wg.Wait()

	assert.Equal(t, 800, count)
	assert.Empty(t, in.HeldNotes())
}

func TestLoadedScoreIsIsolatedFromCaller(t *testing.T) {
	in, rec := newTestInterpreter(t)
	score := tenMeasures()
	require.NoError(t, in.LoadScore(score, ""))
	require.NoError(t, in.Input(model.Press(60, 90)))

	score.Measures[0].Groups = score.Measures[0].Groups[:1]
	score.Measures = score.Measures[:1]
	in.Score().Measures[0].Groups[1].Notes[0].Pitch = 99

	require.NoError(t, in.Input(model.Press(62, 90)))
	assert := assert.New(t)
	assert.Len(rec.events, 2)
	assert.Equal(model.Position{Current: 2, Lookahead: 3}, position(in))
	assert.Len(in.Score().Measures, 10)
	assert.Equal(model.Pitch(62), in.Score().Measures[0].Groups[1].Notes[0].Pitch)
}

func TestSinkCallsAreSerialized(t *testing.T) {
	// records is unsynchronized: every sink call must happen under the lock
	var records int
	in := New(
		WithLogger(quietLogger()),
		WithDiagnostics(diagnostics.SinkFunc(func(diagnostics.Record) { records++ })),
	)
	require.NoError(t, in.LoadScore(tenMeasures(), ""))

	var wg sync.WaitGroup
	for d := 0; d < 4; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = in.LoadScore(&model.Score{}, "bad")
				_ = in.Input(model.Press(model.Pitch(30+d), 64))
				_ = in.Seek(d + 1)
			}
		}(d)
	}
	wg.Wait()

	in.mu.Lock()
	defer in.mu.Unlock()
	assert.Equal(t, 1+4*50*3, records)
}
