// Package interpreter follows a performer through a score.
//
// Every call (Input, Seek, LoadScore and the queries) goes through one mutex,
// so events arriving from several input devices are handled one at a time and
// nobody observes a half-updated cursor. Output subscribers run synchronously
// under that mutex, in registration order, and must not call back into the
// Interpreter.
package interpreter

import (
	"log/slog"
	"sync"

	"github.com/jsphweid/sightreader/chord"
	"github.com/jsphweid/sightreader/diagnostics"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/normalizer"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

type State uint8

const (
	Empty State = iota
	Positioned
)

func (s State) String() string {
	if s == Positioned {
		return "positioned"
	}
	return "empty"
}

type Subscriber func(ev model.PianoEvent)

type subscription struct {
	id uint64
	fn Subscriber
}

type Option func(*Interpreter)

func WithLogger(logger *slog.Logger) Option {
	return func(in *Interpreter) {
		if logger != nil {
			in.logger = logger
		}
	}
}

func WithDiagnostics(sink diagnostics.Sink) Option {
	return func(in *Interpreter) {
		in.diag = sink
	}
}

func WithNormalizer(cfg normalizer.Config) Option {
	return func(in *Interpreter) {
		in.norm = normalizer.New(cfg)
	}
}

type Interpreter struct {
	mu     sync.Mutex
	logger *slog.Logger
	diag   diagnostics.Sink
	norm   *normalizer.Normalizer

	score  *model.Score
	cursor cursor

	subs   []subscription
	nextID uint64
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		logger: slog.Default(),
		norm:   normalizer.New(normalizer.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Subscribe registers fn for every interpreted event. The returned func
// removes it.
func (in *Interpreter) Subscribe(fn Subscriber) (cancel func()) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.nextID++
	id := in.nextID
	in.subs = append(in.subs, subscription{id: id, fn: fn})
	return func() {
		in.mu.Lock()
		defer in.mu.Unlock()
		for i, s := range in.subs {
			if s.id == id {
				in.subs = append(in.subs[:i:i], in.subs[i+1:]...)
				return
			}
		}
	}
}

// LoadScore replaces the score with a copy of score and puts the cursor on
// its first group. An invalid score is rejected and whatever was loaded
// before stays in place.
func (in *Interpreter) LoadScore(score *model.Score, sourceLabel string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := score.Validate(); err != nil {
		in.logger.Warn("interpreter: score rejected", "source", sourceLabel, "err", err)
		return in.reject(diagnostics.OpLoad, err)
	}
	s := score.Clone()
	if sourceLabel != "" {
		s.Source = sourceLabel
	}

	in.score = s
	in.cursor = newCursor(0)
	pos := in.cursor.position(in.score)
	in.logger.Info("interpreter: score loaded", "source", s.Source, "measures", len(s.Measures), "groups", s.NumGroups())
	in.record(diagnostics.Record{Op: diagnostics.OpLoad, Position: pos})
	return nil
}

// Seek moves the cursor to the first measure printed as measureNumber. The
// cursor is left alone when there is no such measure.
func (in *Interpreter) Seek(measureNumber int) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.score == nil {
		return in.reject(diagnostics.OpSeek, model.ErrNoScore)
	}
	idx, ok := in.score.IndexOf(measureNumber)
	if !ok {
		return in.reject(diagnostics.OpSeek, errors.Wrapf(model.ErrMeasureNotFound, "measure %d", measureNumber))
	}
	in.cursor = newCursor(idx)
	pos := in.cursor.position(in.score)
	in.logger.Info("interpreter: seek", "measure", measureNumber, "index", idx)
	in.record(diagnostics.Record{Op: diagnostics.OpSeek, Position: pos})
	return nil
}

// Input handles one performance event and forwards the interpreted event to
// every subscriber.
func (in *Interpreter) Input(ev model.PianoEvent) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := ev.Validate(); err != nil {
		return in.reject(diagnostics.OpInput, err)
	}
	if in.score == nil {
		return in.reject(diagnostics.OpInput, model.ErrNoScore)
	}

	out, outcome := in.norm.Normalize(ev)
	rec := diagnostics.Record{Op: diagnostics.OpInput, Event: out, Outcome: outcome}
	if outcome == normalizer.SimulatedPress {
		in.logger.Debug("interpreter: zero-velocity note-on for resting key, simulating press", "pitch", out.Pitch, "velocity", out.Velocity)
	}

	switch out.Kind {
	case model.NotePress:
		rec.Group = in.cursor.currentGroup(in.score).Pitches()
		rec.Matched, rec.Advanced = in.cursor.press(in.score, out.Pitch)
		if rec.Advanced {
			in.logger.Debug("interpreter: group complete", "group", chord.CreateChordKey(rec.Group), "measure", in.score.Measures[in.cursor.measure].Number, "group_index", in.cursor.group)
		} else if rec.Matched && in.cursor.finished {
			in.logger.Info("interpreter: reached end of score", "source", in.score.Source)
		}
	case model.NoteRelease, model.PedalChange:
		// attack-only matching
	}
	rec.Position = in.cursor.position(in.score)

	for _, s := range in.subs {
		s.fn(out)
	}
	in.record(rec)
	return nil
}

// InputMessage decodes a raw device message and handles it like Input.
// Messages that carry no piano event are ignored.
func (in *Interpreter) InputMessage(msg midi.Message) error {
	ev, ok := normalizer.FromMessage(msg)
	if !ok {
		return nil
	}
	return in.Input(ev)
}

// GetPosition returns the printed number of the current measure and of the
// one after it. Both are 0 while no score is loaded.
func (in *Interpreter) GetPosition() (current, lookahead int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.score == nil {
		return 0, 0
	}
	pos := in.cursor.position(in.score)
	return pos.Current, pos.Lookahead
}

func (in *Interpreter) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.score == nil {
		return Empty
	}
	return Positioned
}

func (in *Interpreter) Cursor() (model.Cursor, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.score == nil {
		return model.Cursor{}, false
	}
	return in.cursor.snapshot(), true
}

// Score returns a copy of the loaded score, nil while Empty.
func (in *Interpreter) Score() *model.Score {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.score.Clone()
}

// HeldNotes returns the keys currently down.
func (in *Interpreter) HeldNotes() map[model.Pitch]model.Velocity {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.norm.Held()
}

// ResetInput forgets held keys; call it when an input device goes away.
func (in *Interpreter) ResetInput() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.norm.Reset()
}

func (in *Interpreter) reject(op diagnostics.Op, err error) error {
	in.record(diagnostics.Record{Op: op, Err: err})
	return err
}

func (in *Interpreter) record(r diagnostics.Record) {
	if in.diag != nil {
		in.diag.Record(r)
	}
}
