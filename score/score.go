// Package score builds model.Score values from MIDI and JSON files.
package score

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jsphweid/sightreader/chord"
	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/midi"
	"github.com/jsphweid/sightreader/model"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Meter is a time signature taking effect at AbsTicks. Changes are assumed to
// fall on barlines.
type Meter struct {
	AbsTicks int64
	Num      uint8
	Denom    uint8
}

func (m Meter) measureTicks(ticks4th int64) int64 {
	if m.Num == 0 || m.Denom == 0 {
		return ticks4th * 4
	}
	if n := ticks4th * 4 * int64(m.Num) / int64(m.Denom); n > 0 {
		return n
	}
	return ticks4th * 4
}

// LoadFile reads a .json score or a Standard MIDI File.
func LoadFile(path string) (*model.Score, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()
		s, err := Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", path)
		}
		if s.Source == "" {
			s.Source = path
		}
		return s, nil
	}

	mf, err := midi.ReadMidiFile(path)
	if err != nil {
		return nil, err
	}
	return FromSMF(mf, path)
}

// Decode reads and validates a JSON score.
func Decode(r io.Reader) (*model.Score, error) {
	var s model.Score
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(model.ErrInvalidScore, err.Error())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func FromSMF(mf *smf.SMF, source string) (*model.Score, error) {
	ticks, ok := mf.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.Wrapf(model.ErrInvalidScore, "%s: only metric time formats are supported", source)
	}
	chords, err := chord.GetChords(mf)
	if err != nil {
		return nil, errors.Wrapf(model.ErrInvalidScore, "%s: %v", source, err)
	}

	s := Build(chords, Meters(mf), int64(ticks.Ticks4th()))
	s.Source = source
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, source)
	}
	return s, nil
}

// Meters collects the time signature changes of every track, by tick.
func Meters(mf *smf.SMF) []Meter {
	var res []Meter
	for _, events := range mf.Tracks {
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			var num, denom uint8
			if event.Message.GetMetaMeter(&num, &denom) && num > 0 && denom > 0 {
				res = append(res, Meter{AbsTicks: absTicks, Num: num, Denom: denom})
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].AbsTicks < res[j].AbsTicks
	})
	return res
}

// Build cuts tick-ordered chords into numbered measures. Measures without any
// onset are left out; the numbering still counts them.
func Build(chords []model.Chord, meters []Meter, ticks4th int64) *model.Score {
	if ticks4th <= 0 {
		ticks4th = 480
	}
	current := Meter{Num: constants.DefaultMeterNum, Denom: constants.DefaultMeterDenom}
	next := 0
	applyMeters := func(start int64) {
		for next < len(meters) && meters[next].AbsTicks <= start {
			current = meters[next]
			next++
		}
	}

	hands := handsByTrack(chords)
	s := &model.Score{}
	start, number := int64(0), 1
	applyMeters(start)
	for _, c := range chords {
		for c.AbsTicks >= start+current.measureTicks(ticks4th) {
			start += current.measureTicks(ticks4th)
			number++
			applyMeters(start)
		}
		if len(s.Measures) == 0 || s.Measures[len(s.Measures)-1].Number != number {
			s.Measures = append(s.Measures, model.Measure{Number: number})
		}
		m := &s.Measures[len(s.Measures)-1]
		m.Groups = append(m.Groups, group(c, hands))
	}
	return s
}

// handsByTrack tags the first of exactly two note tracks as the right hand
// and the second as the left, the usual piano file layout.
func handsByTrack(chords []model.Chord) map[int]model.Hand {
	tracks := make(map[int]bool)
	for _, c := range chords {
		for _, t := range c.Tracks {
			tracks[t] = true
		}
	}
	if len(tracks) != 2 {
		return nil
	}
	lo, hi := -1, -1
	for t := range tracks {
		if lo == -1 || t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return map[int]model.Hand{lo: model.RightHand, hi: model.LeftHand}
}

func group(c model.Chord, hands map[int]model.Hand) model.OnsetGroup {
	var g model.OnsetGroup
	for i, p := range c.Notes {
		n := model.NoteOnset{Pitch: p}
		if i < len(c.Tracks) {
			n.Hand = hands[c.Tracks[i]]
		}
		g.Notes = append(g.Notes, n)
	}
	return g
}
