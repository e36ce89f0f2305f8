// Package sample renders part of a score back into a Standard MIDI File so
// a passage can be auditioned before it is practised.
package sample

import (
	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/util"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const ticks4th = 480

// Create renders count measures starting at the first measure printed as
// from. count < 1 means through the end. Every measure becomes one 4/4 bar
// with its onset groups spread evenly across it, each held until the next.
func Create(s *model.Score, from, count int) (*smf.SMF, error) {
	if s == nil {
		return nil, model.ErrNoScore
	}
	start, ok := s.IndexOf(from)
	if !ok {
		return nil, errors.Wrapf(model.ErrMeasureNotFound, "measure %d", from)
	}
	end := len(s.Measures)
	if count > 0 {
		end = util.Min(end, start+count)
	}

	res := smf.SMF{TimeFormat: smf.MetricTicks(ticks4th)}
	var track smf.Track
	track.Add(0, smf.MetaMeter(constants.DefaultMeterNum, constants.DefaultMeterDenom))

	barTicks := ticks4th * 4
	var sounding model.Notes
	var delta uint32
	for _, m := range s.Measures[start:end] {
		step := barTicks / len(m.Groups)
		for i, g := range m.Groups {
			for _, p := range sounding {
				track.Add(delta, midi.NoteOff(0, p))
				delta = 0
			}
			sounding = g.Pitches()
			for _, p := range sounding {
				track.Add(delta, midi.NoteOn(0, p, constants.FallbackVelocity))
				delta = 0
			}
			delta = uint32(step)
			if i == len(m.Groups)-1 {
				delta = uint32(barTicks - step*i)
			}
		}
	}
	for _, p := range sounding {
		track.Add(delta, midi.NoteOff(0, p))
		delta = 0
	}
	track.Close(delta)

	res.Tracks = append(res.Tracks, track)
	return &res, nil
}
