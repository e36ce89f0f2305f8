package chord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jsphweid/sightreader/model"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// CreateChordKey renders notes as "60-64-67". notes is not modified.
func CreateChordKey(notes []uint8) string {
	sorted := append([]uint8(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	parts := make([]string, len(sorted))
	for i, note := range sorted {
		parts[i] = fmt.Sprintf("%v", note)
	}
	return strings.Join(parts, "-")
}

type pending struct {
	absTicks int64
	// pitch -> first track it was struck on
	notes map[uint8]int
}

func (p *pending) chord() model.Chord {
	c := model.Chord{AbsTicks: p.absTicks}
	for note := range p.notes {
		c.Notes = append(c.Notes, note)
	}
	sort.Slice(c.Notes, func(i, j int) bool {
		return c.Notes[i] < c.Notes[j]
	})
	for _, note := range c.Notes {
		c.Tracks = append(c.Tracks, p.notes[note])
	}
	return c
}

// GetChords merges all tracks and groups note-ons by absolute tick, ordered
// by tick. A pitch struck twice on the same tick counts once.
func GetChords(s *smf.SMF) (chords []model.Chord, err error) {
	// gomidi can panic on malformed tracks
	defer func() {
		if r := recover(); r != nil {
			chords, err = nil, errors.Errorf("reading chords: %v", r)
		}
	}()

	byTick := make(map[int64]*pending)
	for trackNum, events := range s.Tracks {
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			var channel, key, velocity uint8
			if !event.Message.GetNoteOn(&channel, &key, &velocity) || velocity == 0 {
				continue
			}
			p, ok := byTick[absTicks]
			if !ok {
				p = &pending{absTicks: absTicks, notes: make(map[uint8]int)}
				byTick[absTicks] = p
			}
			if _, seen := p.notes[key]; !seen {
				p.notes[key] = trackNum
			}
		}
	}

	for _, p := range byTick {
		chords = append(chords, p.chord())
	}
	sort.Slice(chords, func(i, j int) bool {
		return chords[i].AbsTicks < chords[j].AbsTicks
	})
	return chords, nil
}
