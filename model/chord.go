package model

type Notes = []uint8

// Chord is a set of note-ons sharing one absolute tick in a MIDI file.
type Chord struct {
	AbsTicks int64
	Notes    Notes
	// Track index of every note, parallel to Notes.
	Tracks []int
}
