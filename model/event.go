package model

import (
	"fmt"

	"github.com/pkg/errors"
)

type EventKind uint8

const (
	NotePress EventKind = iota + 1
	NoteRelease
	PedalChange
)

func (k EventKind) String() string {
	switch k {
	case NotePress:
		return "press"
	case NoteRelease:
		return "release"
	case PedalChange:
		return "pedal"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "press":
		return NotePress, nil
	case "release":
		return NoteRelease, nil
	case "pedal":
		return PedalChange, nil
	}
	return 0, errors.Wrapf(ErrInvalidEvent, "unknown event kind %q", s)
}

type PedalKind uint8

const (
	Sustain PedalKind = iota
	Sostenuto
	UnaCorda
)

func (p PedalKind) String() string {
	switch p {
	case Sustain:
		return "sustain"
	case Sostenuto:
		return "sostenuto"
	case UnaCorda:
		return "una_corda"
	}
	return fmt.Sprintf("pedal(%d)", uint8(p))
}

func ParsePedalKind(s string) (PedalKind, error) {
	switch s {
	case "", "sustain":
		return Sustain, nil
	case "sostenuto":
		return Sostenuto, nil
	case "una_corda", "soft":
		return UnaCorda, nil
	}
	return 0, errors.Wrapf(ErrInvalidEvent, "unknown pedal %q", s)
}

// PianoEvent is a tagged union; Kind selects which fields are meaningful.
//
//	NotePress:   Pitch, Velocity, Simulated
//	NoteRelease: Pitch
//	PedalChange: Pedal, Position
type PianoEvent struct {
	Kind     EventKind
	Pitch    Pitch
	Velocity Velocity
	Pedal    PedalKind
	Position uint8

	// Set on presses synthesized from an ambiguous zero-velocity note-on.
	Simulated bool
}

func Press(pitch Pitch, velocity Velocity) PianoEvent {
	return PianoEvent{Kind: NotePress, Pitch: pitch, Velocity: velocity}
}

func Release(pitch Pitch) PianoEvent {
	return PianoEvent{Kind: NoteRelease, Pitch: pitch}
}

func Pedal(kind PedalKind, position uint8) PianoEvent {
	return PianoEvent{Kind: PedalChange, Pedal: kind, Position: position}
}

// Validate rejects out-of-range values with ErrInvalidEvent.
func (e PianoEvent) Validate() error {
	switch e.Kind {
	case NotePress:
		if e.Pitch > MaxMidiValue {
			return errors.Wrapf(ErrInvalidEvent, "pitch %d out of range", e.Pitch)
		}
		if e.Velocity > MaxMidiValue {
			return errors.Wrapf(ErrInvalidEvent, "velocity %d out of range", e.Velocity)
		}
	case NoteRelease:
		if e.Pitch > MaxMidiValue {
			return errors.Wrapf(ErrInvalidEvent, "pitch %d out of range", e.Pitch)
		}
	case PedalChange:
		if e.Pedal > UnaCorda {
			return errors.Wrapf(ErrInvalidEvent, "unknown pedal kind %d", e.Pedal)
		}
		if e.Position > MaxMidiValue {
			return errors.Wrapf(ErrInvalidEvent, "pedal position %d out of range", e.Position)
		}
	default:
		return errors.Wrapf(ErrInvalidEvent, "unknown event kind %d", e.Kind)
	}
	return nil
}

func (e PianoEvent) String() string {
	switch e.Kind {
	case NotePress:
		if e.Simulated {
			return fmt.Sprintf("press(%d, %d, simulated)", e.Pitch, e.Velocity)
		}
		return fmt.Sprintf("press(%d, %d)", e.Pitch, e.Velocity)
	case NoteRelease:
		return fmt.Sprintf("release(%d)", e.Pitch)
	case PedalChange:
		return fmt.Sprintf("pedal(%v, %d)", e.Pedal, e.Position)
	}
	return e.Kind.String()
}

// EventFromRequest converts the wire form used by the command server.
func EventFromRequest(r InputRequest) (PianoEvent, error) {
	kind, err := ParseEventKind(r.Kind)
	if err != nil {
		return PianoEvent{}, err
	}
	switch kind {
	case NotePress:
		return Press(r.Pitch, r.Velocity), nil
	case NoteRelease:
		return Release(r.Pitch), nil
	default:
		pedal, err := ParsePedalKind(r.Pedal)
		if err != nil {
			return PianoEvent{}, err
		}
		return Pedal(pedal, r.Position), nil
	}
}
