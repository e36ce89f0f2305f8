package normalizer

import (
	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/model"
	"gitlab.com/gomidi/midi/v2"
)

// PedalForController maps a control change number to a pedal. Unknown
// controllers are treated as sustain.
func PedalForController(cc uint8) model.PedalKind {
	switch cc {
	case constants.SostenutoCC:
		return model.Sostenuto
	case constants.UnaCordaCC:
		return model.UnaCorda
	}
	return model.Sustain
}

// FromMessage decodes a raw device message. Zero-velocity note-ons are kept
// as presses with velocity 0 so Normalize can resolve them. ok is false for
// messages that carry no piano event.
func FromMessage(msg midi.Message) (ev model.PianoEvent, ok bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return model.Press(key, vel), true
	case msg.GetNoteOff(&ch, &key, &vel):
		return model.Release(key), true
	case msg.GetControlChange(&ch, &cc, &val):
		return model.Pedal(PedalForController(cc), val), true
	}
	return model.PianoEvent{}, false
}
