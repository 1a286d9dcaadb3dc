// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package pitch provides the pitches playable by the keyboard, in scientific
// pitch notation.
package pitch

import (
	"strings"

	"github.com/pkg/errors"
)

// Pitch is a note from C4 to C5 inclusive.
type Pitch int

const (
	C4 Pitch = iota
	Cs4
	D4
	Ds4
	E4
	F4
	Fs4
	G4
	Gs4
	A4
	As4
	B4
	C5
	// number of defined pitches
	count
)

var names = [count]string{
	"C4", "C#4", "D4", "D#4", "E4", "F4", "F#4",
	"G4", "G#4", "A4", "A#4", "B4", "C5",
}

// midiC4 is the MIDI note number of middle C.
const midiC4 = 0x3c

// ErrInvalid indicates a string or MIDI note does not name a supported pitch.
var ErrInvalid = errors.New("invalid pitch")

// All returns every supported pitch in ascending order.
func All() []Pitch {
	pp := make([]Pitch, count)
	for i := range pp {
		pp[i] = Pitch(i)
	}
	return pp
}

// CMajor returns the C major scale from C4 to C5, i.e. the white keys.
func CMajor() []Pitch {
	return []Pitch{C4, D4, E4, F4, G4, A4, B4, C5}
}

// Valid returns true if p is a supported pitch.
func (p Pitch) Valid() bool {
	return p >= C4 && p < count
}

// MIDI returns the MIDI note number of the pitch.
func (p Pitch) MIDI() uint8 {
	return uint8(midiC4 + int(p))
}

// String returns the name of the pitch, with '#' for sharps, e.g. "C#4".
//
// This is also the base name of the pitch's sample files.
func (p Pitch) String() string {
	if !p.Valid() {
		return "invalid"
	}
	return names[p]
}

// Parse returns the pitch with the given name.
//
// Accepts either '#' or 's' for sharps, so "C#4" and "Cs4" are equivalent.
func Parse(s string) (Pitch, error) {
	n := strings.ToUpper(strings.Replace(s, "s", "#", 1))
	for i, name := range names {
		if n == name {
			return Pitch(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalid, "'%s'", s)
}

// FromMIDI returns the pitch with the given MIDI note number.
func FromMIDI(note uint8) (Pitch, error) {
	p := Pitch(int(note) - midiC4)
	if !p.Valid() {
		return 0, errors.Wrapf(ErrInvalid, "MIDI note %d", note)
	}
	return p, nil
}
