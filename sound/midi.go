// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package sound

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/pitch"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

var (
	// ErrInvalidChannel indicates a MIDI channel outside 0..15.
	ErrInvalidChannel = errors.New("invalid MIDI channel")

	// ErrInvalidVelocity indicates a MIDI velocity outside 0..127.
	ErrInvalidVelocity = errors.New("invalid MIDI velocity")
)

// MaxChannel is the highest MIDI channel.
const MaxChannel = 15

// MaxVelocity is the highest MIDI velocity.
const MaxVelocity = 127

// NoteOn returns the Note On message for the pitch.
func NoteOn(channel int, p pitch.Pitch, velocity int) ([]byte, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}
	if velocity < 0 || velocity > MaxVelocity {
		return nil, errors.Wrapf(ErrInvalidVelocity, "%d", velocity)
	}
	if !p.Valid() {
		return nil, pitch.ErrInvalid
	}
	return midi.NoteOn(uint8(channel), p.MIDI(), uint8(velocity)).Bytes(), nil
}

// NoteOff returns the Note Off message for the pitch.
func NoteOff(channel int, p pitch.Pitch) ([]byte, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, pitch.ErrInvalid
	}
	return midi.NoteOff(uint8(channel), p.MIDI()).Bytes(), nil
}

func checkChannel(channel int) error {
	if channel < 0 || channel > MaxChannel {
		return errors.Wrapf(ErrInvalidChannel, "%d", channel)
	}
	return nil
}

// MIDI plays notes by writing messages to a raw MIDI device, such as
// /dev/snd/midiC1D0.
type MIDI struct {
	mu       sync.Mutex
	w        io.Writer
	channel  int
	velocity int
	logger   *zap.Logger
}

// NewMIDI creates a MIDI note sender writing to w.
func NewMIDI(w io.Writer, channel, velocity int, logger *zap.Logger) (*MIDI, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}
	if velocity < 0 || velocity > MaxVelocity {
		return nil, errors.Wrapf(ErrInvalidVelocity, "%d", velocity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MIDI{w: w, channel: channel, velocity: velocity, logger: logger}, nil
}

// Play restarts the note, sending a Note Off followed by a Note On.
func (m *MIDI) Play(p pitch.Pitch) error {
	off, err := NoteOff(m.channel, p)
	if err != nil {
		return err
	}
	on, err := NoteOn(m.channel, p, m.velocity)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.w.Write(append(off, on...)); err != nil {
		return errors.Wrapf(err, "note %s", p)
	}
	return nil
}

// Press plays the pitch named by the label.
//
// Matches the poll.Action signature.
func (m *MIDI) Press(channel int, label string) {
	p, err := pitch.Parse(label)
	if err == nil {
		err = m.Play(p)
	}
	if err != nil {
		m.logger.Warn("midi note failed", zap.Int("channel", channel), zap.String("label", label), zap.Error(err))
		return
	}
	m.logger.Info("midi note", zap.Stringer("pitch", p))
}
