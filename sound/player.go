// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/pitch"
	"go.uber.org/zap"
)

// Output mixes the streams being played.
type Output interface {
	// SampleRate is the rate streams are played at.
	SampleRate() beep.SampleRate
	// Play adds the stream to the mix.
	Play(s beep.Streamer)
	// Lock prevents the mix from being streamed while a stream is modified.
	Lock()
	Unlock()
}

// Speaker is the system audio output.
type Speaker struct {
	sr beep.SampleRate
}

// NewSpeaker initialises the system audio output.
//
// The latency is the size of the output buffer.
// There is only one system speaker, so only one should be created.
func NewSpeaker(sr beep.SampleRate, latency time.Duration) (*Speaker, error) {
	if err := speaker.Init(sr, sr.N(latency)); err != nil {
		return nil, errors.Wrap(err, "init speaker")
	}
	return &Speaker{sr: sr}, nil
}

// SampleRate returns the output sample rate.
func (s *Speaker) SampleRate() beep.SampleRate {
	return s.sr
}

// Play adds the stream to the speaker mix.
func (s *Speaker) Play(st beep.Streamer) {
	speaker.Play(st)
}

// Lock locks the speaker mix.
func (s *Speaker) Lock() {
	speaker.Lock()
}

// Unlock unlocks the speaker mix.
func (s *Speaker) Unlock() {
	speaker.Unlock()
}

// Close stops the speaker.
func (s *Speaker) Close() {
	speaker.Close()
}

// resampleQuality is the beep.Resample quality used when a sample rate
// differs from the output.
const resampleQuality = 4

// Player plays the samples of a Library.
//
// Each pitch plays at most once at a time - playing a pitch that is already
// sounding restarts it from the beginning.
type Player struct {
	lib    *Library
	out    Output
	logger *zap.Logger

	mu      sync.Mutex
	playing map[pitch.Pitch]*beep.Ctrl
}

// PlayerOption modifies the construction of a Player.
type PlayerOption func(*Player)

// WithPlayerLogger sets the logger used to report notes played.
func WithPlayerLogger(l *zap.Logger) PlayerOption {
	return func(p *Player) {
		p.logger = l
	}
}

// NewPlayer creates a player of the library's samples to the output.
func NewPlayer(lib *Library, out Output, opts ...PlayerOption) *Player {
	p := &Player{
		lib:     lib,
		out:     out,
		logger:  zap.NewNop(),
		playing: make(map[pitch.Pitch]*beep.Ctrl),
	}
	for _, option := range opts {
		option(p)
	}
	return p
}

// Play starts the sample for the pitch, restarting it if already playing.
//
// Returns false if the sample is unavailable.
func (p *Player) Play(n pitch.Pitch) bool {
	b, ok := p.lib.Sample(n)
	if !ok {
		return false
	}
	var s beep.Streamer = b.Streamer(0, b.Len())
	if sr := b.Format().SampleRate; sr != p.out.SampleRate() {
		s = beep.Resample(resampleQuality, sr, p.out.SampleRate(), s)
	}
	ctrl := &beep.Ctrl{Streamer: s}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.playing[n]; ok {
		p.out.Lock()
		prev.Streamer = nil
		p.out.Unlock()
	}
	p.playing[n] = ctrl
	p.out.Play(ctrl)
	p.logger.Info("play", zap.String("instrument", p.lib.Instrument()), zap.Stringer("pitch", n))
	return true
}

// Press plays the pitch named by the label.
//
// Matches the poll.Action signature.
func (p *Player) Press(channel int, label string) {
	n, err := pitch.Parse(label)
	if err != nil {
		p.logger.Warn("unplayable label", zap.Int("channel", channel), zap.Error(err))
		return
	}
	p.Play(n)
}
