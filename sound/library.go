// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package sound turns press events into notes, either by playing recorded
// samples or by sending MIDI messages.
package sound

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/pitch"
	"go.uber.org/zap"
)

// Instruments with sample sets.
const (
	Piano = "piano"
	Bass  = "bass"
)

// Library provides the samples of one instrument.
//
// Samples are stored as <root>/<instrument>/<pitch>.wav, e.g.
// samples/piano/C#4.wav, and are decoded into memory on first use.
type Library struct {
	root       string
	instrument string
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[pitch.Pitch]*beep.Buffer
}

// LibraryOption modifies the construction of a Library.
type LibraryOption func(*Library)

// WithLibraryLogger sets the logger used to report samples that fail to load.
func WithLibraryLogger(l *zap.Logger) LibraryOption {
	return func(lib *Library) {
		lib.logger = l
	}
}

// NewLibrary creates a library for the instrument with samples under root.
func NewLibrary(root, instrument string, opts ...LibraryOption) *Library {
	lib := &Library{
		root:       root,
		instrument: instrument,
		logger:     zap.NewNop(),
		cache:      make(map[pitch.Pitch]*beep.Buffer),
	}
	for _, option := range opts {
		option(lib)
	}
	return lib
}

// Instrument returns the name of the instrument.
func (lib *Library) Instrument() string {
	return lib.instrument
}

// Path returns the path of the sample file for the pitch.
func (lib *Library) Path(p pitch.Pitch) string {
	return filepath.Join(lib.root, lib.instrument, p.String()+".wav")
}

// Sample returns the decoded sample for the pitch.
//
// Returns false if the sample cannot be loaded. Failures are logged and are
// not cached, so a sample added later is picked up on the next request.
func (lib *Library) Sample(p pitch.Pitch) (*beep.Buffer, bool) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if b, ok := lib.cache[p]; ok {
		return b, true
	}
	b, err := lib.load(p)
	if err != nil {
		lib.logger.Warn("sample unavailable",
			zap.String("instrument", lib.instrument),
			zap.Stringer("pitch", p),
			zap.Error(err))
		return nil, false
	}
	lib.cache[p] = b
	return b, true
}

func (lib *Library) load(p pitch.Pitch) (*beep.Buffer, error) {
	if !p.Valid() {
		return nil, pitch.ErrInvalid
	}
	f, err := os.Open(lib.Path(p))
	if err != nil {
		return nil, err
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "decode %s", lib.Path(p))
	}
	defer s.Close()
	b := beep.NewBuffer(format)
	b.Append(s)
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", lib.Path(p))
	}
	return b, nil
}
