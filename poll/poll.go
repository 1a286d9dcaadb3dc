// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package poll provides the loop that round robins a set of touch channels
// and dispatches press events.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Poller is a channel that can be polled for press transitions.
//
// Satisfied by *touch.Channel.
type Poller interface {
	Poll() (bool, error)
	Channel() int
	Label() string
}

// Action is called once for each press, with the channel and its label.
type Action func(channel int, label string)

// Stats records the activity of a Loop.
type Stats struct {
	// Passes is the number of complete passes over the channels.
	Passes uint64
	// Presses is the number of press events dispatched.
	Presses uint64
	// Elapsed is the time spent running.
	Elapsed time.Duration
}

// PassRate returns the mean number of passes per second.
func (s Stats) PassRate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Passes) / s.Elapsed.Seconds()
}

// Loop polls channels in a fixed order and dispatches an Action for each
// press.
type Loop struct {
	channels []Poller
	onPress  Action
	logger   *zap.Logger
	clock    clock.Clock
	period   time.Duration
	queue    int

	mu    sync.Mutex
	stats Stats
}

// Option modifies the construction of a Loop.
type Option func(*Loop)

// WithLogger sets the logger for press events and statistics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Loop) {
		p.logger = l
	}
}

// WithClock sets the clock used for statistics.
func WithClock(c clock.Clock) Option {
	return func(p *Loop) {
		p.clock = c
	}
}

// WithStats logs the loop statistics every period while running.
func WithStats(period time.Duration) Option {
	return func(p *Loop) {
		p.period = period
	}
}

// WithQueue dispatches presses from a separate goroutine, buffering up to n
// presses, so a slow Action does not delay polling.
//
// Actions are still called one at a time and in press order.
// If the buffer is full polling blocks until the Action catches up.
func WithQueue(n int) Option {
	return func(p *Loop) {
		p.queue = n
	}
}

// New creates a Loop over the channels, which are polled in the order given.
func New(channels []Poller, onPress Action, opts ...Option) *Loop {
	p := &Loop{
		channels: channels,
		onPress:  onPress,
		logger:   zap.NewNop(),
		clock:    clock.New(),
	}
	for _, option := range opts {
		option(p)
	}
	return p
}

// Stats returns a snapshot of the loop statistics.
func (p *Loop) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Pass polls each channel once, calling the Action synchronously for each
// press before moving on to the next channel.
//
// Returns the number of presses detected.
// Stops at the first channel that fails to poll.
func (p *Loop) Pass() (int, error) {
	return p.pass(p.onPress)
}

func (p *Loop) pass(dispatch Action) (int, error) {
	n := 0
	for _, c := range p.channels {
		pressed, err := c.Poll()
		if err != nil {
			return n, errors.Wrapf(err, "poll channel %d", c.Channel())
		}
		if pressed {
			n++
			p.logger.Debug("press", zap.Int("channel", c.Channel()), zap.String("label", c.Label()))
			dispatch(c.Channel(), c.Label())
		}
	}
	return n, nil
}

type press struct {
	channel int
	label   string
}

// Run polls the channels until the context is done or a channel fails.
//
// The context is checked once per pass.
// Returns the context error on cancellation, else the poll error.
func (p *Loop) Run(ctx context.Context) error {
	dispatch := p.onPress
	if p.queue > 0 {
		presses := make(chan press, p.queue)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range presses {
				p.onPress(e.channel, e.label)
			}
		}()
		defer func() {
			close(presses)
			wg.Wait()
		}()
		dispatch = func(channel int, label string) {
			presses <- press{channel, label}
		}
	}
	last := p.clock.Now()
	var window Stats
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := p.pass(dispatch)
		now := p.clock.Now()
		p.mu.Lock()
		p.stats.Presses += uint64(n)
		if err == nil {
			p.stats.Passes++
		}
		p.stats.Elapsed += now.Sub(last)
		p.mu.Unlock()
		if err != nil {
			p.logger.Error("poll failed", zap.Error(err))
			return err
		}
		window.Presses += uint64(n)
		window.Passes++
		window.Elapsed += now.Sub(last)
		last = now
		if p.period > 0 && window.Elapsed >= p.period {
			p.logger.Info("poll stats",
				zap.Uint64("passes", window.Passes),
				zap.Uint64("presses", window.Presses),
				zap.Float64("rate", window.PassRate()))
			window = Stats{}
		}
	}
}
