// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package touch converts the noisy analog output of touch or pulse sensors
// into discrete press events.
package touch

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reader performs a conversion on an ADC channel.
type Reader interface {
	Read(ch int) (uint16, error)
}

// State of a Channel.
type State int

const (
	// Released is the initial state, armed to detect a press.
	Released State = iota
	// Pressed indicates a press has been reported and the channel is waiting
	// for the signal to return to its baseline.
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Thresholds define the hysteresis band of a channel.
//
// A sample below Press triggers a press. The channel only re-arms once a
// sample falls strictly between ReleaseLow and ReleaseHigh, i.e. the signal has
// returned to its baseline.
type Thresholds struct {
	Press       uint16
	ReleaseLow  uint16
	ReleaseHigh uint16
}

// DefaultThresholds suit a pulse sensor on a 12 bit ADC, which idles around
// mid scale and drops sharply when pressed.
var DefaultThresholds = Thresholds{Press: 900, ReleaseLow: 1900, ReleaseHigh: 2100}

// ErrInvalidThresholds indicates the thresholds do not form a dead zone.
var ErrInvalidThresholds = errors.New("thresholds must satisfy press < release.low < release.high")

// Validate checks there is a dead zone between Press and the release band.
func (t Thresholds) Validate() error {
	if t.Press < t.ReleaseLow && t.ReleaseLow < t.ReleaseHigh {
		return nil
	}
	return errors.Wrapf(ErrInvalidThresholds, "%d, %d, %d", t.Press, t.ReleaseLow, t.ReleaseHigh)
}

// MaxChannels is the number of inputs on an MCP3208.
const MaxChannels = 8

// Channel wraps one ADC channel with a hysteresis state machine.
//
// A Channel is not safe for concurrent use - it is intended to be polled from
// a single loop.
type Channel struct {
	adc    Reader
	ch     int
	label  string
	th     Thresholds
	state  State
	logger *zap.Logger
}

// Option modifies the construction of a Channel.
type Option func(*Channel)

// WithThresholds overrides the DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Channel) {
		c.th = t
	}
}

// WithLogger logs state transitions at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// NewChannel creates a Channel on the ADC channel ch.
//
// The label identifies the channel to press handlers, e.g. the note it plays.
func NewChannel(adc Reader, ch int, label string, opts ...Option) (*Channel, error) {
	c := &Channel{
		adc:    adc,
		ch:     ch,
		label:  label,
		th:     DefaultThresholds,
		logger: zap.NewNop(),
	}
	for _, option := range opts {
		option(c)
	}
	if err := c.th.Validate(); err != nil {
		return nil, err
	}
	c.logger = c.logger.With(zap.Int("channel", ch), zap.String("label", label))
	return c, nil
}

// Sequential creates channels 0..n-1 on the ADC, labelled in order.
//
// n is the number of labels, limited to MaxChannels.
func Sequential(adc Reader, labels []string, opts ...Option) ([]*Channel, error) {
	if len(labels) > MaxChannels {
		labels = labels[:MaxChannels]
	}
	cc := make([]*Channel, len(labels))
	for i, l := range labels {
		c, err := NewChannel(adc, i, l, opts...)
		if err != nil {
			return nil, err
		}
		cc[i] = c
	}
	return cc, nil
}

// Channel returns the ADC channel.
func (c *Channel) Channel() int {
	return c.ch
}

// Label returns the label of the channel.
func (c *Channel) Label() string {
	return c.label
}

// State returns the current state.
func (c *Channel) State() State {
	return c.state
}

// Thresholds returns the hysteresis band of the channel.
func (c *Channel) Thresholds() Thresholds {
	return c.th
}

// Poll reads a fresh sample and updates the state.
//
// Returns true only on the sample that transitions from Released to Pressed.
// Returning to Released is silent.
func (c *Channel) Poll() (bool, error) {
	v, err := c.adc.Read(c.ch)
	if err != nil {
		return false, err
	}
	return c.update(v), nil
}

func (c *Channel) update(v uint16) bool {
	if c.state == Pressed {
		// re-arm only - any new press is detected on the next sample.
		if c.th.ReleaseLow < v && v < c.th.ReleaseHigh {
			c.state = Released
			c.logger.Debug("released", zap.Uint16("sample", v))
		}
		return false
	}
	if v < c.th.Press {
		c.state = Pressed
		c.logger.Debug("pressed", zap.Uint16("sample", v))
		return true
	}
	return false
}
