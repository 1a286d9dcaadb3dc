// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package adc0832 provides a bit bashed device driver for the ADC0832 SPI ADC.
package adc0832

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/spi"
)

// ADC0832 reads ADC values from a connected ADC0832.
//
// The ADC0832 is an 8 bit, 2 channel converter.
type ADC0832 struct {
	mu sync.Mutex
	s  *spi.SPI
	// time to allow mux to settle after clocking out ODD/SIGN
	tset time.Duration
}

var (
	// ErrClosed indicates the ADC is closed.
	ErrClosed = errors.New("closed")

	// ErrInvalidChannel indicates the channel does not exist on the ADC.
	ErrInvalidChannel = errors.New("invalid channel")
)

// DefaultTclk is the time between clock edges, safely above the 1us minimum
// clock high and low times of the ADC0832.
const DefaultTclk = 2500 * time.Nanosecond

// Option modifies the construction of an ADC0832.
type Option func(*options)

type options struct {
	tclk time.Duration
	tset time.Duration
}

// WithTclk sets the minimum time between clock edges.
func WithTclk(tclk time.Duration) Option {
	return func(o *options) {
		o.tclk = tclk
	}
}

// WithTset sets the additional time allowed for the input mux to settle.
func WithTset(tset time.Duration) Option {
	return func(o *options) {
		o.tset = tset
	}
}

// New creates a ADC0832.
func New(c *gpio.Chip, pins spi.Pins, opts ...Option) (*ADC0832, error) {
	o := options{tclk: DefaultTclk}
	for _, option := range opts {
		option(&o)
	}
	s, err := spi.New(c, o.tclk, pins)
	if err != nil {
		return nil, err
	}
	return &ADC0832{s: s, tset: o.tset}, nil
}

// Channels returns the number of channels on the ADC.
func (adc *ADC0832) Channels() int {
	return 2
}

// Close releases all resources allocated to the ADC.
func (adc *ADC0832) Close() error {
	adc.mu.Lock()
	defer adc.mu.Unlock()
	if adc.s == nil {
		return ErrClosed
	}
	err := adc.s.Close()
	adc.s = nil
	return err
}

// Read returns the value of a single channel read from the ADC.
func (adc *ADC0832) Read(ch int) (uint16, error) {
	return adc.read(ch, 1)
}

// ReadDifferential returns the value of a differential pair read from the ADC.
func (adc *ADC0832) ReadDifferential(ch int) (uint16, error) {
	return adc.read(ch, 0)
}

func (adc *ADC0832) read(ch int, sgl int) (uint16, error) {
	if ch < 0 || ch > 1 {
		return 0, errors.Wrapf(ErrInvalidChannel, "channel %d", ch)
	}
	adc.mu.Lock()
	defer adc.mu.Unlock()
	if adc.s == nil {
		return 0, ErrClosed
	}
	s := adc.s
	if err := s.Select(); err != nil {
		return 0, err
	}
	d, err := adc.transfer(sgl, ch)
	if err != nil {
		s.Deselect()
		return 0, err
	}
	return d, s.Deselect()
}

func (adc *ADC0832) transfer(sgl, odd int) (uint16, error) {
	s := adc.s
	for _, b := range []int{1, sgl, odd} { // Start, SGL/DIFZ, ODD/Sign
		if err := s.ClockOut(b); err != nil {
			return 0, err
		}
	}
	// mux settling
	spi.Hold(adc.tset)
	// MSB first byte
	var d uint16
	for i := uint(0); i < 8; i++ {
		v, err := s.ClockIn()
		if err != nil {
			return 0, err
		}
		d = d << 1
		if v != 0 {
			d = d | 0x01
		}
	}
	// ignore LSB bits - same as MSB just reversed order
	return d, nil
}
