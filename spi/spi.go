// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package spi provides the core of bit bashed SPI interfaces using GPIO lines.
//
// It is not related to the SPI device drivers provided by Linux.
package spi

import (
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/gpio"
)

// Pins identifies the four lines of the bus by BCM offset.
type Pins struct {
	// Clk is the serial clock, driven by the host.
	Clk int
	// Csz is the active low chip select, driven by the host.
	Csz int
	// Di is the data into the device (MOSI).
	Di int
	// Do is the data out of the device (MISO).
	Do int
}

// ErrPinConflict indicates the bus pins are not four distinct lines.
var ErrPinConflict = errors.New("bus pins must be distinct")

func (p Pins) validate() error {
	oo := []int{p.Clk, p.Csz, p.Di, p.Do}
	for i, o := range oo {
		for _, q := range oo[i+1:] {
			if o == q {
				return errors.Wrapf(ErrPinConflict, "pin %d used twice", o)
			}
		}
	}
	return nil
}

// SPI represents a device connected via a bit bashed SPI bus.
//
// The SPI owns its four lines for its lifetime.
// Callers must serialise transactions.
type SPI struct {
	// time between clock edges (i.e. half the cycle time)
	Tclk time.Duration
	Clk  gpio.Line
	Csz  gpio.Line
	Di   gpio.Line
	Do   gpio.Line
	c    *gpio.Chip
	pins Pins
}

// New claims the bus lines from the chip and idles the bus.
//
// The lines are held exclusively by the SPI until it is closed.
// Failure to acquire any of the lines returns the *gpio.AcquisitionError and
// leaves the chip as it was - lines provisioned by the call are released and
// lines held by others are untouched.
func New(c *gpio.Chip, tclk time.Duration, pins Pins) (*SPI, error) {
	if err := pins.validate(); err != nil {
		return nil, err
	}
	s := &SPI{Tclk: tclk, c: c, pins: pins}
	// hold the device deselected until needed...
	ll, err := c.Claim(s,
		gpio.Request{Offset: pins.Csz, Direction: gpio.Output, Value: 1},
		gpio.Request{Offset: pins.Clk, Direction: gpio.Output},
		gpio.Request{Offset: pins.Di, Direction: gpio.Output},
		gpio.Request{Offset: pins.Do, Direction: gpio.Input, Pull: gpio.PullDown})
	if err != nil {
		return nil, err
	}
	s.Csz, s.Clk, s.Di, s.Do = ll[0], ll[1], ll[2], ll[3]
	return s, nil
}

// Pins returns the pin assignment of the bus.
func (s *SPI) Pins() Pins {
	return s.pins
}

// Close releases the bus lines.
func (s *SPI) Close() error {
	return s.c.Unclaim(s)
}

// Select starts a transaction by asserting chip select.
// The clock is held low for at least Tclk beforehand.
func (s *SPI) Select() error {
	if err := s.Clk.SetValue(0); err != nil {
		return err
	}
	Hold(s.Tclk)
	return s.Csz.SetValue(0)
}

// Deselect ends a transaction by returning chip select to idle.
func (s *SPI) Deselect() error {
	return s.Csz.SetValue(1)
}

// Pulse clocks a single cycle.
//
// The clock is held low for at least Tclk, raised, held high for at least
// Tclk, and then lowered.  Devices read Di on the rising edge and write Do on
// the falling edge.
func (s *SPI) Pulse() error {
	Hold(s.Tclk)
	if err := s.Clk.SetValue(1); err != nil {
		return err
	}
	Hold(s.Tclk)
	return s.Clk.SetValue(0)
}

// ClockOut clocks out a data bit to the device on Di.
func (s *SPI) ClockOut(v int) error {
	if err := s.Di.SetValue(v); err != nil {
		return err
	}
	return s.Pulse()
}

// ClockIn clocks in a data bit from the device on Do.
// The bit is sampled at least Tclk after the falling edge.
func (s *SPI) ClockIn() (int, error) {
	if err := s.Pulse(); err != nil {
		return 0, err
	}
	Hold(s.Tclk)
	return s.Do.Value()
}

// Hold busy waits for at least d.
//
// Bus timing is in the order of hundreds of nanoseconds, well below the
// resolution of the scheduler, so this spins on the monotonic clock rather
// than sleeping.
func Hold(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}
