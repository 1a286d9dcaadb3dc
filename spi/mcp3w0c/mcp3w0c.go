// SPDX-License-Identifier: MIT
//
// Copyright © 2018 Kent Gibson <warthog618@gmail.com>.

// Package mcp3w0c provides bit bashed device drivers for MCP3004/3008/3204/3208
// SPI ADCs.
package mcp3w0c

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/spi"
)

// MCP3w0c reads ADC values from a connected Microchip MCP3xxx family device.
//
// Supported variants are MCP3004/3008/3204/3208.
// The w indicates the width of the device (0 => 10, 2 => 12)
// and the c the number of channels.
//
// Every read is a complete bus transaction - no values are cached.
type MCP3w0c struct {
	mu       sync.Mutex
	s        *spi.SPI
	width    uint
	channels int
	// time to allow mux to settle before the null bit
	tset time.Duration
}

var (
	// ErrClosed indicates the ADC is closed.
	ErrClosed = errors.New("closed")

	// ErrInvalidChannel indicates the channel does not exist on the ADC.
	ErrInvalidChannel = errors.New("invalid channel")
)

// DefaultTclk is the time between clock edges, safely above the 250ns
// minimum clock high and low times of the MCP3208 at 2.7V.
const DefaultTclk = 500 * time.Nanosecond

// Option modifies the construction of an MCP3w0c.
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

// WithTset sets the additional time allowed for the input mux to settle
// after the command is clocked out.
func WithTset(tset time.Duration) Option {
	return func(o *options) {
		o.tset = tset
	}
}

// New creates a MCP3w0c with the given width and number of channels.
//
// The bus lines are provisioned from the chip, and failure to acquire any of
// them is returned as a *gpio.AcquisitionError.
func New(c *gpio.Chip, pins spi.Pins, width uint, channels int, opts ...Option) (*MCP3w0c, error) {
	o := options{tclk: DefaultTclk}
	for _, option := range opts {
		option(&o)
	}
	s, err := spi.New(c, o.tclk, pins)
	if err != nil {
		return nil, err
	}
	return &MCP3w0c{s: s, width: width, channels: channels, tset: o.tset}, nil
}

// NewMCP3004 creates a MCP3004.
func NewMCP3004(c *gpio.Chip, pins spi.Pins, opts ...Option) (*MCP3w0c, error) {
	return New(c, pins, 10, 4, opts...)
}

// NewMCP3008 creates a MCP3008.
func NewMCP3008(c *gpio.Chip, pins spi.Pins, opts ...Option) (*MCP3w0c, error) {
	return New(c, pins, 10, 8, opts...)
}

// NewMCP3204 creates a MCP3204.
func NewMCP3204(c *gpio.Chip, pins spi.Pins, opts ...Option) (*MCP3w0c, error) {
	return New(c, pins, 12, 4, opts...)
}

// NewMCP3208 creates a MCP3208.
func NewMCP3208(c *gpio.Chip, pins spi.Pins, opts ...Option) (*MCP3w0c, error) {
	return New(c, pins, 12, 8, opts...)
}

// Channels returns the number of channels on the ADC.
func (adc *MCP3w0c) Channels() int {
	return adc.channels
}

// Width returns the number of bits in a conversion.
func (adc *MCP3w0c) Width() uint {
	return adc.width
}

// Close releases all resources allocated to the ADC.
func (adc *MCP3w0c) Close() error {
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
func (adc *MCP3w0c) Read(ch int) (uint16, error) {
	return adc.read(ch, 1)
}

// ReadDifferential returns the value of a differential pair read from the ADC.
//
// The channel selects the pair and polarity, as per the device datasheet.
func (adc *MCP3w0c) ReadDifferential(ch int) (uint16, error) {
	return adc.read(ch, 0)
}

func (adc *MCP3w0c) read(ch int, sgl int) (uint16, error) {
	if ch < 0 || ch >= adc.channels {
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
	d, err := adc.transfer(command(ch, sgl))
	if err != nil {
		// leave the device idle, but report the original failure
		s.Deselect()
		return 0, err
	}
	return d, s.Deselect()
}

// command returns the 4 bit command field - SGL/DIFFZ then D2..D0.
func command(ch int, sgl int) uint8 {
	return uint8(sgl&0x01)<<3 | uint8(ch&0x07)
}

// transfer performs the bulk of a transaction, with the device selected.
// 1 start + 4 command + 1 null + width data pulses.
func (adc *MCP3w0c) transfer(cmd uint8) (uint16, error) {
	s := adc.s
	if err := s.ClockOut(1); err != nil { // Start
		return 0, err
	}
	for i := 3; i >= 0; i-- {
		if err := s.ClockOut(int(cmd>>uint(i)) & 0x01); err != nil {
			return 0, err
		}
	}
	// mux settling
	spi.Hold(adc.tset)
	if err := s.Pulse(); err != nil { // null bit
		return 0, err
	}
	var d uint16
	for i := uint(0); i < adc.width; i++ {
		v, err := s.ClockIn()
		if err != nil {
			return 0, err
		}
		d = d << 1
		if v != 0 {
			d = d | 0x01
		}
	}
	return d, nil
}
