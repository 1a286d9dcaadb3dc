// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package mcp3w0c_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/internal/adcsim"
	"github.com/warthog618/pulsepad/spi"
	"github.com/warthog618/pulsepad/spi/mcp3w0c"
)

var pins = spi.Pins{
	Clk: gpio.GPIO6,
	Csz: gpio.GPIO5,
	Di:  gpio.GPIO13,
	Do:  gpio.GPIO19,
}

func setup(t *testing.T, model adcsim.Model, opts ...mcp3w0c.Option) (*adcsim.Device, *mcp3w0c.MCP3w0c) {
	t.Helper()
	d := adcsim.New(model, pins)
	c := gpio.NewChip(d)
	t.Cleanup(func() { c.Close() })
	opts = append([]mcp3w0c.Option{mcp3w0c.WithTclk(0)}, opts...)
	var adc *mcp3w0c.MCP3w0c
	var err error
	if model == adcsim.MCP3008 {
		adc, err = mcp3w0c.NewMCP3008(c, pins, opts...)
	} else {
		adc, err = mcp3w0c.NewMCP3208(c, pins, opts...)
	}
	require.Nil(t, err)
	return d, adc
}

func TestRead(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	values := []uint16{0, 1, 0x800, 0x555, 0xaaa, 2048, 4000, 4095}
	for ch, v := range values {
		d.SetValue(ch, v)
	}
	for ch, v := range values {
		got, err := adc.Read(ch)
		assert.Nil(t, err, ch)
		assert.Equal(t, v, got, ch)
	}
	for _, tx := range d.Transactions() {
		assert.True(t, tx.Command.Single)
	}
}

func TestReadFresh(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	d.Queue(3, 2000, 850, 860)
	for _, v := range []uint16{2000, 850, 860, 860} {
		got, err := adc.Read(3)
		assert.Nil(t, err)
		assert.Equal(t, v, got)
	}
	assert.Len(t, d.Transactions(), 4)
}

func TestReadMCP3008(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3008)
	d.SetValue(7, 0x3ff)
	d.SetValue(1, 0x201)
	v, err := adc.Read(7)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x3ff), v)
	v, err = adc.Read(1)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x201), v)
	tt := d.Transactions()
	require.Len(t, tt, 2)
	assert.Equal(t, 1+4+1+10, tt[0].Pulses)
}

func TestCommandFraming(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	_, err := adc.Read(5)
	require.Nil(t, err)
	tt := d.Transactions()
	require.Len(t, tt, 1)
	require.True(t, tt[0].Decoded)
	assert.Equal(t, uint8(0xd), tt[0].Command.Bits) // 1101
	assert.Equal(t, 5, tt[0].Command.Channel)
	assert.True(t, tt[0].Command.Single)
}

func TestPulsesPerRead(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	for ch := 0; ch < 8; ch++ {
		_, err := adc.Read(ch)
		require.Nil(t, err)
	}
	tt := d.Transactions()
	require.Len(t, tt, 8)
	for ch, tx := range tt {
		assert.Equal(t, 18, tx.Pulses, ch)
		// every pulse is a rising and a falling edge
		assert.Len(t, tx.Edges, 36, ch)
		assert.Equal(t, ch, tx.Command.Channel)
	}
}

func TestReadDifferential(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	d.SetValue(2, 1234)
	v, err := adc.ReadDifferential(2)
	assert.Nil(t, err)
	assert.Equal(t, uint16(1234), v)
	tt := d.Transactions()
	require.Len(t, tt, 1)
	assert.False(t, tt[0].Command.Single)
	assert.Equal(t, uint8(0x2), tt[0].Command.Bits)
}

func TestInvalidChannel(t *testing.T) {
	d, adc := setup(t, adcsim.MCP3208)
	ops := d.Ops()
	for _, ch := range []int{-1, 8, 9, 100} {
		v, err := adc.Read(ch)
		assert.True(t, errors.Is(err, mcp3w0c.ErrInvalidChannel), ch)
		assert.Zero(t, v)
		_, err = adc.ReadDifferential(ch)
		assert.True(t, errors.Is(err, mcp3w0c.ErrInvalidChannel), ch)
	}
	assert.Equal(t, ops, d.Ops())
	assert.Empty(t, d.Transactions())
}

func TestClockTiming(t *testing.T) {
	tclk := 2 * time.Microsecond
	d, adc := setup(t, adcsim.MCP3208, mcp3w0c.WithTclk(tclk))
	_, err := adc.Read(0)
	require.Nil(t, err)
	tt := d.Transactions()
	require.Len(t, tt, 1)
	edges := tt[0].Edges
	require.Len(t, edges, 36)
	for i := 1; i < len(edges); i++ {
		assert.GreaterOrEqual(t, edges[i].Sub(edges[i-1]), tclk, i)
	}
}

func TestClose(t *testing.T) {
	_, adc := setup(t, adcsim.MCP3208)
	assert.Nil(t, adc.Close())
	_, err := adc.Read(0)
	assert.Equal(t, mcp3w0c.ErrClosed, err)
	assert.Equal(t, mcp3w0c.ErrClosed, adc.Close())
}

func TestCloseReleasesLines(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	c := gpio.NewChip(d)
	defer c.Close()
	adc, err := mcp3w0c.NewMCP3208(c, pins)
	require.Nil(t, err)
	assert.Len(t, c.Provisioned(), 4)
	assert.Nil(t, adc.Close())
	assert.Empty(t, c.Provisioned())
}

func TestNewAcquisitionFailure(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	busy := errors.New("busy")
	d.FailAcquire(pins.Do, busy)
	c := gpio.NewChip(d)
	defer c.Close()
	adc, err := mcp3w0c.NewMCP3208(c, pins)
	assert.Nil(t, adc)
	var ae *gpio.AcquisitionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, pins.Do, ae.Offset)
	// lines acquired before the failure are released
	assert.Empty(t, c.Provisioned())
}

func TestNewLinesOwned(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	c := gpio.NewChip(d)
	defer c.Close()
	a1, err := mcp3w0c.NewMCP3208(c, pins, mcp3w0c.WithTclk(0))
	require.Nil(t, err)
	a2, err := mcp3w0c.NewMCP3208(c, pins, mcp3w0c.WithTclk(0))
	assert.Nil(t, a2)
	var ae *gpio.AcquisitionError
	require.True(t, errors.As(err, &ae))
	assert.True(t, errors.Is(err, gpio.ErrBusy))

	// the failed construction leaves the first driver intact
	d.SetValue(0, 0x123)
	v, err := a1.Read(0)
	require.Nil(t, err)
	assert.Equal(t, uint16(0x123), v)

	require.Nil(t, a1.Close())
	a2, err = mcp3w0c.NewMCP3208(c, pins, mcp3w0c.WithTclk(0))
	require.Nil(t, err)
	v, err = a2.Read(0)
	require.Nil(t, err)
	assert.Equal(t, uint16(0x123), v)
	assert.Nil(t, a2.Close())
}

func TestNewPinConflict(t *testing.T) {
	p := pins
	p.Do = p.Di
	c := gpio.NewChip(adcsim.New(adcsim.MCP3208, p))
	defer c.Close()
	_, err := mcp3w0c.NewMCP3208(c, p)
	assert.True(t, errors.Is(err, spi.ErrPinConflict))
}

func TestVariants(t *testing.T) {
	patterns := []struct {
		name     string
		ctor     func(*gpio.Chip, spi.Pins, ...mcp3w0c.Option) (*mcp3w0c.MCP3w0c, error)
		width    uint
		channels int
	}{
		{"mcp3004", mcp3w0c.NewMCP3004, 10, 4},
		{"mcp3008", mcp3w0c.NewMCP3008, 10, 8},
		{"mcp3204", mcp3w0c.NewMCP3204, 12, 4},
		{"mcp3208", mcp3w0c.NewMCP3208, 12, 8},
	}
	for _, p := range patterns {
		c := gpio.NewChip(adcsim.New(adcsim.MCP3208, pins))
		adc, err := p.ctor(c, pins)
		require.Nil(t, err, p.name)
		assert.Equal(t, p.width, adc.Width(), p.name)
		assert.Equal(t, p.channels, adc.Channels(), p.name)
		_, err = adc.Read(p.channels)
		assert.True(t, errors.Is(err, mcp3w0c.ErrInvalidChannel), p.name)
		c.Close()
	}
}

func BenchmarkRead(b *testing.B) {
	d := adcsim.New(adcsim.MCP3208, pins)
	c := gpio.NewChip(d)
	defer c.Close()
	adc, err := mcp3w0c.NewMCP3208(c, pins, mcp3w0c.WithTclk(0))
	require.Nil(b, err)
	for i := 0; i < b.N; i++ {
		adc.Read(i & 0x07)
	}
}
