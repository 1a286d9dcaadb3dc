// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcsim_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/internal/adcsim"
	"github.com/warthog618/pulsepad/spi"
	"github.com/warthog618/pulsepad/spi/mcp3w0c"
)

var pins = spi.Pins{Clk: 11, Csz: 8, Di: 10, Do: 9}

func newADC(t *testing.T, d *adcsim.Device) *mcp3w0c.MCP3w0c {
	t.Helper()
	adc, err := mcp3w0c.NewMCP3208(gpio.NewChip(d), pins, mcp3w0c.WithTclk(0))
	require.Nil(t, err)
	return adc
}

func read(t *testing.T, adc *mcp3w0c.MCP3w0c, ch int) uint16 {
	t.Helper()
	v, err := adc.Read(ch)
	require.Nil(t, err)
	return v
}

func TestQueue(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	adc := newADC(t, d)
	d.SetValue(1, 1234)
	d.Queue(2, 10, 20, 30)
	assert.Equal(t, uint16(1234), read(t, adc, 1))
	assert.Equal(t, uint16(10), read(t, adc, 2))
	assert.Equal(t, uint16(20), read(t, adc, 2))
	assert.Equal(t, uint16(30), read(t, adc, 2))
	// last value is held
	assert.Equal(t, uint16(30), read(t, adc, 2))
	assert.Equal(t, uint16(0), read(t, adc, 3))
}

func TestSource(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	adc := newADC(t, d)
	d.SetSource(func(cmd adcsim.Command) uint16 {
		if !cmd.Single {
			return 0xfff
		}
		return uint16(cmd.Channel * 100)
	})
	assert.Equal(t, uint16(700), read(t, adc, 7))
	v, err := adc.ReadDifferential(7)
	require.Nil(t, err)
	assert.Equal(t, uint16(0xfff), v)
	// values are masked to the converter width
	d.SetSource(func(adcsim.Command) uint16 { return 0xffff })
	assert.Equal(t, uint16(0xfff), read(t, adc, 0))
}

func TestTransactions(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	adc := newADC(t, d)
	d.SetValue(6, 0xabc)
	read(t, adc, 6)
	txs := d.Transactions()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.True(t, tx.Decoded)
	assert.Equal(t, adcsim.Command{Bits: 0xe, Channel: 6, Single: true}, tx.Command)
	assert.Equal(t, uint16(0xabc), tx.Value)
	assert.Equal(t, 18, tx.Pulses)
	assert.Len(t, tx.Edges, 36)
	assert.NotZero(t, d.Ops())
}

func TestHistory(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	adc := newADC(t, d)
	d.SetHistory(2)
	for ch := 0; ch < 5; ch++ {
		read(t, adc, ch)
	}
	txs := d.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, 3, txs[0].Command.Channel)
	assert.Equal(t, 4, txs[1].Command.Channel)
}

func TestFailAcquire(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	busy := errors.New("busy")
	d.FailAcquire(pins.Do, busy)
	_, err := d.Input(pins.Do, gpio.PullDown)
	assert.Equal(t, busy, err)
	_, err = d.Output(pins.Do, 0)
	assert.Equal(t, busy, err)
	_, err = d.Output(pins.Clk, 0)
	assert.Nil(t, err)
}

func TestLines(t *testing.T) {
	d := adcsim.New(adcsim.MCP3208, pins)
	do, err := d.Input(pins.Do, gpio.PullDown)
	require.Nil(t, err)
	assert.Equal(t, adcsim.ErrNotOutput, do.SetValue(1))
	clk, err := d.Output(pins.Clk, 1)
	require.Nil(t, err)
	v, err := clk.Value()
	require.Nil(t, err)
	assert.Equal(t, 1, v)
	// clocking while deselected is not a transaction
	assert.Nil(t, clk.SetValue(0))
	assert.Empty(t, d.Transactions())
	assert.Nil(t, clk.Close())
	assert.Equal(t, gpio.ErrClosed, clk.SetValue(1))
	_, err = clk.Value()
	assert.Equal(t, gpio.ErrClosed, err)
}
