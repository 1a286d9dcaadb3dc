// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adc0832_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/internal/adcsim"
	"github.com/warthog618/pulsepad/spi"
	"github.com/warthog618/pulsepad/spi/adc0832"
)

var pins = spi.Pins{Clk: gpio.GPIO6, Csz: gpio.GPIO5, Di: gpio.GPIO13, Do: gpio.GPIO19}

func setup(t *testing.T) (*adcsim.Device, *adc0832.ADC0832) {
	t.Helper()
	d := adcsim.New(adcsim.ADC0832, pins)
	c := gpio.NewChip(d)
	t.Cleanup(func() { c.Close() })
	adc, err := adc0832.New(c, pins, adc0832.WithTclk(0))
	require.Nil(t, err)
	return d, adc
}

func TestRead(t *testing.T) {
	d, adc := setup(t)
	d.SetValue(0, 0x12)
	d.SetValue(1, 0xfe)
	v, err := adc.Read(0)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0x12), v)
	v, err = adc.Read(1)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0xfe), v)
	v, err = adc.ReadDifferential(1)
	assert.Nil(t, err)
	assert.Equal(t, uint16(0xfe), v)

	tt := d.Transactions()
	require.Len(t, tt, 3)
	for _, tx := range tt {
		assert.Equal(t, 3+8, tx.Pulses)
	}
	assert.True(t, tt[0].Command.Single)
	assert.False(t, tt[2].Command.Single)
}

func TestInvalidChannel(t *testing.T) {
	d, adc := setup(t)
	assert.Equal(t, 2, adc.Channels())
	for _, ch := range []int{-1, 2, 7} {
		_, err := adc.Read(ch)
		assert.True(t, errors.Is(err, adc0832.ErrInvalidChannel), ch)
	}
	assert.Zero(t, d.Ops())
}

func TestClose(t *testing.T) {
	_, adc := setup(t)
	assert.Nil(t, adc.Close())
	_, err := adc.Read(0)
	assert.Equal(t, adc0832.ErrClosed, err)
	assert.Equal(t, adc0832.ErrClosed, adc.Close())
}

func TestClockTiming(t *testing.T) {
	patterns := []struct {
		name string
		opts []adc0832.Option
		tclk time.Duration
	}{
		{"default", nil, adc0832.DefaultTclk},
		{"tclk", []adc0832.Option{adc0832.WithTclk(4 * time.Microsecond)}, 4 * time.Microsecond},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			d := adcsim.New(adcsim.ADC0832, pins)
			c := gpio.NewChip(d)
			defer c.Close()
			adc, err := adc0832.New(c, pins, p.opts...)
			require.Nil(t, err)
			_, err = adc.Read(0)
			require.Nil(t, err)
			tt := d.Transactions()
			require.Len(t, tt, 1)
			edges := tt[0].Edges
			require.Len(t, edges, 2*(3+8))
			for i := 1; i < len(edges); i++ {
				assert.GreaterOrEqual(t, edges[i].Sub(edges[i-1]), p.tclk, i)
			}
		}
		t.Run(p.name, tf)
	}
}
