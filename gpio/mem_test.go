// SPDX-License-Identifier: MIT
//
// Copyright © 2017 Kent Gibson <warthog618@gmail.com>.

//go:build linux

// Tests use J8 pin 7, and are skipped unless run on a Pi.
package gpio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/pulsepad/gpio"
)

func openMem(t testing.TB) *gpio.Mem {
	m, err := gpio.OpenMem()
	if err != nil {
		t.Skip("no GPIO memory:", err)
	}
	return m
}

func TestMemReopen(t *testing.T) {
	m := openMem(t)
	assert.Nil(t, m.Close())
	assert.Equal(t, gpio.ErrClosed, m.Close())
	m = openMem(t)
	assert.Nil(t, m.Close())
}

func TestMemOutput(t *testing.T) {
	m := openMem(t)
	defer m.Close()
	l, err := m.Output(gpio.J8p7, 0)
	require.Nil(t, err)
	defer l.Close()
	pin := l.(*gpio.Pin)
	mode, err := pin.Mode()
	assert.Nil(t, err)
	assert.Equal(t, gpio.ModeOutput, mode)
	v, err := l.Value()
	assert.Nil(t, err)
	assert.Equal(t, 0, v)
	assert.Nil(t, l.SetValue(1))
	v, _ = l.Value()
	assert.Equal(t, 1, v)
	assert.Nil(t, l.SetValue(0))
	v, _ = l.Value()
	assert.Equal(t, 0, v)
	assert.Nil(t, l.Close())
	mode, err = pin.Mode()
	assert.Nil(t, err)
	assert.Equal(t, gpio.ModeInput, mode)
}

func TestMemInputPull(t *testing.T) {
	m := openMem(t)
	defer m.Close()
	l, err := m.Input(gpio.J8p7, gpio.PullDown)
	require.Nil(t, err)
	// restore the default state for this pin on a Pi.
	defer l.(*gpio.Pin).SetPull(gpio.PullUp)
	v, err := l.Value()
	assert.Nil(t, err)
	assert.Equal(t, 0, v)
	assert.Nil(t, l.(*gpio.Pin).SetPull(gpio.PullUp))
	v, _ = l.Value()
	assert.Equal(t, 1, v)
}

func TestMemClosedPin(t *testing.T) {
	m := openMem(t)
	l, err := m.Output(gpio.J8p7, 0)
	require.Nil(t, err)
	pin := l.(*gpio.Pin)
	assert.Nil(t, pin.Close())
	assert.Nil(t, m.Close())
	_, err = pin.Mode()
	assert.Equal(t, gpio.ErrClosed, err)
	assert.Equal(t, gpio.ErrClosed, pin.SetMode(gpio.ModeOutput))
	_, err = pin.Value()
	assert.Equal(t, gpio.ErrClosed, err)
	assert.Equal(t, gpio.ErrClosed, pin.SetValue(1))
	assert.Equal(t, gpio.ErrClosed, pin.SetPull(gpio.PullUp))
	assert.Equal(t, gpio.ErrClosed, pin.Close())
	_, err = m.Input(gpio.J8p7, gpio.PullUp)
	assert.Equal(t, gpio.ErrClosed, err)
}

func TestMemConcurrentClose(t *testing.T) {
	m := openMem(t)
	l, err := m.Input(gpio.J8p7, gpio.PullUp)
	require.Nil(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := l.Value(); err != nil {
				assert.Equal(t, gpio.ErrClosed, err)
				return
			}
		}
	}()
	assert.Nil(t, m.Close())
	<-done
}

func TestMemInvalidOffset(t *testing.T) {
	m := openMem(t)
	defer m.Close()
	_, err := m.Output(gpio.MaxGPIOPin, 0)
	assert.NotNil(t, err)
}

func BenchmarkMemWrite(b *testing.B) {
	m := openMem(b)
	defer m.Close()
	l, err := m.Output(gpio.J8p7, 0)
	require.Nil(b, err)
	defer l.Close()
	for i := 0; i < b.N; i++ {
		l.SetValue(i & 1)
	}
}

func BenchmarkMemRead(b *testing.B) {
	m := openMem(b)
	defer m.Close()
	l, err := m.Input(gpio.J8p7, gpio.PullUp)
	require.Nil(b, err)
	for i := 0; i < b.N; i++ {
		l.Value()
	}
}
