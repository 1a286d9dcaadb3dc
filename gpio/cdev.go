// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package gpio

import (
	"github.com/warthog618/gpiod"
)

// Cdev provides lines from a GPIO character device.
type Cdev struct {
	c *gpiod.Chip
}

// OpenCdev opens the named GPIO chip, e.g. "gpiochip0".
//
// The consumer labels the lines requested from the chip.
func OpenCdev(name, consumer string) (*Cdev, error) {
	c, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &Cdev{c}, nil
}

// Output requests the line as an output set to value.
func (d *Cdev) Output(offset, value int) (Line, error) {
	l, err := d.c.RequestLine(offset, gpiod.AsOutput(value))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Input requests the line as an input with the given bias.
func (d *Cdev) Input(offset int, pull Pull) (Line, error) {
	var bias gpiod.LineReqOption
	switch pull {
	case PullUp:
		bias = gpiod.WithPullUp
	case PullDown:
		bias = gpiod.WithPullDown
	default:
		bias = gpiod.WithBiasDisabled
	}
	l, err := d.c.RequestLine(offset, gpiod.AsInput, bias)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Close closes the chip.
//
// Lines already requested remain valid until they are closed.
func (d *Cdev) Close() error {
	return d.c.Close()
}
