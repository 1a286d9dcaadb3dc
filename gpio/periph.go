// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package gpio

import (
	"fmt"

	"github.com/pkg/errors"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph provides lines from the periph.io host drivers.
//
// Lines are looked up by their BCM name, e.g. GPIO17.
type Periph struct{}

// OpenPeriph initialises the periph.io host drivers.
func OpenPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host")
	}
	return &Periph{}, nil
}

// Output drives the pin to the value.
func (p *Periph) Output(offset, value int) (Line, error) {
	pin, err := p.pin(offset)
	if err != nil {
		return nil, err
	}
	l := &periphLine{pin}
	if err = l.SetValue(value); err != nil {
		return nil, err
	}
	return l, nil
}

// Input switches the pin to an input with the given pull.
func (p *Periph) Input(offset int, pull Pull) (Line, error) {
	pin, err := p.pin(offset)
	if err != nil {
		return nil, err
	}
	pp := pgpio.Float
	switch pull {
	case PullUp:
		pp = pgpio.PullUp
	case PullDown:
		pp = pgpio.PullDown
	}
	if err = pin.In(pp, pgpio.NoEdge); err != nil {
		return nil, err
	}
	return &periphLine{pin}, nil
}

// Close is a nop, as the periph.io host drivers are process wide.
func (p *Periph) Close() error {
	return nil
}

func (p *Periph) pin(offset int) (pgpio.PinIO, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", offset))
	if pin == nil {
		return nil, errors.Wrapf(ErrInvalidOffset, "GPIO%d", offset)
	}
	return pin, nil
}

type periphLine struct {
	pin pgpio.PinIO
}

func (l *periphLine) Value() (int, error) {
	if l.pin.Read() == pgpio.High {
		return 1, nil
	}
	return 0, nil
}

func (l *periphLine) SetValue(v int) error {
	return l.pin.Out(v != 0)
}

// Close returns the pin to a floating input, so it no longer drives the line.
func (l *periphLine) Close() error {
	return l.pin.In(pgpio.PullNoChange, pgpio.NoEdge)
}
