// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package gpio provides the digital lines used to bit bash peripherals.
//
// Lines are provided by a Backend - memory mapped BCM registers (Mem), the
// GPIO character device (Cdev) or periph.io (Periph) - and provisioned
// through a Chip, which ensures each offset is only ever requested from the
// backend once.
//
// Example of use:
//
//	b, err := gpio.OpenCdev("gpiochip0", "pulsepad")
//	if err != nil {
//		return err
//	}
//	c := gpio.NewChip(b)
//	defer c.Close()
//
//	l, err := c.Output(gpio.GPIO4, 0)
//	...
//	l.SetValue(1)
//
// Offsets are BCM GPIO numbers.
package gpio

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Line is a single digital line.
//
// Values are 0 (low) or 1 (high) and reflect the physical level of the line.
type Line interface {
	// Value returns the current level of the line.
	Value() (int, error)
	// SetValue drives an output line to the level.
	SetValue(v int) error
	// Close releases the line back to the platform.
	Close() error
}

// Backend requests lines from the platform.
type Backend interface {
	Output(offset, value int) (Line, error)
	Input(offset int, pull Pull) (Line, error)
	Close() error
}

// Direction of a provisioned line.
type Direction int

const (
	// Input lines are read.
	Input Direction = iota
	// Output lines are driven.
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Pull defines the bias applied to an input line.
type Pull int

// Pull Up / Down / Off
const (
	PullNone Pull = iota
	PullDown
	PullUp
)

var (
	// ErrClosed indicates the chip or backend has been closed.
	ErrClosed = errors.New("closed")

	// ErrDirection indicates a line has already been provisioned with the
	// other direction.
	ErrDirection = errors.New("line provisioned with conflicting direction")

	// ErrInvalidOffset indicates the offset is not a line on the platform.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrNotSupported indicates the backend is not available on this platform.
	ErrNotSupported = errors.New("not supported on this platform")

	// ErrBusy indicates a line is claimed by another owner.
	ErrBusy = errors.New("line claimed by another owner")
)

// AcquisitionError indicates a line could not be provisioned.
//
// Without its lines a driver cannot operate, so this is fatal at construction.
type AcquisitionError struct {
	Offset int
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("can't acquire line %d: %s", e.Offset, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

type provisioned struct {
	line Line
	dir  Direction
	// owner of a claimed line, nil if unclaimed
	owner interface{}
	// claimed lines provisioned by the claim are released with it
	adopted bool
}

// Chip provisions lines from a Backend.
//
// Acquisition is idempotent - requesting an offset already provisioned with
// the same direction returns the existing Line rather than requesting it from
// the backend again.
//
// Drivers that require exclusive use of their lines Claim them, after which
// the lines are unavailable to any other requester until the owner releases
// them.
type Chip struct {
	mu    sync.Mutex
	b     Backend
	lines map[int]*provisioned
}

// NewChip creates a Chip that provisions lines from the backend.
func NewChip(b Backend) *Chip {
	return &Chip{b: b, lines: make(map[int]*provisioned)}
}

// Output provisions the line as an output.
//
// The value is only applied when the line is first provisioned.
func (c *Chip) Output(offset, value int) (Line, error) {
	return c.provision(offset, Output, func() (Line, error) {
		return c.b.Output(offset, value)
	})
}

// Input provisions the line as an input with the given bias.
func (c *Chip) Input(offset int, pull Pull) (Line, error) {
	return c.provision(offset, Input, func() (Line, error) {
		return c.b.Input(offset, pull)
	})
}

func (c *Chip) provision(offset int, dir Direction, request func() (Line, error)) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		return nil, &AcquisitionError{offset, ErrClosed}
	}
	if p, ok := c.lines[offset]; ok {
		if p.owner != nil {
			return nil, &AcquisitionError{offset, ErrBusy}
		}
		if p.dir != dir {
			return nil, &AcquisitionError{offset, errors.Wrapf(ErrDirection, "held as %s", p.dir)}
		}
		return p.line, nil
	}
	l, err := request()
	if err != nil {
		return nil, &AcquisitionError{offset, err}
	}
	c.lines[offset] = &provisioned{line: l, dir: dir}
	return l, nil
}

// Request describes a line to be claimed.
type Request struct {
	Offset    int
	Direction Direction
	// Value is the initial value of an output, applied only if the line is
	// provisioned by the claim.
	Value int
	// Pull is the bias of an input.
	Pull Pull
}

// Claim provisions the lines for the exclusive use of owner.
//
// The claim is all or nothing. If any line is claimed by another owner, held
// with the other direction, or cannot be provisioned, the lines provisioned
// by the call are released, lines that were already provisioned are left as
// they were, and the *AcquisitionError is returned.
//
// Lines already provisioned, but unclaimed, are adopted by the owner and
// remain provisioned after the owner releases them.
// The lines are returned in request order.
func (c *Chip) Claim(owner interface{}, reqs ...Request) ([]Line, error) {
	if owner == nil {
		return nil, errors.New("nil owner")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		if len(reqs) > 0 {
			return nil, &AcquisitionError{reqs[0].Offset, ErrClosed}
		}
		return nil, ErrClosed
	}
	seen := make(map[int]bool)
	for _, r := range reqs {
		if seen[r.Offset] {
			return nil, errors.Errorf("line %d requested twice", r.Offset)
		}
		seen[r.Offset] = true
		p, ok := c.lines[r.Offset]
		if !ok {
			continue
		}
		if p.owner != nil {
			return nil, &AcquisitionError{r.Offset, ErrBusy}
		}
		if p.dir != r.Direction {
			return nil, &AcquisitionError{r.Offset, errors.Wrapf(ErrDirection, "held as %s", p.dir)}
		}
	}
	ll := make([]Line, len(reqs))
	var fresh []int
	adopted := make(map[int]bool)
	for i, r := range reqs {
		if p, ok := c.lines[r.Offset]; ok {
			ll[i] = p.line
			adopted[r.Offset] = true
			continue
		}
		var l Line
		var err error
		if r.Direction == Output {
			l, err = c.b.Output(r.Offset, r.Value)
		} else {
			l, err = c.b.Input(r.Offset, r.Pull)
		}
		if err != nil {
			for _, o := range fresh {
				c.lines[o].line.Close()
				delete(c.lines, o)
			}
			return nil, &AcquisitionError{r.Offset, err}
		}
		c.lines[r.Offset] = &provisioned{line: l, dir: r.Direction}
		fresh = append(fresh, r.Offset)
		ll[i] = l
	}
	for _, r := range reqs {
		p := c.lines[r.Offset]
		p.owner = owner
		p.adopted = adopted[r.Offset]
	}
	return ll, nil
}

// Unclaim releases the lines claimed by owner.
//
// Lines provisioned by the claim are closed and removed from the chip.
// Adopted lines revert to unclaimed.
func (c *Chip) Unclaim(owner interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		return ErrClosed
	}
	var err error
	for o, p := range c.lines {
		if owner == nil || p.owner != owner {
			continue
		}
		if p.adopted {
			p.owner = nil
			p.adopted = false
			continue
		}
		delete(c.lines, o)
		err = multierr.Append(err, p.line.Close())
	}
	return err
}

// Owner returns the owner of the line, or nil if unclaimed.
func (c *Chip) Owner(offset int) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.lines[offset]; ok {
		return p.owner
	}
	return nil
}

// Provisioned returns the offsets of the lines currently provisioned, in
// ascending order.
func (c *Chip) Provisioned() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	oo := make([]int, 0, len(c.lines))
	for o := range c.lines {
		oo = append(oo, o)
	}
	sort.Ints(oo)
	return oo
}

// Release closes the lines and removes them from the chip.
//
// Offsets that are not provisioned, or are claimed, are ignored.
// Claimed lines are released by their owner with Unclaim.
func (c *Chip) Release(offsets ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	for _, o := range offsets {
		p, ok := c.lines[o]
		if !ok || p.owner != nil {
			continue
		}
		delete(c.lines, o)
		err = multierr.Append(err, p.line.Close())
	}
	return err
}

// Close releases all provisioned lines and closes the backend.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines == nil {
		return ErrClosed
	}
	var err error
	for _, p := range c.lines {
		err = multierr.Append(err, p.line.Close())
	}
	c.lines = nil
	return multierr.Append(err, c.b.Close())
}
