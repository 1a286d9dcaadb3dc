// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package adcsim emulates bit bashed SPI ADCs at the GPIO line level.
//
// A Device is a gpio.Backend. The host drives the Clk, Csz and Di lines and
// reads Do, exactly as it would a physical converter, while the Device decodes
// the command from the line transitions, records each transaction and shifts
// out the sample for the requested channel.
package adcsim

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/spi"
)

// Model describes the framing of a converter family.
type Model struct {
	// CommandBits following the start bit.
	CommandBits int
	// Lead is the number of falling edges, including the one ending the
	// command, before the MSB is shifted out.
	Lead int
	// Width of the conversion in bits.
	Width int
}

var (
	// MCP3208 is a 12 bit MCP3x0x - SGL/DIFF + D2..D0, sample and null bit.
	MCP3208 = Model{CommandBits: 4, Lead: 2, Width: 12}
	// MCP3008 is a 10 bit MCP3x0x.
	MCP3008 = Model{CommandBits: 4, Lead: 2, Width: 10}
	// ADC0832 is SGL/DIF + ODD/SIGN, half a clock of mux settling, then 8 bits.
	ADC0832 = Model{CommandBits: 2, Lead: 1, Width: 8}
)

// Command is a decoded conversion request.
type Command struct {
	// Bits of the command field, MSB first as clocked in.
	Bits uint8
	// Channel addressed by the command.
	Channel int
	// Single is true for single ended, false for differential.
	Single bool
}

// Transaction records a single chip select cycle.
type Transaction struct {
	// Pulses is the number of rising clock edges while selected.
	Pulses int
	// Command is valid if Decoded.
	Command Command
	Decoded bool
	// Value shifted out.
	Value uint16
	// Edges are the times of every clock transition while selected.
	Edges []time.Time
}

// Source provides the sample to convert for a command.
type Source func(cmd Command) uint16

type state int

const (
	idle state = iota
	command
	convert
)

// Device emulates a converter on four lines.
type Device struct {
	mu     sync.Mutex
	model  Model
	pins   spi.Pins
	source Source
	queues map[int][]uint16
	values map[int]uint16
	fail   map[int]error
	levels map[int]int
	ops    int
	limit  int
	// transaction state
	selected bool
	st       state
	bits     int
	falls    int
	tx       Transaction
	txs      []Transaction
}

// New creates a Device of the given model on the pins.
func New(model Model, pins spi.Pins) *Device {
	return &Device{
		model:  model,
		pins:   pins,
		queues: make(map[int][]uint16),
		values: make(map[int]uint16),
		fail:   make(map[int]error),
		levels: map[int]int{pins.Csz: 1},
	}
}

// SetSource replaces the per channel values with a generator.
func (d *Device) SetSource(s Source) {
	d.mu.Lock()
	d.source = s
	d.mu.Unlock()
}

// SetValue sets the value converted on the channel.
func (d *Device) SetValue(ch int, v uint16) {
	d.mu.Lock()
	d.values[ch] = v
	d.mu.Unlock()
}

// Queue adds values to be converted, one per transaction, on the channel.
// Once the queue is drained the last value is held.
func (d *Device) Queue(ch int, vv ...uint16) {
	d.mu.Lock()
	d.queues[ch] = append(d.queues[ch], vv...)
	d.mu.Unlock()
}

// SetHistory limits the number of transactions retained to the most recent n.
// Zero, the default, retains all transactions.
func (d *Device) SetHistory(n int) {
	d.mu.Lock()
	d.limit = n
	d.mu.Unlock()
}

// FailAcquire causes requests for the offset to fail with err.
func (d *Device) FailAcquire(offset int, err error) {
	d.mu.Lock()
	d.fail[offset] = err
	d.mu.Unlock()
}

// Ops returns the number of line reads and writes performed by the host.
func (d *Device) Ops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ops
}

// Transactions returns the completed transactions.
func (d *Device) Transactions() []Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Transaction(nil), d.txs...)
}

// Output provides an output line.
func (d *Device) Output(offset, value int) (gpio.Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[offset]; err != nil {
		return nil, err
	}
	d.levels[offset] = value
	return &line{d: d, offset: offset, output: true}, nil
}

// Input provides an input line.
func (d *Device) Input(offset int, pull gpio.Pull) (gpio.Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[offset]; err != nil {
		return nil, err
	}
	return &line{d: d, offset: offset}, nil
}

// Close is a nop.
func (d *Device) Close() error {
	return nil
}

// ErrNotOutput indicates a write to an input line.
var ErrNotOutput = errors.New("line is not an output")

type line struct {
	d      *Device
	offset int
	output bool
	closed bool
}

func (l *line) Value() (int, error) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	if l.closed {
		return 0, gpio.ErrClosed
	}
	l.d.ops++
	return l.d.levels[l.offset], nil
}

func (l *line) SetValue(v int) error {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	if l.closed {
		return gpio.ErrClosed
	}
	if !l.output {
		return ErrNotOutput
	}
	l.d.ops++
	if v != 0 {
		v = 1
	}
	prev := l.d.levels[l.offset]
	l.d.levels[l.offset] = v
	if prev != v {
		l.d.edge(l.offset, v)
	}
	return nil
}

func (l *line) Close() error {
	l.d.mu.Lock()
	l.closed = true
	l.d.mu.Unlock()
	return nil
}

// edge updates the device on a transition of a host driven line.
// Called with mu held.
func (d *Device) edge(offset, v int) {
	switch offset {
	case d.pins.Csz:
		if v == 0 {
			d.selected = true
			d.st = idle
			d.tx = Transaction{}
			return
		}
		if d.selected {
			d.selected = false
			d.levels[d.pins.Do] = 0
			d.txs = append(d.txs, d.tx)
			if d.limit > 0 && len(d.txs) > d.limit {
				d.txs = append(d.txs[:0], d.txs[len(d.txs)-d.limit:]...)
			}
		}
	case d.pins.Clk:
		if !d.selected {
			return
		}
		d.tx.Edges = append(d.tx.Edges, time.Now())
		if v == 1 {
			d.rising()
		} else {
			d.falling()
		}
	}
}

func (d *Device) rising() {
	d.tx.Pulses++
	di := d.levels[d.pins.Di]
	switch d.st {
	case idle:
		// leading zeros are ignored until the start bit
		if di == 1 {
			d.st = command
			d.bits = 0
		}
	case command:
		d.tx.Command.Bits = d.tx.Command.Bits<<1 | uint8(di)
		d.bits++
		if d.bits == d.model.CommandBits {
			d.latch()
		}
	}
}

// latch decodes the command and samples the channel.
func (d *Device) latch() {
	bits := d.tx.Command.Bits
	sel := uint8(1) << uint(d.model.CommandBits-1)
	cmd := Command{
		Bits:    bits,
		Single:  bits&sel != 0,
		Channel: int(bits &^ sel),
	}
	d.tx.Command = cmd
	d.tx.Decoded = true
	d.tx.Value = d.sample(cmd) & (1<<uint(d.model.Width) - 1)
	d.st = convert
	d.falls = 0
}

func (d *Device) sample(cmd Command) uint16 {
	if d.source != nil {
		return d.source(cmd)
	}
	if q := d.queues[cmd.Channel]; len(q) > 0 {
		v := q[0]
		if len(q) > 1 {
			d.queues[cmd.Channel] = q[1:]
		} else {
			delete(d.queues, cmd.Channel)
			d.values[cmd.Channel] = v
		}
		return v
	}
	return d.values[cmd.Channel]
}

func (d *Device) falling() {
	if d.st != convert {
		return
	}
	d.falls++
	bit := d.falls - d.model.Lead - 1
	if bit < 0 || bit >= d.model.Width {
		d.levels[d.pins.Do] = 0
		return
	}
	d.levels[d.pins.Do] = int(d.tx.Value>>uint(d.model.Width-1-bit)) & 1
}
