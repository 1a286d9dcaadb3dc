// SPDX-License-Identifier: MIT
//
// Copyright © 2017 Kent Gibson <warthog618@gmail.com>.

//go:build linux

package gpio

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Chipset identifies the GPIO controller of the Pi.
type Chipset int

const (
	// BCM2835 is the controller of the Pi 0 to 3.
	BCM2835 Chipset = iota
	// BCM2711 is the controller of the Pi 4.
	BCM2711
)

const (
	memLength = 4096

	modeMask uint32 = 7 // pin mode is 3 bits wide
	pullMask uint32 = 3 // pull mode is 2 bits wide
	// BCM2835 pullReg is the same for all pins.
	pullReg2835 = 37
	// first of the BCM2711 pull registers.
	pullReg2711 = 57
	// unused registers on the BCM2835 read back as "gpio".
	magic2835 = 0x6770696f
)

// Mem provides lines by mapping the BCM GPIO registers from /dev/gpiomem.
//
// This is the fastest of the backends, as line access is a single register
// read or write, which suits bit bashing.
type Mem struct {
	// mu covers all access to the mem block, which is unmapped by Close.
	mu      sync.Mutex
	mem     []uint32
	mem8    []byte
	chipset Chipset
}

// OpenMem maps the GPIO registers.
func OpenMem() (*Mem, error) {
	file, err := os.OpenFile("/dev/gpiomem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	mem8, err := unix.Mmap(
		int(file.Fd()),
		0,
		memLength,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmap")
	}
	m := &Mem{
		mem8: mem8,
		mem:  unsafe.Slice((*uint32)(unsafe.Pointer(&mem8[0])), len(mem8)/4),
	}
	m.chipset = BCM2711
	if m.mem[pullReg2711] == magic2835 {
		m.chipset = BCM2835
	}
	return m, nil
}

// Chip returns the detected GPIO controller.
func (m *Mem) Chip() Chipset {
	return m.chipset
}

// Close unmaps the GPIO registers.
//
// Lines provided by the Mem are unusable after Close.
func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem == nil {
		return ErrClosed
	}
	m.mem = nil
	return unix.Munmap(m.mem8)
}

// Output sets the pin to the value and then switches it to an output.
func (m *Mem) Output(offset, value int) (Line, error) {
	pin, err := m.pin(offset)
	if err != nil {
		return nil, err
	}
	if err = pin.SetValue(value); err != nil {
		return nil, err
	}
	if err = pin.SetMode(ModeOutput); err != nil {
		return nil, err
	}
	return pin, nil
}

// Input switches the pin to an input with the given pull.
func (m *Mem) Input(offset int, pull Pull) (Line, error) {
	pin, err := m.pin(offset)
	if err != nil {
		return nil, err
	}
	if err = pin.SetMode(ModeInput); err != nil {
		return nil, err
	}
	if err = pin.SetPull(pull); err != nil {
		return nil, err
	}
	return pin, nil
}

func (m *Mem) pin(offset int) (*Pin, error) {
	m.mu.Lock()
	closed := m.mem == nil
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if offset < 0 || offset >= MaxGPIOPin {
		return nil, errors.Wrapf(ErrInvalidOffset, "%d", offset)
	}
	// Pre-calculate commonly used register addresses and bit masks.
	// This seems like overkill given the J8 pins are all on the first bank...
	bank := offset / 32
	return &Pin{
		m:        m,
		pin:      offset,
		fsel:     offset / 10,
		bank:     bank,
		mask:     uint32(1 << uint(offset&0x1f)),
		levelReg: 13 + bank,
		clearReg: 10 + bank,
		setReg:   7 + bank,
		pullReg:  pullReg2711 + offset/16,
	}, nil
}

// Mode defines the IO mode of a Pin.
type Mode int

// Pin Mode, a pin can be set in Input or Output mode
const (
	ModeInput Mode = iota
	ModeOutput
	ModeAlt5
	ModeAlt4
	ModeAlt0
	ModeAlt1
	ModeAlt2
	ModeAlt3
)

// Pin is a memory mapped BCM GPIO pin.
type Pin struct {
	m        *Mem
	pin      int
	fsel     int
	levelReg int
	clearReg int
	setReg   int
	pullReg  int
	bank     int
	mask     uint32
}

// Offset returns the BCM number of the pin.
func (pin *Pin) Offset() int {
	return pin.pin
}

// regs calls fn with the mapped registers, with the Mem locked.
func (pin *Pin) regs(fn func(mem []uint32)) error {
	pin.m.mu.Lock()
	defer pin.m.mu.Unlock()
	if pin.m.mem == nil {
		return ErrClosed
	}
	fn(pin.m.mem)
	return nil
}

// Mode returns the mode of the pin in the Function Select register.
func (pin *Pin) Mode() (mode Mode, err error) {
	modeShift := uint(pin.pin%10) * 3
	err = pin.regs(func(mem []uint32) {
		mode = Mode(mem[pin.fsel] >> modeShift & modeMask)
	})
	return
}

// SetMode sets the pin Mode.
func (pin *Pin) SetMode(mode Mode) error {
	// shift for pin mode field within fsel register.
	modeShift := uint(pin.pin%10) * 3
	return pin.regs(func(mem []uint32) {
		mem[pin.fsel] = mem[pin.fsel]&^(modeMask<<modeShift) | uint32(mode)<<modeShift
	})
}

// Value returns the level of the pin.
func (pin *Pin) Value() (v int, err error) {
	err = pin.regs(func(mem []uint32) {
		if mem[pin.levelReg]&pin.mask != 0 {
			v = 1
		}
	})
	return
}

// SetValue sets the level of the pin.
func (pin *Pin) SetValue(v int) error {
	return pin.regs(func(mem []uint32) {
		if v == 0 {
			mem[pin.clearReg] = pin.mask
		} else {
			mem[pin.setReg] = pin.mask
		}
	})
}

// Close returns the pin to an input, so it no longer drives the line.
func (pin *Pin) Close() error {
	return pin.SetMode(ModeInput)
}

// SetPull sets the pull up/down mode for a Pin.
// Unlike the mode, the pull value cannot be read back from hardware and
// so must be remembered by the caller.
func (pin *Pin) SetPull(pull Pull) error {
	switch pin.m.chipset {
	case BCM2711:
		return pin.setPull2711(pull)
	default:
		return pin.setPull2835(pull)
	}
}

func (pin *Pin) setPull2835(pull Pull) error {
	clkReg := pin.bank + 38
	return pin.regs(func(mem []uint32) {
		mem[pullReg2835] = mem[pullReg2835]&^pullMask | uint32(pull)
		// Wait for value to clock in, this is ugly, sorry :(
		// This wait corresponds to at least 150 clock cycles.
		time.Sleep(time.Microsecond)
		mem[clkReg] = pin.mask
		time.Sleep(time.Microsecond)
		mem[pullReg2835] = mem[pullReg2835] &^ pullMask
		mem[clkReg] = 0
	})
}

func (pin *Pin) setPull2711(pull Pull) error {
	// 2711 reverses up/down sense
	switch pull {
	case PullUp:
		pull = PullDown
	case PullDown:
		pull = PullUp
	}
	shift := uint(pin.pin&0x0f) << 1
	return pin.regs(func(mem []uint32) {
		mem[pin.pullReg] = mem[pin.pullReg]&^(pullMask<<shift) | uint32(pull)<<shift
	})
}
