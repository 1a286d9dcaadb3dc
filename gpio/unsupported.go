// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build !linux

package gpio

// Mem is only available on Linux.
type Mem struct{ unsupported }

// OpenMem is only available on Linux.
func OpenMem() (*Mem, error) {
	return nil, ErrNotSupported
}

// Cdev is only available on Linux.
type Cdev struct{ unsupported }

// OpenCdev is only available on Linux.
func OpenCdev(name, consumer string) (*Cdev, error) {
	return nil, ErrNotSupported
}

type unsupported struct{}

func (unsupported) Output(offset, value int) (Line, error) {
	return nil, ErrNotSupported
}

func (unsupported) Input(offset int, pull Pull) (Line, error) {
	return nil, ErrNotSupported
}

func (unsupported) Close() error {
	return ErrNotSupported
}
