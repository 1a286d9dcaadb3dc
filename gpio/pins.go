// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package gpio

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Convenience mapping from J8 pinouts to BCM pinouts.
const (
	J8p27 = iota
	J8p28
	J8p3
	J8p5
	J8p7
	J8p29
	J8p31
	J8p26
	J8p24
	J8p21
	J8p19
	J8p23
	J8p32
	J8p33
	J8p8
	J8p10
	J8p36
	J8p11
	J8p12
	J8p35
	J8p38
	J8p40
	J8p15
	J8p16
	J8p18
	J8p22
	J8p37
	J8p13
	MaxGPIOPin
)

// GPIO aliases to J8 pins
const (
	GPIO2  = J8p3
	GPIO3  = J8p5
	GPIO4  = J8p7
	GPIO5  = J8p29
	GPIO6  = J8p31
	GPIO7  = J8p26
	GPIO8  = J8p24
	GPIO9  = J8p21
	GPIO10 = J8p19
	GPIO11 = J8p23
	GPIO12 = J8p32
	GPIO13 = J8p33
	GPIO14 = J8p8
	GPIO15 = J8p10
	GPIO16 = J8p36
	GPIO17 = J8p11
	GPIO18 = J8p12
	GPIO19 = J8p35
	GPIO20 = J8p38
	GPIO21 = J8p40
	GPIO22 = J8p15
	GPIO23 = J8p16
	GPIO24 = J8p18
	GPIO25 = J8p22
	GPIO26 = J8p37
	GPIO27 = J8p13
)

// noPin marks wiringPi numbers with no J8 GPIO.
const noPin = -1

// wiringPi pin numbers, indexed by wiringPi number, as BCM offsets.
// 17-20 are the P5 header of the rev 2 boards, which is not supported.
var wiringPi = [...]int{
	GPIO17, GPIO18, GPIO27, GPIO22, GPIO23, GPIO24, GPIO25, GPIO4,
	GPIO2, GPIO3, GPIO8, GPIO7, GPIO10, GPIO9, GPIO11, GPIO14,
	GPIO15, noPin, noPin, noPin, noPin, GPIO5, GPIO6, GPIO13,
	GPIO19, GPIO26, GPIO12, GPIO16, GPIO20, GPIO21, 0, 1,
}

// WiringPi returns the BCM offset of the wiringPi pin number.
//
// Only pins on the J8 header, i.e. offsets below MaxGPIOPin, are supported.
func WiringPi(pin int) (int, error) {
	if pin < 0 || pin >= len(wiringPi) || wiringPi[pin] == noPin {
		return 0, errors.Wrapf(ErrInvalidOffset, "wiringPi pin %d", pin)
	}
	return wiringPi[pin], nil
}

// ParsePin converts a pin name into a BCM offset.
//
// Names may be J8 pins (J8p7), BCM names (GPIO4), wiringPi names (wPi7) or
// plain BCM numbers (4), and are case insensitive.
func ParsePin(s string) (int, error) {
	u := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(u, "J8P"):
		n, err := strconv.Atoi(u[3:])
		if err != nil {
			break
		}
		if o, ok := j8Pins[n]; ok {
			return o, nil
		}
		return 0, errors.Wrapf(ErrInvalidOffset, "'%s' is not a GPIO", s)
	case strings.HasPrefix(u, "WPI"):
		n, err := strconv.Atoi(u[3:])
		if err != nil {
			break
		}
		return WiringPi(n)
	default:
		n, err := strconv.Atoi(strings.TrimPrefix(u, "GPIO"))
		if err != nil {
			break
		}
		if n < 0 || n >= MaxGPIOPin {
			return 0, errors.Wrapf(ErrInvalidOffset, "unknown pin '%d'", n)
		}
		return n, nil
	}
	return 0, errors.Errorf("can't parse pin '%s'", s)
}

var j8Pins = map[int]int{
	3: J8p3, 5: J8p5, 7: J8p7, 8: J8p8, 10: J8p10, 11: J8p11, 12: J8p12,
	13: J8p13, 15: J8p15, 16: J8p16, 18: J8p18, 19: J8p19, 21: J8p21,
	22: J8p22, 23: J8p23, 24: J8p24, 26: J8p26, 27: J8p27, 28: J8p28,
	29: J8p29, 31: J8p31, 32: J8p32, 33: J8p33, 35: J8p35, 36: J8p36,
	37: J8p37, 38: J8p38, 40: J8p40,
}
