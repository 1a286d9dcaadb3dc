// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	"github.com/warthog618/pulsepad/gpio"
	"github.com/warthog618/pulsepad/internal/adcsim"
	"github.com/warthog618/pulsepad/spi"
	"github.com/warthog618/pulsepad/spi/adc0832"
	"github.com/warthog618/pulsepad/spi/mcp3w0c"
	"github.com/warthog618/pulsepad/touch"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// The default pins are the SPI0 pins, with the ADC wired as it would be for
// the hardware SPI peripheral.
var defaultConfig = map[string]interface{}{
	"backend":                "cdev",
	"gpiochip":               "gpiochip0",
	"adc":                    "mcp3208",
	"tclk":                   "500ns",
	"tset":                   "0s",
	"clk":                    "GPIO11",
	"csz":                    "GPIO8",
	"di":                     "GPIO10",
	"do":                     "GPIO9",
	"sensors":                4,
	"threshold.press":        int(touch.DefaultThresholds.Press),
	"threshold.release.low":  int(touch.DefaultThresholds.ReleaseLow),
	"threshold.release.high": int(touch.DefaultThresholds.ReleaseHigh),
	"output":                 "speaker",
	"instrument":             "piano",
	"samples":                "samples",
	"midi.device":            "/dev/snd/midiC1D0",
	"midi.channel":           0,
	"midi.velocity":          100,
	"queue":                  0,
	"stats":                  "0s",
	"verbose":                false,
}

func loadConfig() *config.Config {
	def := dict.New(dict.WithMap(defaultConfig))
	cfg := config.New(
		pflag.New(pflag.WithFlags(
			[]pflag.Flag{{Short: 'c', Name: "config-file"}})),
		env.New(env.WithEnvPrefix("PULSEPAD_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "pulsepad.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust())
	return cfg
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.MustGet("verbose").Bool() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func busPins(cfg *config.Config) (spi.Pins, error) {
	var pins spi.Pins
	for _, p := range []struct {
		key    string
		offset *int
	}{
		{"clk", &pins.Clk},
		{"csz", &pins.Csz},
		{"di", &pins.Di},
		{"do", &pins.Do},
	} {
		o, err := gpio.ParsePin(cfg.MustGet(p.key).String())
		if err != nil {
			return pins, errors.Wrapf(err, "%s pin", p.key)
		}
		*p.offset = o
	}
	return pins, nil
}

func thresholds(cfg *config.Config) (touch.Thresholds, error) {
	var th touch.Thresholds
	for _, t := range []struct {
		key string
		v   *uint16
	}{
		{"threshold.press", &th.Press},
		{"threshold.release.low", &th.ReleaseLow},
		{"threshold.release.high", &th.ReleaseHigh},
	} {
		v := cfg.MustGet(t.key).Int()
		if v < 0 || v > math.MaxUint16 {
			return th, errors.Errorf("%s %d out of range", t.key, v)
		}
		*t.v = uint16(v)
	}
	return th, th.Validate()
}

// adc is the subset of the converter drivers used by the commands.
type adc interface {
	Read(ch int) (uint16, error)
	ReadDifferential(ch int) (uint16, error)
	Channels() int
	Close() error
}

// device is an ADC with the chip providing its lines.
type device struct {
	adc
	chip *gpio.Chip
}

func (d *device) Close() error {
	return multierr.Append(d.adc.Close(), d.chip.Close())
}

func openBackend(cfg *config.Config, pins spi.Pins) (gpio.Backend, error) {
	switch b := cfg.MustGet("backend").String(); b {
	case "cdev":
		return gpio.OpenCdev(cfg.MustGet("gpiochip").String(), "pulsepad")
	case "mem":
		return gpio.OpenMem()
	case "periph":
		return gpio.OpenPeriph()
	case "sim":
		return newSim(cfg.MustGet("adc").String(), pins)
	default:
		return nil, errors.Errorf("unknown backend '%s'", b)
	}
}

// openADC provisions the bus and returns the configured converter.
func openADC(cfg *config.Config, logger *zap.Logger) (*device, error) {
	pins, err := busPins(cfg)
	if err != nil {
		return nil, err
	}
	b, err := openBackend(cfg, pins)
	if err != nil {
		return nil, err
	}
	c := gpio.NewChip(b)
	tclk := cfg.MustGet("tclk").Duration()
	tset := cfg.MustGet("tset").Duration()
	var a adc
	switch model := cfg.MustGet("adc").String(); model {
	case "mcp3208":
		a, err = mcp3w0c.NewMCP3208(c, pins, mcp3w0c.WithTclk(tclk), mcp3w0c.WithTset(tset))
	case "mcp3204":
		a, err = mcp3w0c.NewMCP3204(c, pins, mcp3w0c.WithTclk(tclk), mcp3w0c.WithTset(tset))
	case "mcp3008":
		a, err = mcp3w0c.NewMCP3008(c, pins, mcp3w0c.WithTclk(tclk), mcp3w0c.WithTset(tset))
	case "mcp3004":
		a, err = mcp3w0c.NewMCP3004(c, pins, mcp3w0c.WithTclk(tclk), mcp3w0c.WithTset(tset))
	case "adc0832":
		a, err = adc0832.New(c, pins, adc0832.WithTclk(tclk), adc0832.WithTset(tset))
	default:
		err = errors.Errorf("unknown adc '%s'", model)
	}
	if err != nil {
		c.Close()
		return nil, err
	}
	logger.Debug("adc open",
		zap.String("adc", cfg.MustGet("adc").String()),
		zap.String("backend", cfg.MustGet("backend").String()),
		zap.Int("clk", pins.Clk),
		zap.Int("csz", pins.Csz),
		zap.Int("di", pins.Di),
		zap.Int("do", pins.Do),
		zap.Duration("tclk", tclk))
	return &device{adc: a, chip: c}, nil
}

// sim timing - each channel is pressed for pressTime in every period,
// staggered by channel.
const (
	simPeriod    = 3 * time.Second
	simPressTime = 200 * time.Millisecond
	simStagger   = 700 * time.Millisecond
)

// newSim returns an emulated converter fed with a synthetic sensor signal,
// idling around mid scale with a periodic press on each channel.
func newSim(model string, pins spi.Pins) (*adcsim.Device, error) {
	var m adcsim.Model
	switch model {
	case "mcp3208", "mcp3204":
		m = adcsim.MCP3208
	case "mcp3008", "mcp3004":
		m = adcsim.MCP3008
	case "adc0832":
		m = adcsim.ADC0832
	default:
		return nil, errors.Errorf("unknown adc '%s'", model)
	}
	full := 1<<uint(m.Width) - 1
	start := time.Now()
	d := adcsim.New(m, pins)
	d.SetHistory(1)
	d.SetSource(func(cmd adcsim.Command) uint16 {
		t := time.Since(start) + time.Duration(cmd.Channel)*simStagger
		jitter := int(t/time.Millisecond) % 41
		level := full/2 - 20 + jitter
		if t%simPeriod < simPressTime {
			level = full/8 + jitter
		}
		return uint16(level)
	})
	return d, nil
}
