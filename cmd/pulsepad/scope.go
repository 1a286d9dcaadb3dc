// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/warthog618/pulsepad/touch"
)

func init() {
	scopeCmd.Flags().DurationVar(&scopeOpts.Period, "period", 20*time.Millisecond, "the time between samples")
	scopeCmd.Flags().UintVar(&scopeOpts.NumSamples, "num-samples", 0, "exit after n samples")
	scopeCmd.Flags().BoolVar(&scopeOpts.Quiet, "quiet", false, "only display samples that change the sensor state")
	scopeCmd.SetHelpTemplate(scopeCmd.HelpTemplate() + extendedScopeHelp)
	rootCmd.AddCommand(scopeCmd)
}

var (
	scopeCmd = &cobra.Command{
		Use:                "scope <channel>",
		Short:              "Display the signal from a sensor",
		Long:               `Repeatedly sample an ADC channel and print the samples to standard output.`,
		Args:               cobra.ExactArgs(1),
		RunE:               scope,
		FParseErrWhitelist: configFlags,
	}
	scopeOpts = struct {
		Period     time.Duration
		NumSamples uint
		Quiet      bool
	}{}
)

var extendedScopeHelp = `
Each line displays the time, the raw sample, a bar graph of the sample and the
state of the sensor as determined by the configured thresholds.
Presses are marked with a '*'.
`

// scopeWidth is the width of the bar graph at full scale.
const scopeWidth = 64

// tap records the samples read by a touch.Channel.
type tap struct {
	touch.Reader
	last uint16
}

func (t *tap) Read(ch int) (uint16, error) {
	v, err := t.Reader.Read(ch)
	t.last = v
	return v, err
}

func scope(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	th, err := thresholds(cfg)
	if err != nil {
		return err
	}
	adc, err := openADC(cfg, logger)
	if err != nil {
		return err
	}
	defer adc.Close()
	ch, err := parseChannel(args[0], adc.Channels())
	if err != nil {
		return err
	}
	t := &tap{Reader: adc}
	c, err := touch.NewChannel(t, ch, args[0], touch.WithThresholds(th), touch.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ticker := time.NewTicker(scopeOpts.Period)
	defer ticker.Stop()
	start := time.Now()
	prev := c.State()
	for n := uint(0); scopeOpts.NumSamples == 0 || n < scopeOpts.NumSamples; n++ {
		pressed, err := c.Poll()
		if err != nil {
			return err
		}
		if !scopeOpts.Quiet || c.State() != prev {
			printSample(time.Since(start), t.last, c.State(), pressed)
		}
		prev = c.State()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func printSample(t time.Duration, v uint16, s touch.State, pressed bool) {
	mark := ' '
	if pressed {
		mark = '*'
	}
	bar := int(v) * scopeWidth / 4096
	fmt.Printf("%10.3f %4d |%-*s| %c%s\n",
		t.Seconds(), v, scopeWidth, strings.Repeat("#", bar), mark, s)
}

func parseChannel(arg string, n int) (int, error) {
	ch, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Errorf("can't parse channel '%s'", arg)
	}
	if ch < 0 || ch >= n {
		return 0, errors.Errorf("channel %d out of range [0,%d]", ch, n-1)
	}
	return ch, nil
}
