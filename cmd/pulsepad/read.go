// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	readCmd.Flags().BoolVar(&readOpts.Differential, "differential", false, "read differential pairs rather than single ended inputs")
	rootCmd.AddCommand(readCmd)
}

var (
	readCmd = &cobra.Command{
		Use:                "read [channel]...",
		Short:              "Read the ADC channels",
		Long:               `Read the ADC channels once, by default all of them, and print the raw values.`,
		Example:            "  pulsepad read 0 3\n  pulsepad read --adc=mcp3008",
		RunE:               read,
		FParseErrWhitelist: configFlags,
	}
	readOpts = struct {
		Differential bool
	}{}
)

func read(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	adc, err := openADC(cfg, logger)
	if err != nil {
		return err
	}
	defer adc.Close()
	chans, err := parseChannels(args, adc.Channels())
	if err != nil {
		return err
	}
	rd := adc.Read
	if readOpts.Differential {
		rd = adc.ReadDifferential
	}
	for _, ch := range chans {
		d, err := rd(ch)
		if err != nil {
			return err
		}
		fmt.Printf("ch%d=0x%04x (%d)\n", ch, d, d)
	}
	return nil
}

func parseChannels(args []string, n int) ([]int, error) {
	if len(args) == 0 {
		cc := make([]int, n)
		for i := range cc {
			cc[i] = i
		}
		return cc, nil
	}
	cc := make([]int, len(args))
	for i, arg := range args {
		ch, err := parseChannel(arg, n)
		if err != nil {
			return nil, err
		}
		cc[i] = ch
	}
	return cc, nil
}
