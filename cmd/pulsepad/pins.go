// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warthog618/pulsepad/gpio"
)

func init() {
	rootCmd.AddCommand(pinsCmd)
}

var pinsCmd = &cobra.Command{
	Use:                "pins [pin]...",
	Short:              "Display the bus pin assignment",
	Long:               `Display the BCM offsets of the configured bus pins, or of the named pins.`,
	Example:            "  pulsepad pins\n  pulsepad pins J8p23 wPi21",
	RunE:               pins,
	FParseErrWhitelist: configFlags,
}

func pins(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		for _, arg := range args {
			o, err := gpio.ParsePin(arg)
			if err != nil {
				return err
			}
			fmt.Printf("%s: GPIO%d\n", arg, o)
		}
		return nil
	}
	cfg := loadConfig()
	p, err := busPins(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("adc: %s\n", cfg.MustGet("adc").String())
	fmt.Printf("clk: GPIO%d\n", p.Clk)
	fmt.Printf("csz: GPIO%d\n", p.Csz)
	fmt.Printf("di:  GPIO%d\n", p.Di)
	fmt.Printf("do:  GPIO%d\n", p.Do)
	return nil
}
