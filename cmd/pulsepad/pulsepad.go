// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// pulsepad plays notes when touch or pulse sensors, read through a bit bashed
// SPI ADC, are pressed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pulsepad",
	Short: "pulsepad is a touch sensor keyboard for the Raspberry Pi",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version:            version,
	FParseErrWhitelist: configFlags,
}

// configFlags allows configuration keys, which are parsed by loadConfig, to
// be passed as flags to any command.
var configFlags = cobra.FParseErrWhitelist{UnknownFlags: true}

func init() {
	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + extendedConfigHelp)
}

var extendedConfigHelp = `
Configuration:
  Settings may be provided as flags (--tclk=1us), environment variables
  (PULSEPAD_TCLK=1us) or in a JSON config file (pulsepad.json, or as set by
  --config-file). Flags must use the --key=value form.

  backend      gpio driver - cdev, mem, periph or sim (default cdev)
  gpiochip     the gpiochip used by the cdev backend (default gpiochip0)
  adc          mcp3208, mcp3204, mcp3008, mcp3004 or adc0832
  clk, csz, di, do
               the bus pins, as BCM numbers or names (GPIO11, J8p23, wPi14)
  tclk, tset   the minimum clock edge and mux settling times
  sensors      the number of sensors, on channels 0 upwards
  threshold.press, threshold.release.low, threshold.release.high
  output       speaker, midi or print (default speaker)
  instrument   the sample set played by the speaker (default piano)
  samples      the root directory of the sample sets
  midi.device, midi.channel, midi.velocity
  queue        presses buffered while an earlier note starts
  stats        the period between poll statistics logs, 0 to disable
  verbose      log at debug level
`

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
