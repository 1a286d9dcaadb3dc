// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopxl/beep"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/warthog618/config"
	"github.com/warthog618/pulsepad/pitch"
	"github.com/warthog618/pulsepad/poll"
	"github.com/warthog618/pulsepad/sound"
	"github.com/warthog618/pulsepad/touch"
	"go.uber.org/zap"
)

func init() {
	playCmd.SetHelpTemplate(playCmd.HelpTemplate() + extendedPlayHelp)
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:                "play",
	Short:              "Play notes when the sensors are pressed",
	Args:               cobra.NoArgs,
	RunE:               play,
	FParseErrWhitelist: configFlags,
}

var extendedPlayHelp = `
The sensors are assigned the C major scale from C4, starting at channel 0.
The name of each note is printed as it is played.
`

// speaker output format
const (
	speakerRate    = beep.SampleRate(44100)
	speakerLatency = time.Second / 10
)

func play(cmd *cobra.Command, args []string) error {
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
	scale := pitch.CMajor()
	n := lo.Min([]int{cfg.MustGet("sensors").Int(), adc.Channels(), len(scale)})
	if n < 1 {
		return errors.Errorf("invalid number of sensors %d", n)
	}
	labels := lo.Map(scale[:n], func(p pitch.Pitch, _ int) string {
		return p.String()
	})
	cc, err := touch.Sequential(adc, labels, touch.WithThresholds(th), touch.WithLogger(logger))
	if err != nil {
		return err
	}
	pp := lo.Map(cc, func(c *touch.Channel, _ int) poll.Poller {
		return c
	})
	out, closer, err := newOutput(cfg, logger)
	if err != nil {
		return err
	}
	defer closer()
	onPress := func(ch int, label string) {
		fmt.Println(label)
		out(ch, label)
	}
	loop := poll.New(pp, onPress,
		poll.WithLogger(logger),
		poll.WithStats(cfg.MustGet("stats").Duration()),
		poll.WithQueue(cfg.MustGet("queue").Int()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	logger.Info("playing", zap.Strings("notes", labels))
	err = loop.Run(ctx)
	s := loop.Stats()
	logger.Info("stopped",
		zap.Uint64("passes", s.Passes),
		zap.Uint64("presses", s.Presses),
		zap.Float64("rate", s.PassRate()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newOutput returns the action that sounds a note for the configured output.
func newOutput(cfg *config.Config, logger *zap.Logger) (poll.Action, func(), error) {
	switch o := cfg.MustGet("output").String(); o {
	case "speaker":
		spk, err := sound.NewSpeaker(speakerRate, speakerLatency)
		if err != nil {
			return nil, nil, err
		}
		lib := sound.NewLibrary(
			cfg.MustGet("samples").String(),
			cfg.MustGet("instrument").String(),
			sound.WithLibraryLogger(logger))
		p := sound.NewPlayer(lib, spk, sound.WithPlayerLogger(logger))
		return p.Press, spk.Close, nil
	case "midi":
		dev := cfg.MustGet("midi.device").String()
		f, err := os.OpenFile(dev, os.O_WRONLY, 0)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open midi device")
		}
		m, err := sound.NewMIDI(f, cfg.MustGet("midi.channel").Int(), cfg.MustGet("midi.velocity").Int(), logger)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return m.Press, func() { f.Close() }, nil
	case "print":
		return func(int, string) {}, func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown output '%s'", o)
	}
}
