package main

import (
	"time"

	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/device/file"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func replayCmd(load configLoader) *cobra.Command {
	var (
		delay time.Duration
		out   outputFlags
	)

	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Decode a captured byte stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			cfg.Device = config.DeviceFile
			cfg.RecordLocation = ""
			if len(args) == 1 {
				cfg.Playback.Location = args[0]
			}
			if cmd.Flags().Changed("delay") {
				cfg.Playback.Delay = delay
			}
			out.apply(cmd, &cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setLogLevel(cfg); err != nil {
				return err
			}

			log.Info().Str("device", "file").Str("file", cfg.Playback.Location).Msg("initializing device...")
			dev, err := file.NewFileDevice(cfg.Playback.Location, cfg.Playback.ReadSize, cfg.Playback.Delay)
			if err != nil {
				return err
			}
			return run(cfg, dev)
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 0, "time between reads; 0 replays as fast as possible")
	out.register(cmd)

	return cmd
}
