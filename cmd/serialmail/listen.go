package main

import (
	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/device/serial"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func listenCmd(load configLoader) *cobra.Command {
	var (
		port     string
		baudRate int
		out      outputFlags
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive SerialMail messages from a serial port",
		Example: `  serialmail listen --port /dev/ttyUSB0 --baudrate 115200 --file run.csv --format csv
  serialmail listen -c serialmail.yaml --format csv --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			cfg.Device = config.DeviceSerial
			if cmd.Flags().Changed("port") {
				cfg.Serial.Port = port
			}
			if cmd.Flags().Changed("baudrate") {
				cfg.Serial.BaudRate = baudRate
			}
			out.apply(cmd, &cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setLogLevel(cfg); err != nil {
				return err
			}

			log.Info().Str("device", cfg.Serial.Port).Int("baud_rate", cfg.Serial.BaudRate).Msg("initializing device...")
			dev, err := serial.NewSerialDevice(cfg.Serial)
			if err != nil {
				return err
			}
			return run(cfg, dev)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "serial port, e.g. /dev/ttyS0 or COM3")
	cmd.Flags().IntVar(&baudRate, "baudrate", 115200, "baud rate")
	out.register(cmd)

	return cmd
}
