package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/norasector/serialmail/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "serialmail.yaml"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	var configFile string

	rootCmd := &cobra.Command{
		Use:   "serialmail",
		Short: "Receive, decode and record SerialMail messages",
		Long: `serialmail reads framed SerialMail messages from a serial link or a
captured byte stream, converts the 24 bit ADC samples they carry to volts
and appends one record per message to per-node CSV, JSON or CBOR files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "YAML config file")

	load := func(cmd *cobra.Command) (config.Config, error) {
		return loadConfig(configFile, cmd.Flags().Changed("config"))
	}

	rootCmd.AddCommand(
		listenCmd(load),
		replayCmd(load),
		emitCmd(load),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("exited program")
	}
}

type configLoader func(cmd *cobra.Command) (config.Config, error)

// loadConfig reads path over the defaults. A missing default config file is
// not an error; one named on the command line is.
func loadConfig(path string, explicit bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return cfg, err
}

func setLogLevel(cfg config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Logger = log.Logger.Level(level)
	return nil
}
