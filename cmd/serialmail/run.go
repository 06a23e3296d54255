package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/device"
	"github.com/norasector/serialmail/pkg/metrics"
	"github.com/norasector/serialmail/pkg/output"
	"github.com/norasector/serialmail/pkg/receiver"
	"github.com/norasector/serialmail/pkg/util"
	"github.com/norasector/serialmail/pkg/viz"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// outputFlags are shared by every command that records.
type outputFlags struct {
	file    string
	formats []string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.file, "file", "", "output file name, e.g. out/run.csv; the extension is dropped and the node and start time appended")
	cmd.Flags().StringSliceVar(&o.formats, "format", nil, "output format: csv, json or cbor (repeatable)")
}

func (o *outputFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("file") {
		dir, name := filepath.Split(o.file)
		if dir != "" {
			cfg.Output.Directory = dir
		}
		cfg.Output.Name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Formats = o.formats
	}
}

func buildSinks(cfg config.Config, writeAPI api.WriteAPI, start time.Time) ([]output.Sink, error) {
	var sinks []output.Sink
	if cfg.Output.Console {
		sinks = append(sinks, output.NewConsoleOutput(log.Logger))
	}

	for _, name := range cfg.Output.Formats {
		format, err := output.ParseFormat(name)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, output.NewNodeFiles(cfg.Output.Directory, cfg.Output.Name, format, start, log.Logger))
	}

	if len(cfg.OutputDestinations) > 0 {
		udp, err := output.NewUDPOutput(cfg.OutputDestinations)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, udp)
	}

	if cfg.InfluxDB.Host != "" {
		sinks = append(sinks, output.NewInfluxOutput(writeAPI))
	}

	return sinks, nil
}

func closeSinks(sinks []output.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Error().Err(err).Str("sink", s.Name()).Msg("error closing sink")
		}
	}
}

// run wires dev into a receiver built from cfg and blocks until the stream
// ends, the device fails or the process is signaled.
func run(cfg config.Config, dev device.Device) error {
	if cfg.RecordLocation != "" {
		rec, err := device.NewRecordingDevice(dev, cfg.RecordLocation)
		if err != nil {
			return err
		}
		log.Info().Str("file", cfg.RecordLocation).Msg("recording byte stream")
		dev = rec
	}

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if cfg.InfluxDB.Host != "" {
		client := influxdb2.NewClient(cfg.InfluxDB.Host, cfg.InfluxDB.Token)
		defer client.Close()
		writeAPI = client.WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	}

	sinks, err := buildSinks(cfg, writeAPI, time.Now())
	if err != nil {
		return err
	}
	defer closeSinks(sinks)

	m := metrics.New()
	opts := []receiver.ReceiverOption{
		receiver.WithLogger(log.Logger),
		receiver.WithInfluxDB(writeAPI),
		receiver.WithMetrics(m),
	}
	if cfg.VizServer.Enabled {
		vizServer := viz.NewServer(cfg.VizServer.Port, cfg.VizServer.UpdateInterval)
		vizServer.SetMetricsHandler(m.Handler())
		opts = append(opts, receiver.WithVizServer(vizServer, cfg.VizServer.PlotSamples))
		log.Info().Int("port", cfg.VizServer.Port).Msg("serving plots and metrics")
	}

	r, err := receiver.New(dev, receiver.Options{
		Calibration: cfg.Calibration,
		Framing:     cfg.Framing,
		Sinks:       sinks,
	}, opts...)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	eg.Go(func() error {
		select {
		case <-sigChan:
			log.Info().Msg("stopping")
		case <-ctx.Done():
		}
		return r.Stop()
	})

	eg.Go(func() error {
		if err := r.Start(ctx); err != nil {
			return err
		}
		// A finished stream stops the signal watcher too.
		return context.Canceled
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
