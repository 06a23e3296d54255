package receiver

import (
	"time"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/frame"
	"github.com/norasector/serialmail/pkg/metrics"
	"github.com/norasector/serialmail/pkg/output"
	"github.com/norasector/serialmail/pkg/viz"
	"github.com/rs/zerolog"
)

type Options struct {
	Calibration adc.Calibration
	Framing     frame.Options
	// Sinks receive every record, in this order.
	Sinks []output.Sink
}

type ReceiverOption func(r *Receiver) error

func WithInfluxDB(influxClient api.WriteAPI) ReceiverOption {
	return func(r *Receiver) error {
		r.writeAPI = influxClient
		return nil
	}
}

// WithVizServer plots the last samples of every node on s and exposes the
// receiver's status there.
func WithVizServer(s *viz.Server, samples int) ReceiverOption {
	return func(r *Receiver) error {
		r.vizServer = s
		r.plots = viz.NewRecordPlots(s, samples, r.opts.Calibration.FullScale())
		s.SetStatus(func() interface{} { return r.Stats() })
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) ReceiverOption {
	return func(r *Receiver) error {
		r.metrics = m
		return nil
	}
}

func WithLogger(logger zerolog.Logger) ReceiverOption {
	return func(r *Receiver) error {
		r.logger = logger
		return nil
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) ReceiverOption {
	return func(r *Receiver) error {
		r.now = now
		return nil
	}
}
