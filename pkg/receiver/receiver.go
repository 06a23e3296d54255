package receiver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/serialmail/pkg/decoder"
	"github.com/norasector/serialmail/pkg/device"
	"github.com/norasector/serialmail/pkg/frame"
	"github.com/norasector/serialmail/pkg/metrics"
	"github.com/norasector/serialmail/pkg/record"
	"github.com/norasector/serialmail/pkg/util"
	"github.com/norasector/serialmail/pkg/viz"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const chunkBacklog = 16

// Stats counts what the receive loop has seen so far.
type Stats struct {
	Bytes         int64 `json:"bytes"`
	Frames        int64 `json:"frames"`
	Records       int64 `json:"records"`
	FramingErrors int64 `json:"framing_errors"`
	SchemaErrors  int64 `json:"schema_errors"`
	SinkErrors    int64 `json:"sink_errors"`
	SkippedBytes  int64 `json:"skipped_bytes"`
	LastNode      int32 `json:"last_node"`
}

type Receiver struct {
	device    device.Device
	opts      Options
	extractor *frame.Extractor
	writeAPI  api.WriteAPI
	vizServer *viz.Server
	plots     *viz.RecordPlots
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	stats    Stats
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
}

func New(dev device.Device, options Options, opts ...ReceiverOption) (*Receiver, error) {
	if err := options.Framing.Validate(); err != nil {
		return nil, fmt.Errorf("framing: %w", err)
	}
	if err := options.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	r := &Receiver{
		device:    dev,
		opts:      options,
		extractor: frame.NewExtractor(options.Framing),
		writeAPI:  &util.MockWriteAPI{}, // overwritten with option
		logger:    log.Logger,
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Stop ends the receive loop after the frame in progress and releases the
// device.
func (r *Receiver) Stop() error {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	return r.device.Stop()
}

// Start runs until the device ends its stream, fails, or the receiver is
// stopped. Sinks are flushed before it returns; closing them is left to the
// caller.
func (r *Receiver) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	select {
	case <-r.stop:
		return context.Canceled
	default:
	}

	eg, egCtx := errgroup.WithContext(runCtx)
	chunks := make(chan []byte, chunkBacklog)

	eg.Go(func() error {
		defer close(chunks)
		return r.device.Start(egCtx, chunks)
	})

	eg.Go(func() error {
		defer cancel()
		return r.process(runCtx, chunks)
	})

	if r.vizServer != nil {
		eg.Go(func() error {
			return r.vizServer.Run(egCtx)
		})
		eg.Go(func() error {
			<-egCtx.Done()
			return r.vizServer.Stop(context.Background())
		})
	}

	r.logger.Info().
		Int("min_size", r.opts.Framing.MinSize).
		Int("max_size", r.opts.Framing.MaxSize).
		Str("checksum", string(r.opts.Framing.Checksum)).
		Int("sinks", len(r.opts.Sinks)).
		Msg("Starting")

	err := eg.Wait()

	stats := r.Stats()
	r.logger.Info().
		Int64("frames", stats.Frames).
		Int64("records", stats.Records).
		Int64("framing_errors", stats.FramingErrors).
		Int64("schema_errors", stats.SchemaErrors).
		Msg("Stopped")

	return err
}

// process is the single consumer of the byte stream. It drains chunks until
// the device closes the channel, checking for a stop between frames.
func (r *Receiver) process(ctx context.Context, chunks <-chan []byte) error {
	defer r.flush()

	for chunk := range chunks {
		if err := r.receive(ctx, chunk); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (r *Receiver) receive(ctx context.Context, chunk []byte) error {
	r.mu.Lock()
	r.stats.Bytes += int64(len(chunk))
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.Bytes.Add(float64(len(chunk)))
	}

	r.extractor.Feed(chunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := r.extractor.Next()
		var ferr *frame.FramingError
		switch {
		case errors.Is(err, frame.ErrNeedMore):
			r.mu.Lock()
			r.stats.SkippedBytes = r.extractor.Skipped()
			r.mu.Unlock()
			return nil
		case errors.As(err, &ferr):
			r.logger.Warn().
				Int64("offset", ferr.Offset).
				Uint32("length", ferr.Length).
				Str("reason", ferr.Reason).
				Msg("dropping frame header")
			r.mu.Lock()
			r.stats.FramingErrors++
			r.mu.Unlock()
			if r.metrics != nil {
				r.metrics.FramingErrors.Inc()
			}
		case err != nil:
			return err
		default:
			r.handleFrame(payload)
		}
	}
}

func (r *Receiver) handleFrame(payload []byte) {
	end := r.extractor.Offset()

	r.mu.Lock()
	r.stats.Frames++
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.Frames.Inc()
	}

	var msg *decoder.Message
	decodeMicros, err := util.TimeFallibleMicroseconds(func() (err error) {
		msg, err = decoder.Decode(payload)
		return err
	})
	if r.metrics != nil {
		r.metrics.DecodeDuration.Observe(float64(decodeMicros) / 1e6)
	}
	if err != nil {
		r.logger.Warn().
			Err(err).
			Int64("end_offset", end).
			Int("length", len(payload)).
			Msg("dropping undecodable frame")
		r.mu.Lock()
		r.stats.SchemaErrors++
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.SchemaErrors.Inc()
		}
		return
	}

	rec := record.FromMessage(msg, r.opts.Calibration, r.now())
	sinkErrors := r.write(rec)

	r.mu.Lock()
	r.stats.Records++
	r.stats.SinkErrors += int64(sinkErrors)
	r.stats.LastNode = rec.Node
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.LastNode.Set(float64(rec.Node))
	}

	if r.plots != nil {
		r.plots.Observe(rec)
	}

	r.writeAPI.WritePoint(influxdb2.NewPoint("serialmail.frame",
		map[string]string{
			"node": fmt.Sprint(rec.Node),
		},
		map[string]interface{}{
			"frame_bytes":  len(payload),
			"decode_us":    decodeMicros,
			"ch0_samples":  len(rec.Ch0),
			"ch1_samples":  len(rec.Ch1),
			"sink_errors":  sinkErrors,
			"stream_bytes": end,
		}, rec.Timestamp))
}

// write hands rec to every sink in order. A failing sink is logged and
// skipped so the others still get the record.
func (r *Receiver) write(rec *record.Record) int {
	var failed int
	for _, sink := range r.opts.Sinks {
		if err := sink.Write(rec); err != nil {
			failed++
			r.logger.Error().
				Err(err).
				Str("sink", sink.Name()).
				Int32("node", rec.Node).
				Msg("error writing record")
			if r.metrics != nil {
				r.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			}
			continue
		}
		if r.metrics != nil {
			r.metrics.Records.WithLabelValues(sink.Name()).Inc()
		}
	}
	return failed
}

func (r *Receiver) flush() {
	for _, sink := range r.opts.Sinks {
		if err := sink.Flush(); err != nil {
			r.logger.Error().Err(err).Str("sink", sink.Name()).Msg("error flushing sink")
		}
	}
	r.writeAPI.Flush()
}
