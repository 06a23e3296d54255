package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serialmail"

// Metrics holds the receive loop collectors. Each instance owns its registry
// so tests and multiple receivers never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	Bytes          prometheus.Counter
	Frames         prometheus.Counter
	FramingErrors  prometheus.Counter
	SchemaErrors   prometheus.Counter
	Records        *prometheus.CounterVec
	SinkErrors     *prometheus.CounterVec
	DecodeDuration prometheus.Histogram
	LastNode       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from the device",
		}),
		Frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames extracted from the byte stream",
		}),
		FramingErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "framing_errors_total",
			Help:      "Headers rejected for a bad size or checksum",
		}),
		SchemaErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_errors_total",
			Help:      "Frames that failed SerialMail verification",
		}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records written by sink",
		}, []string{"sink"}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Record writes that failed by sink",
		}, []string{"sink"}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time to verify and decode one frame",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 8), // 1us to ~16ms
		}),
		LastNode: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_node",
			Help:      "Node id of the most recent record",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
