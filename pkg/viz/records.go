package viz

import (
	"fmt"
	"sync"

	"github.com/norasector/serialmail/pkg/record"
)

// RecordPlots feeds decoded records into per-node plots, registering a
// bucket for each node the first time it is seen.
type RecordPlots struct {
	server    *Server
	samples   int
	fullScale float64

	mu    sync.Mutex
	nodes map[int32]*nodePlots
}

type nodePlots struct {
	ch0, ch1 *TimeDomainPlotter
	fft0     *FFTPlotter
	fft1     *FFTPlotter
}

func NewRecordPlots(server *Server, samples int, fullScale float64) *RecordPlots {
	return &RecordPlots{
		server:    server,
		samples:   samples,
		fullScale: fullScale,
		nodes:     make(map[int32]*nodePlots),
	}
}

func BucketName(node int32) string {
	return fmt.Sprintf("node%d", node)
}

func (r *RecordPlots) Observe(rec *record.Record) {
	r.mu.Lock()
	np, ok := r.nodes[rec.Node]
	if !ok {
		np = r.register(rec.Node)
		r.nodes[rec.Node] = np
	}
	r.mu.Unlock()

	np.ch0.Append(rec.Ch0)
	np.ch1.Append(rec.Ch1)
	np.fft0.Append(rec.Ch0)
	np.fft1.Append(rec.Ch1)
}

func (r *RecordPlots) register(node int32) *nodePlots {
	bucket := BucketName(node)
	np := &nodePlots{
		ch0:  NewTimeDomainPlotter(bucket+"-ch0", r.samples),
		ch1:  NewTimeDomainPlotter(bucket+"-ch1", r.samples),
		fft0: NewFFTPlotter(bucket+"-ch0-fft", r.samples),
		fft1: NewFFTPlotter(bucket+"-ch1-fft", r.samples),
	}
	for _, p := range []*TimeDomainPlotter{np.ch0, np.ch1} {
		p.AddPlotOption(WithYRange(-r.fullScale, r.fullScale))
		r.server.Register(bucket, p)
	}
	r.server.Register(bucket, np.fft0)
	r.server.Register(bucket, np.fft1)
	return np
}
