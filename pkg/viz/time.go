package viz

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type PlotType int

const (
	PlotTypeDefault PlotType = iota
	PlotTypeScatter
	PlotTypeLines
)

// TimeDomainPlotter keeps the last size samples of one channel.
type TimeDomainPlotter struct {
	mu          sync.Mutex
	buf         []float64
	size        int
	name        string
	plotFunc    func(*plot.Plot, ...interface{}) error
	plotOptions []PlotOptions
}

func NewTimeDomainPlotter(name string, size int) *TimeDomainPlotter {
	return &TimeDomainPlotter{
		buf:      make([]float64, 0, size),
		size:     size,
		name:     name,
		plotFunc: plotutil.AddLines,
	}
}

func (t *TimeDomainPlotter) Name() string {
	return t.name
}

func (t *TimeDomainPlotter) SetPlotType(tp PlotType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch tp {
	case PlotTypeScatter:
		t.plotFunc = plotutil.AddScatters
	default:
		t.plotFunc = plotutil.AddLines
	}
}

func (t *TimeDomainPlotter) Append(v []float64) {
	t.mu.Lock()
	t.buf = append(t.buf, v...)
	if len(t.buf) > t.size {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.size:]...)
	}
	t.mu.Unlock()
}

// Len is the number of buffered samples.
func (t *TimeDomainPlotter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

func (t *TimeDomainPlotter) AddPlotOption(opt PlotOptions) {
	t.mu.Lock()
	t.plotOptions = append(t.plotOptions, opt)
	t.mu.Unlock()
}

// GetImage renders whatever has been buffered so far, or nil before the
// first sample.
func (t *TimeDomainPlotter) GetImage() *ImageContainer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return nil
	}

	p := plotWithDefaults()
	p.Title.Text = t.name
	p.Y.Label.Text = "Volts"
	p.X.Label.Text = "sample"

	for _, opt := range t.plotOptions {
		opt(p)
	}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(t.buf))
	for i, v := range t.buf {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	if err := t.plotFunc(p, "v(t)", pts); err != nil {
		log.Warn().Err(err).Str("plot", t.name).Msg("error adding samples")
		return nil
	}

	return render(t.name, p)
}

func render(name string, p *plot.Plot) *ImageContainer {
	w, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		log.Warn().Err(err).Str("plot", name).Msg("error rendering plot")
		return nil
	}
	var imageData bytes.Buffer
	if _, err := w.WriteTo(&imageData); err != nil {
		log.Warn().Err(err).Str("plot", name).Msg("error rendering plot")
		return nil
	}
	return &ImageContainer{name: name, data: imageData.Bytes()}
}
