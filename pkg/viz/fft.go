package viz

import (
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

const MIX_AVG = 0.10

// FFTPlotter shows the averaged magnitude spectrum of one channel.
type FFTPlotter struct {
	mu           sync.Mutex
	buf          []float64
	len          int
	averagePower []float64
	name         string
	plotOptions  []PlotOptions
	fft          *fourier.FFT
}

func NewFFTPlotter(name string, len int) *FFTPlotter {
	return &FFTPlotter{
		buf:          make([]float64, len),
		averagePower: make([]float64, len/2+1),
		len:          len,
		name:         name,
		fft:          fourier.NewFFT(len),
	}
}

func (p *FFTPlotter) Name() string {
	return p.name
}

func (p *FFTPlotter) Append(s []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s) >= p.len {
		copy(p.buf, s[len(s)-p.len:])
		return
	}
	copy(p.buf, p.buf[len(s):])
	copy(p.buf[p.len-len(s):], s)
}

func (p *FFTPlotter) AddPlotOption(opt PlotOptions) {
	p.mu.Lock()
	p.plotOptions = append(p.plotOptions, opt)
	p.mu.Unlock()
}

// spectrum windows the buffer and folds it into the running average,
// returning the averaged magnitude per bin.
func (p *FFTPlotter) spectrum() []float64 {
	data := window.Blackman(append([]float64(nil), p.buf...))
	coeffs := p.fft.Coefficients(nil, data)
	for i, c := range coeffs {
		mag := cmplx.Abs(c) / (0.42 * float64(p.len))
		p.averagePower[i] = (1.0-MIX_AVG)*p.averagePower[i] + MIX_AVG*mag
	}
	return append([]float64(nil), p.averagePower...)
}

func (p *FFTPlotter) GetImage() *ImageContainer {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl := plotWithDefaults()
	pl.Title.Text = p.name
	pl.Y.Label.Text = "Power (dB)"
	pl.X.Label.Text = "Frequency (cycles/sample)"
	pl.Y.Max = 0
	pl.Y.Min = -140

	for _, opt := range p.plotOptions {
		opt(pl)
	}
	pl.Add(plotter.NewGrid())

	power := p.spectrum()
	pts := make(plotter.XYs, 0, len(power))
	for i, v := range power {
		if v == 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: p.fft.Freq(i), Y: 20 * math.Log10(v)})
	}
	if len(pts) == 0 {
		return nil
	}
	if err := plotutil.AddLines(pl, "spectrum", pts); err != nil {
		return nil
	}

	return render(p.name, pl)
}
