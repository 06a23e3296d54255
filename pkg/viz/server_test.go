package viz

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/norasector/serialmail/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec.Result()
}

func TestStatusAndMetrics(t *testing.T) {
	s := NewServer(0, time.Millisecond)
	h := s.Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/status").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").StatusCode)

	s.SetStatus(func() interface{} { return map[string]int{"frames": 3} })
	s.SetMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("frames_total 3\n"))
	}))

	resp := get(t, h, "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, 3, status["frames"])

	body, err := io.ReadAll(get(t, h, "/metrics").Body)
	require.NoError(t, err)
	assert.Equal(t, "frames_total 3\n", string(body))
}

func TestRecordPlotsRender(t *testing.T) {
	s := NewServer(0, time.Millisecond)
	plots := NewRecordPlots(s, 64, 0.625)
	h := s.Handler()

	// No nodes yet.
	assert.Equal(t, http.StatusFound, get(t, h, "/").StatusCode)

	ch0 := make([]float64, 16)
	for i := range ch0 {
		ch0[i] = 0.5 * math.Sin(float64(i))
	}
	for i := 0; i < 8; i++ {
		plots.Observe(&record.Record{Node: 7, Ch0: ch0, Ch1: []float64{0.1}})
	}

	resp := get(t, h, "/")
	assert.Equal(t, "/view/node7", resp.Header.Get("Location"))

	resp = get(t, h, "/view/node7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(page), "/img/node7/node7-ch0?")
	assert.Contains(t, string(page), "/img/node7/node7-ch1-fft?")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/view/node8").StatusCode)

	s.Refresh()
	resp = get(t, h, "/img/node7/node7-ch0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte("\x89PNG"), img[:4])

	assert.Equal(t, http.StatusOK, get(t, h, "/img/node7/node7-ch0-fft").StatusCode)
}

func TestTimeDomainPlotterWindow(t *testing.T) {
	p := NewTimeDomainPlotter("x", 4)
	assert.Nil(t, p.GetImage())
	p.Append([]float64{1, 2, 3})
	p.Append([]float64{4, 5, 6})
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, []float64{3, 4, 5, 6}, p.buf)
}

func TestFFTPlotterPeak(t *testing.T) {
	const n = 64
	p := NewFFTPlotter("fft", n)
	tone := make([]float64, n)
	for i := range tone {
		tone[i] = math.Cos(2 * math.Pi * 8 * float64(i) / n)
	}
	p.Append(tone)

	power := p.spectrum()
	peak := 0
	for i, v := range power {
		if v > power[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8, peak)
	assert.InDelta(t, 8.0/n, p.fft.Freq(peak), 1e-12)
}
