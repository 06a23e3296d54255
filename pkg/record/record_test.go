package record

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/decoder"
	"github.com/stretchr/testify/assert"
)

func TestFromMessage(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &decoder.Message{
		Node: 3,
		Ch0:  []adc.Triple{adc.TripleFromRaw(0), adc.TripleFromRaw(8388608)},
		Ch1:  []adc.Triple{},
	}

	rec := FromMessage(msg, adc.DefaultCalibration(), ts)
	assert.Equal(t, int32(3), rec.Node)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, []float64{-0.625, 0}, rec.Ch0)
	assert.Empty(t, rec.Ch1)
	assert.Equal(t, []uint32{0, 8388608}, Measurements(rec.RawCh0))
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	got := FileName("out", "capture", 12, start, "csv")
	assert.Equal(t, filepath.Join("out", "capture_node12_20240301T090507.csv"), got)
}

func TestDisplayTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 5, 7, 42*int(time.Millisecond)+999, time.UTC)
	assert.Equal(t, "2024-03-01 09:05:07:042", DisplayTime(ts))
}
