package record

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/decoder"
)

// Record is one decoded message converted to volts.
type Record struct {
	Node      int32
	Timestamp time.Time
	Ch0       []float64
	Ch1       []float64
	RawCh0    []adc.Triple
	RawCh1    []adc.Triple
}

func FromMessage(msg *decoder.Message, cal adc.Calibration, ts time.Time) *Record {
	return &Record{
		Node:      msg.Node,
		Timestamp: ts,
		Ch0:       adc.ConvertAll(msg.Ch0, cal),
		Ch1:       adc.ConvertAll(msg.Ch1, cal),
		RawCh0:    msg.Ch0,
		RawCh1:    msg.Ch1,
	}
}

func Measurements(ts []adc.Triple) []uint32 {
	ret := make([]uint32, len(ts))
	for i, t := range ts {
		ret[i] = t.Raw()
	}
	return ret
}

const fileTimeLayout = "20060102T150405"

// FileName is the per-node output file for a run started at start.
func FileName(dir, base string, node int32, start time.Time, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_node%d_%s.%s", base, node, start.Format(fileTimeLayout), ext))
}

// DisplayTime formats t like the CSV datetime column: milliseconds after a colon.
func DisplayTime(t time.Time) string {
	return fmt.Sprintf("%s:%03d", t.Format("2006-01-02 15:04:05"), t.Nanosecond()/int(time.Millisecond))
}
