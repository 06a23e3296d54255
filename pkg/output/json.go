package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/record"
)

type rawInputBytes struct {
	Data0 byte `json:"Data0"`
	Data1 byte `json:"Data1"`
	Data2 byte `json:"Data2"`
}

type jsonEntry struct {
	Datetime         string          `json:"Datetime"`
	RawInputBytesCh0 []rawInputBytes `json:"RawInputBytesCh0"`
	MeasurementCh0   []uint32        `json:"MeasurementCh0"`
	VoltagesCh0      []float64       `json:"VoltagesCh0"`
	RawInputBytesCh1 []rawInputBytes `json:"RawInputBytesCh1"`
	MeasurementCh1   []uint32        `json:"MeasurementCh1"`
	VoltagesCh1      []float64       `json:"VoltagesCh1"`
	Node             int32           `json:"Node"`
}

func rawBytes(ts []adc.Triple) []rawInputBytes {
	ret := make([]rawInputBytes, len(ts))
	for i, t := range ts {
		ret[i] = rawInputBytes{t[0], t[1], t[2]}
	}
	return ret
}

func newJSONEntry(rec *record.Record) jsonEntry {
	return jsonEntry{
		Datetime:         rec.Timestamp.Format(time.RFC3339Nano),
		RawInputBytesCh0: rawBytes(rec.RawCh0),
		MeasurementCh0:   record.Measurements(rec.RawCh0),
		VoltagesCh0:      nonNil(rec.Ch0),
		RawInputBytesCh1: rawBytes(rec.RawCh1),
		MeasurementCh1:   record.Measurements(rec.RawCh1),
		VoltagesCh1:      nonNil(rec.Ch1),
		Node:             rec.Node,
	}
}

func nonNil(vs []float64) []float64 {
	if vs == nil {
		return []float64{}
	}
	return vs
}

var errNotJSONArray = errors.New("existing file is not a JSON array")

// jsonArrayWriter keeps the file a valid JSON array after every record by
// overwriting the closing bracket in place.
type jsonArrayWriter struct {
	f *os.File
	// end is where the next entry goes: the closing bracket of an empty
	// array, otherwise just past the last entry's closing brace.
	end   int64
	empty bool
}

func openJSON(path string) (recordWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &jsonArrayWriter{f: f, empty: true}

	last, pos, err := lastNonSpace(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	if pos < 0 {
		if _, err := f.WriteAt([]byte("[\n]\n"), 0); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Truncate(4); err != nil {
			f.Close()
			return nil, err
		}
		w.end = 2
		return w, nil
	}

	if last != ']' {
		f.Close()
		return nil, errNotJSONArray
	}
	prev, prevPos, err := lastNonSpace(f, pos)
	if err != nil {
		f.Close()
		return nil, err
	}
	if prevPos < 0 {
		f.Close()
		return nil, errNotJSONArray
	}
	w.empty = prev == '['
	if w.empty {
		w.end = pos
	} else {
		w.end = prevPos + 1
	}
	return w, nil
}

// lastNonSpace returns the last non-whitespace byte before end and its
// offset, or an offset of -1 if there is none.
func lastNonSpace(r io.ReaderAt, end int64) (byte, int64, error) {
	buf := make([]byte, 512)
	for end > 0 {
		n := int64(len(buf))
		if n > end {
			n = end
		}
		if _, err := r.ReadAt(buf[:n], end-n); err != nil && err != io.EOF {
			return 0, -1, err
		}
		for i := n - 1; i >= 0; i-- {
			switch buf[i] {
			case ' ', '\t', '\r', '\n':
				continue
			}
			return buf[i], end - n + i, nil
		}
		end -= n
	}
	return 0, -1, nil
}

func (w *jsonArrayWriter) WriteRecord(rec *record.Record) error {
	data, err := json.MarshalIndent(newJSONEntry(rec), "  ", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var b bytes.Buffer
	if !w.empty {
		b.WriteString(",\n")
	}
	b.WriteString("  ")
	b.Write(data)
	b.WriteString("\n]\n")

	if _, err := w.f.WriteAt(b.Bytes(), w.end); err != nil {
		return err
	}
	if err := w.f.Truncate(w.end + int64(b.Len())); err != nil {
		return err
	}
	w.end += int64(b.Len()) - int64(len("\n]\n"))
	w.empty = false
	return nil
}

func (w *jsonArrayWriter) Close() error {
	return w.f.Close()
}
