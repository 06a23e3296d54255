package output

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/norasector/serialmail/pkg/record"
)

// cborEntry is one item of the CBOR sequence (RFC 8742) in a .cbor file.
type cborEntry struct {
	Node      int32     `cbor:"node"`
	Timestamp time.Time `cbor:"timestamp"`
	Ch0       []float64 `cbor:"ch0"`
	Ch1       []float64 `cbor:"ch1"`
	RawCh0    []uint32  `cbor:"raw_ch0"`
	RawCh1    []uint32  `cbor:"raw_ch1"`
}

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type cborWriter struct {
	f   *os.File
	enc *cbor.Encoder
}

func openCBOR(path string) (recordWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &cborWriter{f: f, enc: cborEncMode.NewEncoder(f)}, nil
}

func (c *cborWriter) WriteRecord(rec *record.Record) error {
	return c.enc.Encode(cborEntry{
		Node:      rec.Node,
		Timestamp: rec.Timestamp,
		Ch0:       nonNil(rec.Ch0),
		Ch1:       nonNil(rec.Ch1),
		RawCh0:    record.Measurements(rec.RawCh0),
		RawCh1:    record.Measurements(rec.RawCh1),
	})
}

func (c *cborWriter) Close() error {
	return c.f.Close()
}
