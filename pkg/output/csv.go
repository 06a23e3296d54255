package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/norasector/serialmail/pkg/record"
)

var csvHeader = []string{"datetime", "CH1", "CH2"}

const csvValueSeparator = ";"

type csvWriter struct {
	f *os.File
	w *csv.Writer
}

func openCSV(path string) (recordWriter, error) {
	st, statErr := os.Stat(path)
	writeHeader := statErr != nil || st.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	c := &csvWriter{f: f, w: csv.NewWriter(f)}

	if writeHeader {
		if err := c.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

func formatVoltages(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, csvValueSeparator)
}

func (c *csvWriter) WriteRecord(rec *record.Record) error {
	if err := c.w.Write([]string{
		record.DisplayTime(rec.Timestamp),
		formatVoltages(rec.Ch0),
		formatVoltages(rec.Ch1),
	}); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
