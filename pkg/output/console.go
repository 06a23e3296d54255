package output

import (
	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/record"
	"github.com/rs/zerolog"
)

// ConsoleOutput logs every record, in millivolts.
type ConsoleOutput struct {
	logger zerolog.Logger
}

func NewConsoleOutput(logger zerolog.Logger) *ConsoleOutput {
	return &ConsoleOutput{logger: logger}
}

func (c *ConsoleOutput) Name() string {
	return "console"
}

func millivolts(vs []float64) []float64 {
	ret := make([]float64, len(vs))
	for i, v := range vs {
		ret[i] = adc.Millivolts(v)
	}
	return ret
}

func (c *ConsoleOutput) Write(rec *record.Record) error {
	c.logger.Info().
		Int32("node", rec.Node).
		Int("ch0_samples", len(rec.Ch0)).
		Floats64("ch0_mv", millivolts(rec.Ch0)).
		Int("ch1_samples", len(rec.Ch1)).
		Floats64("ch1_mv", millivolts(rec.Ch1)).
		Msg("received SerialMail")

	c.logger.Debug().
		Int32("node", rec.Node).
		Uints32("raw_ch0", record.Measurements(rec.RawCh0)).
		Uints32("raw_ch1", record.Measurements(rec.RawCh1)).
		Msg("raw input")
	return nil
}

func (c *ConsoleOutput) Flush() error {
	return nil
}

func (c *ConsoleOutput) Close() error {
	return nil
}
