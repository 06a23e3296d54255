package adc

import (
	"errors"
	"fmt"
	"math"
)

const (
	// SampleBits is the width of one raw sample on the wire.
	SampleBits = 24
	// SampleBytes is the number of bytes in one raw sample.
	SampleBytes = SampleBits / 8

	sampleMask uint32 = 1<<SampleBits - 1

	DefaultDataBits int64   = 1 << (SampleBits - 1)
	DefaultVRef     float64 = 2.5
	DefaultGain     float64 = 4.0
)

// Triple is one raw big-endian 24 bit sample.
type Triple [SampleBytes]byte

func TripleFromRaw(raw uint32) Triple {
	raw &= sampleMask
	return Triple{byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

func (t Triple) Raw() uint32 {
	return uint32(t[0])<<16 | uint32(t[1])<<8 | uint32(t[2])
}

// Calibration converts raw ADC counts into volts. DataBits is the number of
// counts on each side of zero, so the sign boundary sits at raw == DataBits.
type Calibration struct {
	DataBits int64   `yaml:"databits"`
	VRef     float64 `yaml:"vref"`
	Gain     float64 `yaml:"gain"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		DataBits: DefaultDataBits,
		VRef:     DefaultVRef,
		Gain:     DefaultGain,
	}
}

func (c Calibration) Validate() error {
	if c.DataBits <= 0 || c.DataBits > int64(sampleMask)+1 {
		return fmt.Errorf("databits must be in (0, %d], got %d", int64(sampleMask)+1, c.DataBits)
	}
	if !(c.VRef > 0) || math.IsInf(c.VRef, 0) {
		return fmt.Errorf("vref must be positive, got %v", c.VRef)
	}
	if !(c.Gain > 0) || math.IsInf(c.Gain, 0) {
		return fmt.Errorf("gain must be positive, got %v", c.Gain)
	}
	return nil
}

// FullScale is the magnitude of the most negative voltage.
func (c Calibration) FullScale() float64 {
	return c.VRef / c.Gain
}

// Signed recovers the bipolar count from an offset-binary raw sample.
// Counts below DataBits are negative; DataBits itself is zero.
func Signed(raw uint32, c Calibration) int64 {
	return int64(raw&sampleMask) - c.DataBits
}

// Convert maps a raw sample to volts.
func Convert(t Triple, c Calibration) float64 {
	return float64(Signed(t.Raw(), c)) / float64(c.DataBits) * c.VRef / c.Gain
}

func ConvertAll(ts []Triple, c Calibration) []float64 {
	ret := make([]float64, len(ts))
	for i, t := range ts {
		ret[i] = Convert(t, c)
	}
	return ret
}

var ErrTripleLength = errors.New("sample must be exactly 3 bytes")

type ConversionError struct {
	Length int
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion: got %d byte sample: %v", e.Length, ErrTripleLength)
}

func (e *ConversionError) Unwrap() error {
	return ErrTripleLength
}

// ConvertBytes is Convert for an unchecked byte slice.
func ConvertBytes(b []byte, c Calibration) (float64, error) {
	if len(b) != SampleBytes {
		return 0, &ConversionError{Length: len(b)}
	}
	return Convert(Triple{b[0], b[1], b[2]}, c), nil
}

// Millivolts rounds to the display precision used on the console.
func Millivolts(v float64) float64 {
	return math.Round(v*1000*1e4) / 1e4
}
