package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sigurn/crc16"
)

const (
	SyncByte    byte = 0xAA
	SyncLength       = 2
	SizeLength       = 4
	HeaderLength     = SyncLength + SizeLength
	CRCLength        = 2

	DefaultMinSize = 24
	DefaultMaxSize = 1024
)

var syncMarker = []byte{SyncByte, SyncByte}

type Checksum string

const (
	ChecksumNone  Checksum = "none"
	ChecksumCRC16 Checksum = "crc16"
)

// Options describe the framing around each SerialMail payload. Both ends of
// the link must agree on them.
type Options struct {
	MinSize  int      `yaml:"min_size"`
	MaxSize  int      `yaml:"max_size"`
	Checksum Checksum `yaml:"checksum"`
}

func DefaultOptions() Options {
	return Options{
		MinSize:  DefaultMinSize,
		MaxSize:  DefaultMaxSize,
		Checksum: ChecksumNone,
	}
}

func (o Options) Validate() error {
	if o.MinSize < 1 {
		return fmt.Errorf("framing min_size must be positive, got %d", o.MinSize)
	}
	if o.MaxSize < o.MinSize {
		return fmt.Errorf("framing max_size %d below min_size %d", o.MaxSize, o.MinSize)
	}
	switch o.Checksum {
	case ChecksumNone, ChecksumCRC16, "":
	default:
		return fmt.Errorf("unknown framing checksum %q", o.Checksum)
	}
	return nil
}

func (o Options) trailerLength() int {
	if o.Checksum == ChecksumCRC16 {
		return CRCLength
	}
	return 0
}

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

func checksum(payload []byte) uint16 {
	return crc16.Checksum(payload, crcTable)
}

// Encode wraps payload in a frame.
func Encode(payload []byte, opts Options) ([]byte, error) {
	if len(payload) < opts.MinSize || len(payload) > opts.MaxSize {
		return nil, fmt.Errorf("payload of %d bytes outside [%d, %d]", len(payload), opts.MinSize, opts.MaxSize)
	}

	buf := make([]byte, HeaderLength, HeaderLength+len(payload)+opts.trailerLength())
	copy(buf, syncMarker)
	binary.LittleEndian.PutUint32(buf[SyncLength:], uint32(len(payload)))
	buf = append(buf, payload...)
	if opts.Checksum == ChecksumCRC16 {
		buf = binary.BigEndian.AppendUint16(buf, checksum(payload))
	}
	return buf, nil
}

// Encoder writes framed payloads to an underlying writer.
type Encoder struct {
	w    io.Writer
	opts Options
}

func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{w: w, opts: opts}
}

func (e *Encoder) Encode(payload []byte) error {
	buf, err := Encode(payload, e.opts)
	if err != nil {
		return err
	}
	_, err = e.w.Write(buf)
	return err
}
