package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type state int

const (
	// stateHunting scans for the sync marker.
	stateHunting state = iota
	// stateHeader has the marker at buf[0] and waits for the size field.
	stateHeader
	// statePayload has a validated size and waits for payload and trailer.
	statePayload
)

func (s state) String() string {
	switch s {
	case stateHunting:
		return "hunting"
	case stateHeader:
		return "header"
	case statePayload:
		return "payload"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Extractor recovers frames from a byte stream delivered in arbitrary chunks.
// Its output depends only on the concatenated input, never on how the input
// was split across Feed calls. It is not safe for concurrent use.
type Extractor struct {
	opts  Options
	state state
	buf   []byte
	// base is the stream offset of buf[0].
	base    int64
	size    uint32
	skipped int64
}

func NewExtractor(opts Options) *Extractor {
	if opts.Checksum == "" {
		opts.Checksum = ChecksumNone
	}
	return &Extractor{opts: opts}
}

// Feed appends p to the pending bytes. p is copied.
func (e *Extractor) Feed(p []byte) {
	e.buf = append(e.buf, p...)
}

// Next returns the next complete frame payload, a *FramingError when a header
// had to be rejected, or ErrNeedMore once the pending bytes are exhausted.
func (e *Extractor) Next() ([]byte, error) {
	for {
		switch e.state {
		case stateHunting:
			idx := bytes.Index(e.buf, syncMarker)
			if idx < 0 {
				keep := 0
				if n := len(e.buf); n > 0 && e.buf[n-1] == SyncByte {
					keep = 1
				}
				e.discard(len(e.buf)-keep, true)
				return nil, ErrNeedMore
			}
			e.discard(idx, true)
			e.state = stateHeader

		case stateHeader:
			if len(e.buf) < HeaderLength {
				return nil, ErrNeedMore
			}
			size := binary.LittleEndian.Uint32(e.buf[SyncLength:HeaderLength])
			if size < uint32(e.opts.MinSize) || size > uint32(e.opts.MaxSize) {
				return nil, e.reject(size, fmt.Sprintf("declared size outside [%d, %d]", e.opts.MinSize, e.opts.MaxSize))
			}
			e.size = size
			e.state = statePayload

		case statePayload:
			end := HeaderLength + int(e.size)
			total := end + e.opts.trailerLength()
			if len(e.buf) < total {
				return nil, ErrNeedMore
			}
			payload := e.buf[HeaderLength:end]
			if e.opts.Checksum == ChecksumCRC16 {
				got := binary.BigEndian.Uint16(e.buf[end:total])
				if want := checksum(payload); got != want {
					return nil, e.reject(e.size, fmt.Sprintf("crc mismatch: got %04x, want %04x", got, want))
				}
			}
			frame := make([]byte, len(payload))
			copy(frame, payload)
			e.discard(total, false)
			e.state = stateHunting
			return frame, nil
		}
	}
}

// reject drops the first marker byte so the next scan starts one byte later.
func (e *Extractor) reject(size uint32, reason string) error {
	err := &FramingError{Offset: e.base, Length: size, Reason: reason}
	e.discard(1, true)
	e.state = stateHunting
	return err
}

func (e *Extractor) discard(n int, skipped bool) {
	if n <= 0 {
		return
	}
	e.buf = e.buf[n:]
	e.base += int64(n)
	if skipped {
		e.skipped += int64(n)
	}
	if len(e.buf) == 0 {
		e.buf = nil
	}
}

// Offset is the stream position of the first byte not yet consumed.
func (e *Extractor) Offset() int64 {
	return e.base
}

// Buffered is the number of bytes held for an incomplete frame.
func (e *Extractor) Buffered() int {
	return len(e.buf)
}

// Skipped is the number of stream bytes dropped while searching for frames.
func (e *Extractor) Skipped() int64 {
	return e.skipped
}
