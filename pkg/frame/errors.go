package frame

import (
	"errors"
	"fmt"
)

// ErrNeedMore is returned by Next when the buffered bytes do not yet hold a
// complete frame.
var ErrNeedMore = errors.New("frame: need more data")

// FramingError reports a header that cannot start a valid frame. The
// extractor has already dropped the offending marker byte and will resync on
// the next call to Next.
type FramingError struct {
	// Offset is the stream position of the rejected sync marker.
	Offset int64
	// Length is the declared payload size.
	Length uint32
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing: %s (offset %d, declared length %d)", e.Reason, e.Offset, e.Length)
}
