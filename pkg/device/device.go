package device

import (
	"context"
	"fmt"
)

// Device is a source of raw bytes from the link.
type Device interface {
	// Start reads until ctx is done, the stream ends or the link fails, and
	// sends every non-empty chunk on chunks in arrival order. Chunks are never
	// reused after being sent. A clean end of stream returns nil.
	Start(ctx context.Context, chunks chan<- []byte) error
	Stop() error
}

// IOError is a failure of the byte source itself. It ends the receive loop.
type IOError struct {
	Device string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Device, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Send hands a copy of buf to chunks unless ctx is done first.
func Send(ctx context.Context, chunks chan<- []byte, buf []byte) error {
	chunk := make([]byte, len(buf))
	copy(chunk, buf)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case chunks <- chunk:
		return nil
	}
}
