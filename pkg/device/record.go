package device

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RecordingDevice tees every chunk of another device into a capture file that
// the file device can play back later.
type RecordingDevice struct {
	Device
	recordLocation string
	outputFile     io.WriteCloser

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewRecordingDevice(dev Device, recordLocation string) (*RecordingDevice, error) {
	outFile, err := os.Create(recordLocation)
	if err != nil {
		return nil, err
	}

	return NewTeeDevice(dev, recordLocation, outFile), nil
}

func NewTeeDevice(dev Device, name string, w io.WriteCloser) *RecordingDevice {
	return &RecordingDevice{
		Device:         dev,
		recordLocation: name,
		outputFile:     w,
	}
}

// Start tees the wrapped device until it returns, then closes the capture
// file once nothing can write to it any more.
func (r *RecordingDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	inner := make(chan []byte)

	eg.Go(func() error {
		defer close(inner)
		return r.Device.Start(ctx, inner)
	})

	eg.Go(func() error {
		for chunk := range inner {
			if _, err := r.outputFile.Write(chunk); err != nil {
				return &IOError{Device: r.recordLocation, Err: err}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case chunks <- chunk:
			}
		}
		return nil
	})

	err := eg.Wait()
	if cerr := r.closeOutput(); err == nil && cerr != nil {
		err = &IOError{Device: r.recordLocation, Err: cerr}
	}
	return err
}

// Stop stops the wrapped device. The capture file is left to Start, unless
// Start never ran.
func (r *RecordingDevice) Stop() error {
	err := r.Device.Stop()

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		r.closeOutput()
	}
	return err
}

func (r *RecordingDevice) closeOutput() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.outputFile.Close()
}
