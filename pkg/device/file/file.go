package file

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/norasector/serialmail/pkg/device"
)

// FileDevice plays back a captured byte stream, one read every timeBetween.
type FileDevice struct {
	readFile    io.ReadCloser
	name        string
	readSize    int
	timeBetween time.Duration
}

func NewFileDevice(file string, readSize int, timeBetween time.Duration) (*FileDevice, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	return NewReaderDevice(file, f, readSize, timeBetween), nil
}

// NewReaderDevice plays back any reader.
func NewReaderDevice(name string, r io.ReadCloser, readSize int, timeBetween time.Duration) *FileDevice {
	return &FileDevice{
		readFile:    r,
		name:        name,
		readSize:    readSize,
		timeBetween: timeBetween,
	}
}

func (f *FileDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	var tick <-chan time.Time
	if f.timeBetween > 0 {
		ticker := time.NewTicker(f.timeBetween)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := make([]byte, f.readSize)
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		n, err := f.readFile.Read(buf)
		if n > 0 {
			if err := device.Send(ctx, chunks, buf[:n]); err != nil {
				return err
			}
		}
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return &device.IOError{Device: f.name, Err: err}
		}
	}
}

func (f *FileDevice) Stop() error {
	return f.readFile.Close()
}
