package device_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/norasector/serialmail/pkg/device"
	"github.com/norasector/serialmail/pkg/device/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopWriteCloser struct {
	*bytes.Buffer
	closed bool
}

func (n *nopWriteCloser) Close() error {
	n.closed = true
	return nil
}

func collect(t *testing.T, dev device.Device) ([]byte, error) {
	t.Helper()
	chunks := make(chan []byte)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunks)
		errCh <- dev.Start(context.Background(), chunks)
	}()

	var got []byte
	for c := range chunks {
		got = append(got, c...)
	}
	return got, <-errCh
}

func TestRecordingDeviceTees(t *testing.T) {
	src := bytes.Repeat([]byte("0123456789"), 100)
	inner := file.NewReaderDevice("mem", io.NopCloser(bytes.NewReader(src)), 64, 0)

	capture := &nopWriteCloser{Buffer: &bytes.Buffer{}}
	rec := device.NewTeeDevice(inner, "capture", capture)

	got, err := collect(t, rec)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.Equal(t, src, capture.Bytes())

	require.NoError(t, rec.Stop())
	assert.True(t, capture.closed)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
func (failingWriter) Close() error              { return nil }

func TestRecordingDeviceWriteFailure(t *testing.T) {
	inner := file.NewReaderDevice("mem", io.NopCloser(bytes.NewReader(make([]byte, 4096))), 16, time.Millisecond)
	rec := device.NewTeeDevice(inner, "capture", failingWriter{})

	_, err := collect(t, rec)
	var ioErr *device.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "capture", ioErr.Device)
}

// streamingDevice sends the same chunk until it is canceled.
type streamingDevice struct{}

func (streamingDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	for {
		if err := device.Send(ctx, chunks, []byte{0xAA, 0x01}); err != nil {
			return err
		}
	}
}

func (streamingDevice) Stop() error { return nil }

// captureFile fails writes made after Close, like an *os.File.
type captureFile struct {
	mu         sync.Mutex
	writes     int
	lateWrites int
	closed     bool
}

func (c *captureFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.lateWrites++
		return 0, os.ErrClosed
	}
	c.writes++
	return len(p), nil
}

func (c *captureFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureFile) state() (writes int, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes, c.closed
}

func TestRecordingDeviceStopWhileRunning(t *testing.T) {
	capture := &captureFile{}
	rec := device.NewTeeDevice(streamingDevice{}, "capture", capture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chunks := make(chan []byte)
	go func() {
		for range chunks {
		}
	}()

	done := make(chan error, 1)
	go func() {
		defer close(chunks)
		done <- rec.Start(ctx, chunks)
	}()

	require.Eventually(t, func() bool {
		writes, _ := capture.state()
		return writes > 10
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, rec.Stop())
	_, closed := capture.state()
	assert.False(t, closed, "capture closed while the tee was still writing")

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	var ioErr *device.IOError
	assert.False(t, errors.As(err, &ioErr))

	_, closed = capture.state()
	assert.True(t, closed)
	assert.Equal(t, 0, capture.lateWrites)
}

func TestRecordingDeviceStopWithoutStart(t *testing.T) {
	capture := &captureFile{}
	rec := device.NewTeeDevice(streamingDevice{}, "capture", capture)
	require.NoError(t, rec.Stop())
	_, closed := capture.state()
	assert.True(t, closed)
}

func TestSendCopies(t *testing.T) {
	chunks := make(chan []byte, 1)
	buf := []byte{1, 2, 3}
	require.NoError(t, device.Send(context.Background(), chunks, buf))
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, <-chunks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, device.Send(ctx, make(chan []byte), buf), context.Canceled)
}
