package serial

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/norasector/serialmail/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type read struct {
	data  []byte
	err   error
	delay time.Duration
}

// scriptedPort replays a fixed sequence of reads, then fails.
type scriptedPort struct {
	mu     sync.Mutex
	reads  []read
	closed bool
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if len(p.reads) == 0 {
		p.mu.Unlock()
		return 0, errors.New("device unplugged")
	}
	r := p.reads[0]
	p.reads = p.reads[1:]
	p.mu.Unlock()

	time.Sleep(r.delay)
	return copy(buf, r.data), r.err
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// hungUpPort returns end of file at once on every read.
type hungUpPort struct {
	reads int
}

func (p *hungUpPort) Read([]byte) (int, error) {
	p.reads++
	return 0, io.EOF
}

func (p *hungUpPort) Close() error { return nil }

func TestSerialDeviceTimeoutsAreNotFatal(t *testing.T) {
	const timeout = 20 * time.Millisecond
	port := &scriptedPort{reads: []read{
		{data: []byte{0xAA, 0xAA}},
		{err: io.EOF},
		{err: io.EOF},
		{err: io.EOF, delay: timeout},
		{err: io.EOF, delay: timeout},
		{err: io.EOF, delay: timeout},
		{err: io.EOF, delay: timeout},
		{data: []byte{1, 2, 3}},
	}}
	dev := NewPortDevice("/dev/ttyTEST", port, 64, timeout)

	chunks := make(chan []byte, 8)
	err := dev.Start(context.Background(), chunks)
	close(chunks)

	var ioErr *device.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "/dev/ttyTEST", ioErr.Device)
	assert.EqualError(t, ioErr.Unwrap(), "device unplugged")

	var got [][]byte
	for c := range chunks {
		got = append(got, c)
	}
	assert.Equal(t, [][]byte{{0xAA, 0xAA}, {1, 2, 3}}, got)

	require.NoError(t, dev.Stop())
	assert.True(t, port.closed)
}

func TestSerialDeviceHangUp(t *testing.T) {
	for _, timeout := range []time.Duration{time.Second, 0} {
		port := &hungUpPort{}
		dev := NewPortDevice("/dev/ttyUSB0", port, 64, timeout)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := dev.Start(ctx, make(chan []byte, 1))
		cancel()

		var ioErr *device.IOError
		require.True(t, errors.As(err, &ioErr), "timeout %v: got %v", timeout, err)
		assert.ErrorIs(t, err, ErrHangUp)
		assert.Equal(t, maxImmediateEOF, port.reads)
	}
}

func TestSerialDeviceCanceled(t *testing.T) {
	dev := NewPortDevice("/dev/ttyTEST", &scriptedPort{}, 64, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dev.Start(ctx, make(chan []byte)), context.Canceled)
}
