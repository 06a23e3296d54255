package serial

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/device"
	tarm "github.com/tarm/serial"
)

// maxImmediateEOF is how many empty reads in a row may come back well before
// the read timeout before the port is considered gone.
const maxImmediateEOF = 3

// ErrHangUp reports a port whose reads return nothing without waiting, as a
// tty does once its USB adapter is unplugged.
var ErrHangUp = errors.New("serial port hung up")

// Open opens the configured port for reading and writing.
func Open(cfg config.Serial) (*tarm.Port, error) {
	return tarm.OpenPort(&tarm.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		Parity:      tarm.ParityNone,
		ReadTimeout: cfg.ReadTimeout,
	})
}

type SerialDevice struct {
	port        io.ReadCloser
	name        string
	readSize    int
	readTimeout time.Duration
}

func NewSerialDevice(cfg config.Serial) (*SerialDevice, error) {
	port, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewPortDevice(cfg.Port, port, cfg.ReadSize, cfg.ReadTimeout), nil
}

// NewPortDevice reads from an already open port. readTimeout is the port's
// read timeout; zero means reads block until data arrives.
func NewPortDevice(name string, port io.ReadCloser, readSize int, readTimeout time.Duration) *SerialDevice {
	return &SerialDevice{
		port:        port,
		name:        name,
		readSize:    readSize,
		readTimeout: readTimeout,
	}
}

func (s *SerialDevice) Start(ctx context.Context, chunks chan<- []byte) error {
	buf := make([]byte, s.readSize)
	immediateEOF := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		n, err := s.port.Read(buf)
		if n > 0 {
			immediateEOF = 0
			if err := device.Send(ctx, chunks, buf[:n]); err != nil {
				return err
			}
		}
		if err == nil {
			continue
		}

		if err == io.EOF && n == 0 {
			// A read that times out with no data comes back as io.EOF. One
			// that returns before the timeout had a chance to expire did not
			// wait at all.
			if s.readTimeout > 0 && time.Since(start) >= s.readTimeout/2 {
				immediateEOF = 0
				continue
			}
			immediateEOF++
			if immediateEOF < maxImmediateEOF {
				continue
			}
			err = ErrHangUp
		} else if err == io.EOF {
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &device.IOError{Device: s.name, Err: err}
	}
}

func (s *SerialDevice) Stop() error {
	return s.port.Close()
}
