package output

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/record"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// UDPOutput forwards every record as a protobuf Struct datagram.
type UDPOutput struct {
	dests []config.OutputDestination
	conns []net.Conn
}

func NewUDPOutput(dests []config.OutputDestination) (*UDPOutput, error) {
	u := &UDPOutput{dests: dests}
	for _, dest := range dests {
		conn, err := net.Dial("udp", net.JoinHostPort(dest.Host, strconv.Itoa(dest.Port)))
		if err != nil {
			u.Close()
			return nil, err
		}
		u.conns = append(u.conns, conn)
	}
	return u, nil
}

func (u *UDPOutput) Name() string {
	return "udp"
}

func floatList(vs []float64) []interface{} {
	ret := make([]interface{}, len(vs))
	for i, v := range vs {
		ret[i] = v
	}
	return ret
}

func uintList(vs []uint32) []interface{} {
	ret := make([]interface{}, len(vs))
	for i, v := range vs {
		ret[i] = v
	}
	return ret
}

// RecordStruct is the wire form of a record on the UDP output.
func RecordStruct(rec *record.Record) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"node":      rec.Node,
		"timestamp": rec.Timestamp.UTC().Format(time.RFC3339Nano),
		"ch0":       floatList(rec.Ch0),
		"ch1":       floatList(rec.Ch1),
		"raw_ch0":   uintList(record.Measurements(rec.RawCh0)),
		"raw_ch1":   uintList(record.Measurements(rec.RawCh1)),
	})
}

func (u *UDPOutput) Write(rec *record.Record) error {
	s, err := RecordStruct(rec)
	if err != nil {
		return err
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return err
	}

	var errs []error
	for i, conn := range u.conns {
		if _, err := conn.Write(b); err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", u.dests[i].Host, u.dests[i].Port, err))
		}
	}
	return errors.Join(errs...)
}

func (u *UDPOutput) Flush() error {
	return nil
}

func (u *UDPOutput) Close() error {
	var errs []error
	for _, conn := range u.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	u.conns = nil
	return errors.Join(errs...)
}
