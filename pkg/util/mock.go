package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for the InfluxDB write API when no server is
// configured. Everything written to it is dropped.
type MockWriteAPI struct{}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

// Errors returns nil; the mock never fails.
func (m *MockWriteAPI) Errors() <-chan error { return nil }

// RecordingWriteAPI keeps every point it is given, for tests that check what
// would have reached InfluxDB.
type RecordingWriteAPI struct {
	MockWriteAPI

	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (m *RecordingWriteAPI) WritePoint(point *write.Point) {
	m.mu.Lock()
	m.points = append(m.points, point)
	m.mu.Unlock()
}

func (m *RecordingWriteAPI) Flush() {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
}

func (m *RecordingWriteAPI) Points() []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*write.Point, len(m.points))
	copy(ret, m.points)
	return ret
}

func (m *RecordingWriteAPI) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
