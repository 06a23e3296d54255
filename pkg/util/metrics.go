package util

import "time"

// TimeFallibleMicroseconds times op and passes its error through.
func TimeFallibleMicroseconds(op func() error) (int64, error) {
	start := time.Now()
	err := op()
	return time.Since(start).Microseconds(), err
}
