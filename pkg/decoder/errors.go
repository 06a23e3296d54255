package decoder

import "fmt"

// SchemaError reports a frame whose payload is not a valid SerialMail.
type SchemaError struct {
	Reason string
	// Offset is the position inside the frame where validation failed.
	Offset int
	Length int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s (offset %d, frame length %d)", e.Reason, e.Offset, e.Length)
}

func schemaErr(buf []byte, offset uint64, format string, args ...interface{}) *SchemaError {
	return &SchemaError{
		Reason: fmt.Sprintf(format, args...),
		Offset: int(offset),
		Length: len(buf),
	}
}
