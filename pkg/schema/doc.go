// Package schema holds the FlatBuffers accessors for the SerialMail payload.
//
// Regenerate with flatc and rename the package:
//
//	flatc --go --go-namespace schema -o .. serialmail.fbs
package schema

//go:generate flatc --go --go-namespace schema -o .. serialmail.fbs

const (
	// ValueSize is the inline size of one Value struct in a vector.
	ValueSize = 3

	SerialMailVTableCh0  = 4
	SerialMailVTableCh1  = 6
	SerialMailVTableNode = 8
)
