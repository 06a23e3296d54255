package decoder

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/norasector/serialmail/pkg/schema"
)

// Verify checks that every offset the SerialMail accessors will follow stays
// inside buf. The generated accessors index without bounds checks.
func Verify(buf []byte) error {
	size := uint64(len(buf))
	if size < flatbuffers.SizeUOffsetT {
		return schemaErr(buf, 0, "buffer too short for root offset")
	}

	root := uint64(flatbuffers.GetUOffsetT(buf))
	if root < flatbuffers.SizeUOffsetT || root+flatbuffers.SizeSOffsetT > size {
		return schemaErr(buf, 0, "root table offset %d out of range", root)
	}

	vt := int64(root) - int64(flatbuffers.GetSOffsetT(buf[root:]))
	if vt < 0 || uint64(vt)+2*flatbuffers.SizeVOffsetT > size {
		return schemaErr(buf, root, "vtable offset %d out of range", vt)
	}
	vtable := uint64(vt)
	vtSize := uint64(flatbuffers.GetVOffsetT(buf[vtable:]))
	objSize := uint64(flatbuffers.GetVOffsetT(buf[vtable+flatbuffers.SizeVOffsetT:]))
	if vtSize < 2*flatbuffers.SizeVOffsetT || vtSize%flatbuffers.SizeVOffsetT != 0 || vtable+vtSize > size {
		return schemaErr(buf, vtable, "malformed vtable of size %d", vtSize)
	}
	if objSize < flatbuffers.SizeSOffsetT || root+objSize > size {
		return schemaErr(buf, root, "table of size %d exceeds buffer", objSize)
	}

	field := func(slot uint64) uint64 {
		if slot+flatbuffers.SizeVOffsetT > vtSize {
			return 0
		}
		return uint64(flatbuffers.GetVOffsetT(buf[vtable+slot:]))
	}

	for _, ch := range []struct {
		name string
		slot uint64
	}{
		{"ch0", schema.SerialMailVTableCh0},
		{"ch1", schema.SerialMailVTableCh1},
	} {
		fo := field(ch.slot)
		if fo == 0 {
			continue
		}
		if fo < flatbuffers.SizeSOffsetT || fo+flatbuffers.SizeUOffsetT > objSize {
			return schemaErr(buf, root, "%s field offset %d outside table", ch.name, fo)
		}
		pos := root + fo
		vec := pos + uint64(flatbuffers.GetUOffsetT(buf[pos:]))
		if vec+flatbuffers.SizeUOffsetT > size {
			return schemaErr(buf, pos, "%s vector offset %d out of range", ch.name, vec)
		}
		n := uint64(flatbuffers.GetUOffsetT(buf[vec:]))
		if end := vec + flatbuffers.SizeUOffsetT + n*schema.ValueSize; end > size {
			return schemaErr(buf, vec, "truncated %s vector: %d values need %d bytes, have %d",
				ch.name, n, end-vec, size-vec)
		}
	}

	if fo := field(schema.SerialMailVTableNode); fo != 0 {
		if fo < flatbuffers.SizeSOffsetT || fo+flatbuffers.SizeInt32 > objSize {
			return schemaErr(buf, root, "node field offset %d outside table", fo)
		}
	}

	return nil
}
