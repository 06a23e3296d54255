package decoder

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/schema"
)

// Message is one decoded SerialMail payload. It does not reference the frame
// it was decoded from.
type Message struct {
	Node int32
	Ch0  []adc.Triple
	Ch1  []adc.Triple
}

// Decode validates buf against the SerialMail schema and copies its fields out.
func Decode(buf []byte) (*Message, error) {
	if err := Verify(buf); err != nil {
		return nil, err
	}

	mail := schema.GetRootAsSerialMail(buf, 0)
	msg := &Message{
		Node: mail.Node(),
		Ch0:  readChannel(mail.Ch0Length(), mail.Ch0),
		Ch1:  readChannel(mail.Ch1Length(), mail.Ch1),
	}
	if msg.Node <= 0 {
		return nil, schemaErr(buf, 0, "node %d must be positive", msg.Node)
	}

	return msg, nil
}

func readChannel(n int, at func(*schema.Value, int) bool) []adc.Triple {
	ret := make([]adc.Triple, n)
	var v schema.Value
	for i := 0; i < n; i++ {
		at(&v, i)
		ret[i] = adc.Triple{v.Data0(), v.Data1(), v.Data2()}
	}
	return ret
}

// Encode builds the SerialMail payload for msg. Node is written as given so
// callers can produce invalid messages on purpose.
func Encode(msg *Message) []byte {
	b := flatbuffers.NewBuilder(64 + schema.ValueSize*(len(msg.Ch0)+len(msg.Ch1)))

	ch0 := buildChannel(b, msg.Ch0, schema.SerialMailStartCh0Vector)
	ch1 := buildChannel(b, msg.Ch1, schema.SerialMailStartCh1Vector)

	schema.SerialMailStart(b)
	schema.SerialMailAddCh0(b, ch0)
	schema.SerialMailAddCh1(b, ch1)
	schema.SerialMailAddNode(b, msg.Node)
	b.Finish(schema.SerialMailEnd(b))

	return b.FinishedBytes()
}

func buildChannel(b *flatbuffers.Builder, ts []adc.Triple, start func(*flatbuffers.Builder, int) flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	start(b, len(ts))
	for i := len(ts) - 1; i >= 0; i-- {
		schema.CreateValue(b, ts[i][0], ts[i][1], ts[i][2])
	}
	return b.EndVector(len(ts))
}
