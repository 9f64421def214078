// Package binproto embeds protocol buffer messages in binverse streams.
//
// Messages are marshaled deterministically and written length-prefixed, so a
// stream containing them keeps the binverse guarantee that equal values
// produce equal bytes.
package binproto

import (
	"google.golang.org/protobuf/proto"

	"github.com/ssargent/binverse/pkg/binverse"
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// WriteMessage writes m as a length-prefixed protobuf encoding.
func WriteMessage(s *binverse.Serializer, m proto.Message) error {
	data, err := marshalOptions.Marshal(m)
	if err != nil {
		return s.Fail(binverse.Errorf("marshal %s: %w", m.ProtoReflect().Descriptor().FullName(), err))
	}
	return s.WriteLengthPrefixed(data)
}

// ReadMessage reads a message written by WriteMessage into m.
func ReadMessage(d *binverse.Deserializer, m proto.Message) error {
	data, err := d.ReadLengthPrefixed()
	if err != nil {
		return err
	}
	if err := proto.Unmarshal(data, m); err != nil {
		return d.Fail(&binverse.Error{
			Kind: binverse.KindInvalidData,
			Op:   "unmarshal " + string(m.ProtoReflect().Descriptor().FullName()),
			Err:  err,
		})
	}
	return nil
}

// Message wraps a proto.Message so it can be passed anywhere a
// binverse.Serializable or binverse.Deserializable is expected.
type Message struct {
	proto.Message
}

func (m Message) Serialize(s *binverse.Serializer) error {
	return WriteMessage(s, m.Message)
}

func (m Message) Deserialize(d *binverse.Deserializer) error {
	return ReadMessage(d, m.Message)
}
