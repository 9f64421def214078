package binverse

// Serializable is implemented by every type that can write itself to a
// stream. The same value must always produce the same bytes.
type Serializable interface {
	Serialize(s *Serializer) error
}

// Deserializable is implemented (usually on the pointer) by every type that
// can read itself back. Malformed input must surface as an error, never a
// panic.
type Deserializable interface {
	Deserialize(d *Deserializer) error
}

// WriteFunc writes one value of type T. Serializer method expressions such
// as (*Serializer).WriteInt32 satisfy it.
type WriteFunc[T any] func(s *Serializer, v T) error

// ReadFunc reads one value of type T. Deserializer method expressions such
// as (*Deserializer).ReadInt32 satisfy it.
type ReadFunc[T any] func(d *Deserializer) (T, error)

// WriteValue adapts a Serializable type to a WriteFunc.
func WriteValue[T Serializable](s *Serializer, v T) error {
	return s.Serialize(v)
}

// ReadValue adapts a type whose pointer is Deserializable to a ReadFunc:
//
//	points, err := binverse.ReadSlice(d, binverse.ReadValue[Point])
func ReadValue[T any, PT interface {
	*T
	Deserializable
}](d *Deserializer) (T, error) {
	var v T
	if err := d.Deserialize(PT(&v)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
