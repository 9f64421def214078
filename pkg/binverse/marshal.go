package binverse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Marshal serializes v into a new stream at revision. Nothing is returned
// unless the whole value was written, so callers can commit the result
// atomically.
func Marshal(revision uint32, v Serializable) ([]byte, error) {
	var buf bytes.Buffer
	s, err := NewSerializer(&buf, revision)
	if err != nil {
		return nil, err
	}
	if err := s.Serialize(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal reads a whole stream into v. Bytes left over after v are an
// error.
func Unmarshal(data []byte, v Deserializable, opts ...Option) error {
	r := bytes.NewReader(data)
	d, err := NewDeserializer(r, opts...)
	if err != nil {
		return err
	}
	if err := d.Deserialize(v); err != nil {
		return err
	}
	if r.Len() != 0 {
		return newError(KindInvalidData, "unmarshal", fmt.Errorf("%d trailing bytes", r.Len()))
	}
	return nil
}

// MarshalRaw serializes v without a revision header.
func MarshalRaw(revision uint32, v Serializable) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewRawSerializer(&buf, revision).Serialize(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRaw reads v from the front of a headerless stream written at
// revision and returns the bytes that follow it.
func UnmarshalRaw(data []byte, revision uint32, v Deserializable, opts ...Option) ([]byte, error) {
	r := bytes.NewReader(data)
	if err := NewRawDeserializer(r, revision, opts...).Deserialize(v); err != nil {
		return nil, err
	}
	return data[len(data)-r.Len():], nil
}

// PeekRevision returns the revision header at the start of data without
// reading any further.
func PeekRevision(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, newError(KindUnexpectedEOF, "read header", io.ErrUnexpectedEOF)
	}
	return binary.LittleEndian.Uint32(data[:HeaderSize]), nil
}
