package binverse

import (
	"encoding/binary"
	"io"
	"math"
)

// HeaderSize is the size of the revision header that starts every stream.
const HeaderSize = 4

// Serializer writes values to a sink. It owns the sink until Finish is
// called and is not safe for concurrent use.
//
// The first failed write is sticky: every later call returns the same error.
type Serializer struct {
	w        io.Writer
	revision uint32
	err      error
	done     bool
	buf      [MaxVarintLen]byte
}

// NewSerializer writes the little-endian revision header to w and returns a
// Serializer ready for values.
func NewSerializer(w io.Writer, revision uint32) (*Serializer, error) {
	s := &Serializer{w: w, revision: revision}
	if err := s.WriteUint32(revision); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRawSerializer returns a Serializer that does not write a header. The
// reader has to be told the revision out of band (see NewRawDeserializer).
func NewRawSerializer(w io.Writer, revision uint32) *Serializer {
	return &Serializer{w: w, revision: revision}
}

// Revision returns the revision this stream is written at.
func (s *Serializer) Revision() uint32 {
	return s.revision
}

// Err returns the error that stopped the Serializer, if any.
func (s *Serializer) Err() error {
	return s.err
}

// Finish ends the stream and hands the sink back to the caller. The
// Serializer must not be used afterwards.
func (s *Serializer) Finish() io.Writer {
	s.done = true
	return s.w
}

func (s *Serializer) check() error {
	if s.done {
		return ErrFinished
	}
	return s.err
}

// Fail is the Serializer counterpart of Deserializer.Fail.
func (s *Serializer) Fail(err error) error {
	if err == nil {
		return nil
	}
	return s.fail(err)
}

func (s *Serializer) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return err
}

// WriteRaw writes p unchanged.
func (s *Serializer) WriteRaw(p []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	n, err := s.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return s.fail(newError(KindIO, "write", err))
	}
	return nil
}

// WriteUvarint writes v as a varint.
func (s *Serializer) WriteUvarint(v uint64) error {
	return s.WriteRaw(AppendUvarint(s.buf[:0], v))
}

// WriteVarint writes v as a zig-zag varint.
func (s *Serializer) WriteVarint(v int64) error {
	return s.WriteRaw(AppendVarint(s.buf[:0], v))
}

// WriteLengthPrefixed writes the varint length of p followed by p.
func (s *Serializer) WriteLengthPrefixed(p []byte) error {
	if err := s.WriteUvarint(uint64(len(p))); err != nil {
		return err
	}
	return s.WriteRaw(p)
}

// WriteBytes is WriteLengthPrefixed.
func (s *Serializer) WriteBytes(p []byte) error {
	return s.WriteLengthPrefixed(p)
}

// WriteString writes str as length-prefixed UTF-8.
func (s *Serializer) WriteString(str string) error {
	if err := s.WriteUvarint(uint64(len(str))); err != nil {
		return err
	}
	return s.WriteRaw([]byte(str))
}

func (s *Serializer) WriteBool(v bool) error {
	var b byte
	if v {
		b = 1
	}
	return s.WriteUint8(b)
}

func (s *Serializer) WriteUint8(v uint8) error {
	s.buf[0] = v
	return s.WriteRaw(s.buf[:1])
}

func (s *Serializer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(s.buf[:2], v)
	return s.WriteRaw(s.buf[:2])
}

func (s *Serializer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(s.buf[:4], v)
	return s.WriteRaw(s.buf[:4])
}

func (s *Serializer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(s.buf[:8], v)
	return s.WriteRaw(s.buf[:8])
}

func (s *Serializer) WriteInt8(v int8) error   { return s.WriteUint8(uint8(v)) }
func (s *Serializer) WriteInt16(v int16) error { return s.WriteUint16(uint16(v)) }
func (s *Serializer) WriteInt32(v int32) error { return s.WriteUint32(uint32(v)) }
func (s *Serializer) WriteInt64(v int64) error { return s.WriteUint64(uint64(v)) }

func (s *Serializer) WriteFloat32(v float32) error {
	return s.WriteUint32(math.Float32bits(v))
}

func (s *Serializer) WriteFloat64(v float64) error {
	return s.WriteUint64(math.Float64bits(v))
}

// Serialize writes v. A failure returned by v stops the Serializer.
func (s *Serializer) Serialize(v Serializable) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := v.Serialize(s); err != nil {
		return s.fail(err)
	}
	return nil
}
