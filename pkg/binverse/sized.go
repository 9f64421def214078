package binverse

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Width selects how a length prefix is written. WidthVar, the default used
// by strings, byte slices and sequences, is a varint; the others are fixed
// little-endian integers and cap the length they can carry.
type Width uint8

const (
	WidthVar Width = iota
	Width8
	Width16
	Width32
	Width64
)

// Max returns the largest length w can carry.
func (w Width) Max() uint64 {
	switch w {
	case Width8:
		return math.MaxUint8
	case Width16:
		return math.MaxUint16
	case Width32:
		return math.MaxUint32
	}
	return math.MaxUint64
}

func (w Width) String() string {
	switch w {
	case WidthVar:
		return "var"
	case Width8:
		return "u8"
	case Width16:
		return "u16"
	case Width32:
		return "u32"
	case Width64:
		return "u64"
	}
	return fmt.Sprintf("Width(%d)", uint8(w))
}

// WriteSize writes a length prefix of width w. A length that does not fit
// fails with ErrSizeExceeded and nothing is written.
func (s *Serializer) WriteSize(w Width, n int) error {
	if err := s.check(); err != nil {
		return err
	}
	if n < 0 || uint64(n) > w.Max() {
		return s.fail(newError(KindSizeExceeded, "write size",
			fmt.Errorf("length %d does not fit in %s", n, w)))
	}
	switch w {
	case Width8:
		return s.WriteUint8(uint8(n))
	case Width16:
		return s.WriteUint16(uint16(n))
	case Width32:
		return s.WriteUint32(uint32(n))
	case Width64:
		return s.WriteUint64(uint64(n))
	}
	return s.WriteUvarint(uint64(n))
}

// ReadSize reads a length prefix of width w.
func (d *Deserializer) ReadSize(w Width) (int, error) {
	var n uint64
	var err error
	switch w {
	case Width8:
		var v uint8
		v, err = d.ReadUint8()
		n = uint64(v)
	case Width16:
		var v uint16
		v, err = d.ReadUint16()
		n = uint64(v)
	case Width32:
		var v uint32
		v, err = d.ReadUint32()
		n = uint64(v)
	case Width64:
		n, err = d.ReadUint64()
	default:
		n, err = d.ReadUvarint()
	}
	if err != nil {
		return 0, err
	}
	if err := d.checkLength(n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// WriteSizedBytes writes p with a length prefix of width w.
func (s *Serializer) WriteSizedBytes(w Width, p []byte) error {
	if err := s.WriteSize(w, len(p)); err != nil {
		return err
	}
	return s.WriteRaw(p)
}

// ReadSizedBytes reads bytes written by WriteSizedBytes.
func (d *Deserializer) ReadSizedBytes(w Width) ([]byte, error) {
	n, err := d.ReadSize(w)
	if err != nil {
		return nil, err
	}
	return d.readChunked(uint64(n))
}

// WriteSizedString writes str with a length prefix of width w.
func (s *Serializer) WriteSizedString(w Width, str string) error {
	if err := s.WriteSize(w, len(str)); err != nil {
		return err
	}
	return s.WriteRaw([]byte(str))
}

// ReadSizedString reads a string written by WriteSizedString.
func (d *Deserializer) ReadSizedString(w Width) (string, error) {
	p, err := d.ReadSizedBytes(w)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", d.fail(newError(KindInvalidUTF8, "read string", nil))
	}
	return string(p), nil
}
