package binverse

import (
	"encoding"
	"time"
)

// WriteBinary writes the length-prefixed output of m.MarshalBinary.
func WriteBinary(s *Serializer, m encoding.BinaryMarshaler) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return s.fail(newError(KindCustom, "marshal binary", err))
	}
	return s.WriteLengthPrefixed(data)
}

// ReadBinary reads length-prefixed bytes and hands them to
// u.UnmarshalBinary.
func ReadBinary(d *Deserializer, u encoding.BinaryUnmarshaler) error {
	data, err := d.ReadLengthPrefixed()
	if err != nil {
		return err
	}
	if err := u.UnmarshalBinary(data); err != nil {
		return d.fail(newError(KindInvalidData, "unmarshal binary", err))
	}
	return nil
}

// WriteTime writes t with full precision and location offset, using the
// time package's binary form.
func WriteTime(s *Serializer, t time.Time) error {
	return WriteBinary(s, t)
}

// ReadTime reads a time written by WriteTime.
func ReadTime(d *Deserializer) (time.Time, error) {
	var t time.Time
	err := ReadBinary(d, &t)
	return t, err
}

// WriteUnixTime writes t as zig-zag varint seconds since the epoch.
// Sub-second precision and location are dropped.
func WriteUnixTime(s *Serializer, t time.Time) error {
	return s.WriteVarint(t.Unix())
}

// ReadUnixTime reads a time written by WriteUnixTime.
func ReadUnixTime(d *Deserializer) (time.Time, error) {
	sec, err := d.ReadVarint()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

// WriteUnixTimeMilli is WriteUnixTime at millisecond resolution.
func WriteUnixTimeMilli(s *Serializer, t time.Time) error {
	return s.WriteVarint(t.UnixMilli())
}

// ReadUnixTimeMilli reads a time written by WriteUnixTimeMilli.
func ReadUnixTimeMilli(d *Deserializer) (time.Time, error) {
	ms, err := d.ReadVarint()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
