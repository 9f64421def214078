package binverse

import (
	"errors"
	"io"
)

// MaxVarintLen is the maximum number of bytes a 64-bit varint occupies.
const MaxVarintLen = 10

// AppendUvarint appends the varint encoding of v to dst: 7-bit groups, least
// significant first, with the high bit set on every byte but the last.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// EncodeUvarint returns the varint encoding of v.
func EncodeUvarint(v uint64) []byte {
	return AppendUvarint(make([]byte, 0, UvarintLen(v)), v)
}

// UvarintLen returns the number of bytes EncodeUvarint(v) produces.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadUvarint decodes one varint from r. An exhausted source yields
// ErrUnexpectedEOF; overlong, overflowing and non-minimal encodings yield
// ErrInvalidVarint.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < MaxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, newError(KindUnexpectedEOF, "read varint", err)
			}
			return 0, newError(KindIO, "read varint", err)
		}
		if b < 0x80 {
			if err := checkTerminal(i, b); err != nil {
				return 0, err
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, newError(KindInvalidVarint, "read varint", errors.New("encoding longer than 10 bytes"))
}

// DecodeUvarint decodes one varint from the front of b and returns the value
// and the number of bytes consumed.
func DecodeUvarint(b []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i := 0; i < MaxVarintLen; i++ {
		if i >= len(b) {
			return 0, 0, newError(KindUnexpectedEOF, "decode varint", io.ErrUnexpectedEOF)
		}
		c := b[i]
		if c < 0x80 {
			if err := checkTerminal(i, c); err != nil {
				return 0, 0, err
			}
			return x | uint64(c)<<s, i + 1, nil
		}
		x |= uint64(c&0x7f) << s
		s += 7
	}
	return 0, 0, newError(KindInvalidVarint, "decode varint", errors.New("encoding longer than 10 bytes"))
}

// checkTerminal validates the final byte of an encoding found at index i.
func checkTerminal(i int, b byte) error {
	if i == MaxVarintLen-1 && b > 1 {
		return newError(KindInvalidVarint, "read varint", errors.New("value overflows 64 bits"))
	}
	if i > 0 && b == 0 {
		return newError(KindInvalidVarint, "read varint", errors.New("non-minimal encoding"))
	}
	return nil
}

// AppendVarint appends the zig-zag varint encoding of a signed value, so
// small negative numbers stay short.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, zigzag(v))
}

// ReadVarint decodes a zig-zag varint written by AppendVarint.
func ReadVarint(r io.ByteReader) (int64, error) {
	ux, err := ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return unzigzag(ux), nil
}

func zigzag(v int64) uint64 {
	ux := uint64(v) << 1
	if v < 0 {
		ux = ^ux
	}
	return ux
}

func unzigzag(ux uint64) int64 {
	x := int64(ux >> 1)
	if ux&1 != 0 {
		x = ^x
	}
	return x
}
