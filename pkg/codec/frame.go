package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/ssargent/binverse/pkg/binverse"
)

// HeaderSize is the fixed frame header: CRC32(4) + PayloadSize(4) + Timestamp(8).
const HeaderSize = 16

var (
	// ErrFrameTooShort means the data ends before the frame does.
	ErrFrameTooShort = errors.New("frame too short")
	// ErrChecksum means the stored CRC32 does not match the frame contents.
	ErrChecksum = errors.New("frame checksum mismatch")
	// ErrFrameTooLarge means a payload exceeds the codec's limit.
	ErrFrameTooLarge = errors.New("frame too large")
)

// Frame is one binverse stream wrapped with an integrity checksum and a
// write timestamp.
type Frame struct {
	CRC32       uint32 // CRC32 over everything after this field
	PayloadSize uint32 // Size of the payload in bytes
	Timestamp   uint64 // Unix timestamp in nanoseconds
	Payload     []byte // A complete stream, revision header first
}

// FrameCodec encodes and decodes frames.
type FrameCodec struct {
	now        func() time.Time
	maxPayload uint32
}

// FrameOption configures a FrameCodec.
type FrameOption func(*FrameCodec)

// WithClock sets the time source used for frame timestamps.
func WithClock(now func() time.Time) FrameOption {
	return func(c *FrameCodec) { c.now = now }
}

// WithMaxPayload caps the payload size accepted by Encode and ReadFrame.
func WithMaxPayload(n uint32) FrameOption {
	return func(c *FrameCodec) { c.maxPayload = n }
}

// NewFrameCodec creates a new frame codec instance
func NewFrameCodec(opts ...FrameOption) *FrameCodec {
	c := &FrameCodec{
		now:        time.Now,
		maxPayload: binverse.DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode wraps payload in a frame.
// Format: [CRC32(4)][PayloadSize(4)][Timestamp(8)][Payload]
func (c *FrameCodec) Encode(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > uint64(c.maxPayload) {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(payload), c.maxPayload)
	}
	f := &Frame{
		PayloadSize: uint32(len(payload)),
		Timestamp:   uint64(c.now().UnixNano()),
		Payload:     payload,
	}
	f.CRC32 = f.checksum()

	buf := make([]byte, f.Size())
	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.PayloadSize)
	binary.LittleEndian.PutUint64(buf[8:], f.Timestamp)
	copy(buf[HeaderSize:], f.Payload)

	return buf, nil
}

// EncodeValue serializes v as a stream at revision and frames it. Nothing
// is returned unless v serialized completely.
func (c *FrameCodec) EncodeValue(revision uint32, v binverse.Serializable) ([]byte, error) {
	var buf bytes.Buffer
	s, err := binverse.NewSerializer(&buf, revision)
	if err != nil {
		return nil, err
	}
	if err := s.Serialize(v); err != nil {
		return nil, err
	}
	return c.Encode(buf.Bytes())
}

// Decode parses a frame from the front of data. The payload aliases data.
// Decode does not check the CRC; call Validate for that.
func (c *FrameCodec) Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrFrameTooShort, len(data), HeaderSize)
	}

	f := decodeHeader(data)
	end := uint64(HeaderSize) + uint64(f.PayloadSize)
	if uint64(len(data)) < end {
		return nil, fmt.Errorf("%w: %d < %d", ErrFrameTooShort, len(data), end)
	}
	f.Payload = data[HeaderSize:end]

	return f, nil
}

// ReadFrame reads and validates exactly one frame from r. It returns io.EOF
// only when r is exhausted before the first header byte.
func (c *FrameCodec) ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated header", ErrFrameTooShort)
		}
		return nil, err
	}

	f := decodeHeader(header)
	if f.PayloadSize > c.maxPayload {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, f.PayloadSize, c.maxPayload)
	}

	f.Payload = make([]byte, f.PayloadSize)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated payload", ErrFrameTooShort)
		}
		return nil, err
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// ReadFrame reads one frame from r with a default codec.
func ReadFrame(r io.Reader) (*Frame, error) {
	return NewFrameCodec().ReadFrame(r)
}

func decodeHeader(data []byte) *Frame {
	return &Frame{
		CRC32:       binary.LittleEndian.Uint32(data[0:4]),
		PayloadSize: binary.LittleEndian.Uint32(data[4:8]),
		Timestamp:   binary.LittleEndian.Uint64(data[8:16]),
	}
}

// Validate checks the integrity of a frame using CRC32
func (f *Frame) Validate() error {
	if sum := f.checksum(); f.CRC32 != sum {
		return fmt.Errorf("%w: %08x != %08x", ErrChecksum, f.CRC32, sum)
	}
	return nil
}

// Size returns the total size of the frame when encoded
func (f *Frame) Size() int {
	return HeaderSize + len(f.Payload)
}

// Time returns the frame's write time.
func (f *Frame) Time() time.Time {
	if f.Timestamp > math.MaxInt64 {
		return time.Time{}
	}
	return time.Unix(0, int64(f.Timestamp))
}

// Revision returns the revision header of the framed stream.
func (f *Frame) Revision() (uint32, error) {
	return binverse.PeekRevision(f.Payload)
}

// Deserializer opens the framed stream for reading.
func (f *Frame) Deserializer(opts ...binverse.Option) (*binverse.Deserializer, error) {
	return binverse.NewDeserializer(bytes.NewReader(f.Payload), opts...)
}

// DecodeInto reads the framed stream into v. The payload must hold exactly
// one value.
func (f *Frame) DecodeInto(v binverse.Deserializable, opts ...binverse.Option) error {
	return binverse.Unmarshal(f.Payload, v, opts...)
}

// checksum computes CRC32 over PayloadSize, Timestamp and Payload.
func (f *Frame) checksum() uint32 {
	var header [HeaderSize - 4]byte
	binary.LittleEndian.PutUint32(header[0:], f.PayloadSize)
	binary.LittleEndian.PutUint64(header[4:], f.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(header[:])
	crc.Write(f.Payload)
	return crc.Sum32()
}
