package binverse

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// DefaultMaxLength bounds length prefixes and element counts unless
// WithMaxLength says otherwise.
const DefaultMaxLength = 64 << 20

// readChunk is the largest single allocation made for a length-prefixed
// value before its bytes have actually arrived.
const readChunk = 32 << 10

type options struct {
	maxRevision    uint32
	hasMaxRevision bool
	maxLength      uint64
}

// Option configures a Deserializer.
type Option func(*options)

// WithMaxRevision makes the Deserializer reject streams whose header names a
// revision above max with ErrRevisionMismatch.
func WithMaxRevision(max uint32) Option {
	return func(o *options) {
		o.maxRevision = max
		o.hasMaxRevision = true
	}
}

// WithMaxLength bounds every length prefix and element count read from the
// stream.
func WithMaxLength(n uint64) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

func buildOptions(opts []Option) options {
	o := options{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Deserializer reads values from a source. The revision read from the
// stream header is available to every nested Deserialize call through
// Revision.
//
// Reads never consume more of the source than the values require. After
// the first failure every call returns that failure.
type Deserializer struct {
	r        io.Reader
	br       io.ByteReader
	revision uint32
	opts     options
	err      error
	buf      [8]byte
}

// NewDeserializer reads the revision header from r.
func NewDeserializer(r io.Reader, opts ...Option) (*Deserializer, error) {
	d := newDeserializer(r, 0, buildOptions(opts))
	rev, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if d.opts.hasMaxRevision && rev > d.opts.maxRevision {
		return nil, revisionMismatch("read header", rev, d.opts.maxRevision)
	}
	d.revision = rev
	return d, nil
}

// NewRawDeserializer returns a Deserializer for a stream without a header,
// treating it as written at revision. Data written at any other revision
// will be misread.
func NewRawDeserializer(r io.Reader, revision uint32, opts ...Option) *Deserializer {
	return newDeserializer(r, revision, buildOptions(opts))
}

func newDeserializer(r io.Reader, revision uint32, o options) *Deserializer {
	d := &Deserializer{r: r, revision: revision, opts: o}
	if br, ok := r.(io.ByteReader); ok {
		d.br = br
	} else {
		d.br = &byteReader{r: r}
	}
	return d
}

// Revision returns the revision declared by the stream.
func (d *Deserializer) Revision() uint32 {
	return d.revision
}

// Err returns the error that stopped the Deserializer, if any.
func (d *Deserializer) Err() error {
	return d.err
}

// Finish returns the source, positioned right after the last value read.
func (d *Deserializer) Finish() io.Reader {
	return d.r
}

// Fail records err as the Deserializer's error unless one is already set,
// and returns err. Readers built outside this package use it to stop the
// stream the way the built-in reads do.
func (d *Deserializer) Fail(err error) error {
	if err == nil {
		return nil
	}
	return d.fail(err)
}

func (d *Deserializer) fail(err error) error {
	if d.err == nil {
		d.err = err
	}
	return err
}

func readError(op string, err error) *Error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(KindUnexpectedEOF, op, err)
	}
	return newError(KindIO, op, err)
}

// ReadFull fills p from the source.
func (d *Deserializer) ReadFull(p []byte) error {
	if d.err != nil {
		return d.err
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		return d.fail(readError("read", err))
	}
	return nil
}

// ReadRaw reads exactly n bytes into a new slice.
func (d *Deserializer) ReadRaw(n int) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if n < 0 {
		return nil, d.fail(newError(KindInvalidData, "read", fmt.Errorf("negative length %d", n)))
	}
	return d.readChunked(uint64(n))
}

// readChunked grows the result as bytes arrive so a corrupt length cannot
// force a large allocation up front.
func (d *Deserializer) readChunked(n uint64) ([]byte, error) {
	if n <= readChunk {
		p := make([]byte, n)
		if err := d.ReadFull(p); err != nil {
			return nil, err
		}
		return p, nil
	}
	p := make([]byte, 0, readChunk)
	for uint64(len(p)) < n {
		step := int(min(uint64(readChunk), n-uint64(len(p))))
		start := len(p)
		p = append(p, make([]byte, step)...)
		if err := d.ReadFull(p[start:]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ReadUvarint reads one varint.
func (d *Deserializer) ReadUvarint() (uint64, error) {
	if d.err != nil {
		return 0, d.err
	}
	v, err := ReadUvarint(d.br)
	if err != nil {
		return 0, d.fail(err)
	}
	return v, nil
}

// ReadVarint reads one zig-zag varint.
func (d *Deserializer) ReadVarint() (int64, error) {
	ux, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	return unzigzag(ux), nil
}

// ReadCount reads a varint length or element count and checks it against
// the configured maximum.
func (d *Deserializer) ReadCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if err := d.checkLength(n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (d *Deserializer) checkLength(n uint64) error {
	if n > d.opts.maxLength || n > math.MaxInt {
		return d.fail(newError(KindSizeExceeded, "read length",
			fmt.Errorf("length %d exceeds limit %d", n, d.opts.maxLength)))
	}
	return nil
}

// ReadLengthPrefixed reads a varint length followed by that many bytes.
func (d *Deserializer) ReadLengthPrefixed() ([]byte, error) {
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	return d.readChunked(uint64(n))
}

// ReadBytes is ReadLengthPrefixed.
func (d *Deserializer) ReadBytes() ([]byte, error) {
	return d.ReadLengthPrefixed()
}

// ReadString reads length-prefixed bytes and requires them to be UTF-8.
func (d *Deserializer) ReadString() (string, error) {
	p, err := d.ReadLengthPrefixed()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", d.fail(newError(KindInvalidUTF8, "read string", nil))
	}
	return string(p), nil
}

// ReadBool accepts only 0 and 1.
func (d *Deserializer) ReadBool() (bool, error) {
	b, err := d.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, d.fail(newError(KindInvalidData, "read bool", fmt.Errorf("invalid boolean byte %#02x", b)))
}

func (d *Deserializer) ReadUint8() (uint8, error) {
	if err := d.ReadFull(d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *Deserializer) ReadUint16() (uint16, error) {
	if err := d.ReadFull(d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(d.buf[:2]), nil
}

func (d *Deserializer) ReadUint32() (uint32, error) {
	if err := d.ReadFull(d.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.buf[:4]), nil
}

func (d *Deserializer) ReadUint64() (uint64, error) {
	if err := d.ReadFull(d.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.buf[:8]), nil
}

func (d *Deserializer) ReadInt8() (int8, error) {
	v, err := d.ReadUint8()
	return int8(v), err
}

func (d *Deserializer) ReadInt16() (int16, error) {
	v, err := d.ReadUint16()
	return int16(v), err
}

func (d *Deserializer) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Deserializer) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Deserializer) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	return math.Float32frombits(v), err
}

func (d *Deserializer) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	return math.Float64frombits(v), err
}

// Deserialize reads into v. A failure returned by v stops the Deserializer.
func (d *Deserializer) Deserialize(v Deserializable) error {
	if d.err != nil {
		return d.err
	}
	if err := v.Deserialize(d); err != nil {
		return d.fail(err)
	}
	return nil
}

// byteReader reads single bytes straight from the source so the
// Deserializer never buffers past the end of the stream.
type byteReader struct {
	r io.Reader
	b [1]byte
}

func (br *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(br.r, br.b[:]); err != nil {
		return 0, err
	}
	return br.b[0], nil
}
