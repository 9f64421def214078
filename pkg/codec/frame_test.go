package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ssargent/binverse/pkg/binverse"
)

var fixedTime = time.Unix(1719043200, 0)

func fixedClock() time.Time { return fixedTime }

type point struct {
	X, Y int32
}

func (p point) Serialize(s *binverse.Serializer) error {
	if err := s.WriteInt32(p.X); err != nil {
		return err
	}
	return s.WriteInt32(p.Y)
}

func (p *point) Deserialize(d *binverse.Deserializer) (err error) {
	if p.X, err = d.ReadInt32(); err != nil {
		return err
	}
	p.Y, err = d.ReadInt32()
	return err
}

func TestFrameCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name    string
		payload []byte
	}{
		{name: "empty payload", payload: []byte{}},
		{name: "header only", payload: []byte{0, 0, 0, 0}},
		{name: "binary data", payload: []byte{0x00, 0x01, 0xFF, 0xFE}},
		{name: "large payload", payload: bytes.Repeat([]byte("v"), 10240)},
		{name: "unicode data", payload: []byte("🎯 unicode value with émojis")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.payload)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != HeaderSize+len(tc.payload) {
				t.Fatalf("encoded size: got %d, want %d", len(encoded), HeaderSize+len(tc.payload))
			}

			frame, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := frame.Validate(); err != nil {
				t.Fatalf("Frame validation failed: %v", err)
			}
			if !bytes.Equal(frame.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %v, want %v", frame.Payload, tc.payload)
			}
			if frame.PayloadSize != uint32(len(tc.payload)) {
				t.Errorf("PayloadSize mismatch: got %d, want %d", frame.PayloadSize, len(tc.payload))
			}

			now := time.Now().UnixNano()
			if frame.Timestamp > uint64(now) || frame.Timestamp < uint64(now-int64(time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %d", frame.Timestamp)
			}
		})
	}
}

func TestFrameCodec_Layout(t *testing.T) {
	codec := NewFrameCodec(WithClock(fixedClock))

	encoded, err := codec.Encode([]byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if got := binary.LittleEndian.Uint32(encoded[4:8]); got != 2 {
		t.Errorf("PayloadSize: got %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint64(encoded[8:16]); got != uint64(fixedTime.UnixNano()) {
		t.Errorf("Timestamp: got %d, want %d", got, fixedTime.UnixNano())
	}
	if !bytes.Equal(encoded[16:], []byte{0xAA, 0xBB}) {
		t.Errorf("Payload: got %x", encoded[16:])
	}

	again, err := codec.Encode([]byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(encoded, again) {
		t.Error("equal payloads at the same time produced different frames")
	}
}

func TestFrameCodec_CRCValidation(t *testing.T) {
	codec := NewFrameCodec()

	// Every byte of the frame is covered by the checksum, the checksum itself
	// included.
	for _, offset := range []int{0, 4, 8, 15, HeaderSize, HeaderSize + 5} {
		encoded, err := codec.Encode([]byte("test payload"))
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		encoded[offset] ^= 0x01
		if offset == 4 {
			// Keep the size consistent with the data so Decode still succeeds.
			encoded = append(encoded, 0)
		}

		frame, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed at offset %d: %v", offset, err)
		}
		if err := frame.Validate(); !errors.Is(err, ErrChecksum) {
			t.Errorf("offset %d: expected ErrChecksum, got %v", offset, err)
		}
	}
}

func TestFrameCodec_MalformedData(t *testing.T) {
	codec := NewFrameCodec()

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "empty data", data: []byte{}},
		{name: "too short for header", data: []byte{0x01, 0x02, 0x03}},
		{
			name: "insufficient data for declared payload size",
			data: func() []byte {
				buf := make([]byte, HeaderSize+5)
				binary.LittleEndian.PutUint32(buf[4:8], 100)
				return buf
			}(),
		},
		{
			name: "maximum declared size",
			data: func() []byte {
				buf := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], ^uint32(0))
				return buf
			}(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.data)
			if !errors.Is(err, ErrFrameTooShort) {
				t.Errorf("expected ErrFrameTooShort, got %v", err)
			}
		})
	}
}

func TestFrameCodec_MaxPayload(t *testing.T) {
	codec := NewFrameCodec(WithMaxPayload(8))

	if _, err := codec.Encode(make([]byte, 9)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Encode: expected ErrFrameTooLarge, got %v", err)
	}

	big, err := NewFrameCodec().Encode(make([]byte, 9))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := codec.ReadFrame(bytes.NewReader(big)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("ReadFrame: expected ErrFrameTooLarge, got %v", err)
	}
}

func TestFrameCodec_EncodeValue(t *testing.T) {
	codec := NewFrameCodec()

	encoded, err := codec.EncodeValue(3, point{X: -1, Y: 7})
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}

	frame, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := frame.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	rev, err := frame.Revision()
	if err != nil {
		t.Fatalf("Revision failed: %v", err)
	}
	if rev != 3 {
		t.Errorf("Revision: got %d, want 3", rev)
	}

	var p point
	if err := frame.DecodeInto(&p); err != nil {
		t.Fatalf("DecodeInto failed: %v", err)
	}
	if p != (point{X: -1, Y: 7}) {
		t.Errorf("decoded %+v", p)
	}

	d, err := frame.Deserializer()
	if err != nil {
		t.Fatalf("Deserializer failed: %v", err)
	}
	if x, err := d.ReadInt32(); err != nil || x != -1 {
		t.Errorf("ReadInt32: got %d, %v", x, err)
	}
}

type brokenValue struct{}

func (brokenValue) Serialize(s *binverse.Serializer) error {
	if err := s.WriteUint8(1); err != nil {
		return err
	}
	return binverse.Errorf("half written")
}

func TestFrameCodec_EncodeValueFailureProducesNothing(t *testing.T) {
	encoded, err := NewFrameCodec().EncodeValue(0, brokenValue{})
	if !errors.Is(err, binverse.ErrCustom) {
		t.Fatalf("expected ErrCustom, got %v", err)
	}
	if encoded != nil {
		t.Errorf("expected no output, got %x", encoded)
	}
}

func TestFrame_DecodeIntoRejectsNewerRevision(t *testing.T) {
	encoded, err := NewFrameCodec().EncodeValue(5, point{})
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	frame, err := NewFrameCodec().Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var p point
	err = frame.DecodeInto(&p, binverse.WithMaxRevision(4))
	if !errors.Is(err, binverse.ErrRevisionMismatch) {
		t.Errorf("expected ErrRevisionMismatch, got %v", err)
	}
}

func TestReadFrame_Sequence(t *testing.T) {
	codec := NewFrameCodec()

	var stream bytes.Buffer
	payloads := [][]byte{[]byte("one"), {}, []byte("three")}
	for _, p := range payloads {
		encoded, err := codec.Encode(p)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		stream.Write(encoded)
	}

	for i, want := range payloads {
		frame, err := ReadFrame(&stream)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("frame %d: got %q, want %q", i, frame.Payload, want)
		}
	}

	if _, err := ReadFrame(&stream); err != io.EOF {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	encoded, err := NewFrameCodec().Encode([]byte("payload"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for _, n := range []int{1, HeaderSize - 1, HeaderSize, len(encoded) - 1} {
		_, err := ReadFrame(bytes.NewReader(encoded[:n]))
		if !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("%d bytes: expected ErrFrameTooShort, got %v", n, err)
		}
	}
}

func TestReadFrame_Corrupted(t *testing.T) {
	encoded, err := NewFrameCodec().Encode([]byte("payload"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	encoded[len(encoded)-1] ^= 0xFF

	if _, err := ReadFrame(bytes.NewReader(encoded)); !errors.Is(err, ErrChecksum) {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestFrame_Time(t *testing.T) {
	encoded, err := NewFrameCodec(WithClock(fixedClock)).Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	frame, err := NewFrameCodec().Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !frame.Time().Equal(fixedTime) {
		t.Errorf("Time: got %v, want %v", frame.Time(), fixedTime)
	}
}
