// Package codec frames binverse streams for storage and transmission.
//
// A binverse stream carries no length or checksum of its own. The codec
// package wraps one complete stream in a fixed header so a reader can find
// where it ends, detect corruption and tell when it was written. It is the
// unit appended to the stream log in package store and persisted by package
// storage.
//
// # Frame Format
//
// Frames are serialized in a binary format with the following structure:
//
//	[CRC32(4)][PayloadSize(4)][Timestamp(8)][Payload]
//
// Fields:
//   - CRC32: 32-bit CRC checksum for integrity validation (little-endian)
//   - PayloadSize: 32-bit unsigned integer indicating payload length in bytes (little-endian)
//   - Timestamp: 64-bit Unix timestamp in nanoseconds (little-endian)
//   - Payload: a complete binverse stream, starting with its revision header
//
// The total frame size is: 16 bytes (header) + len(payload)
//
// # CRC32 Calculation
//
// The CRC32 checksum is calculated over all fields except the CRC32 field itself:
//   - PayloadSize (4 bytes)
//   - Timestamp (8 bytes)
//   - Payload data (PayloadSize bytes)
//
// # Usage
//
//	codec := codec.NewFrameCodec()
//
//	// Serialize a value and frame it
//	encoded, err := codec.EncodeValue(2, point)
//	if err != nil {
//	    return err
//	}
//
//	// Read it back from a file or socket
//	frame, err := codec.ReadFrame(r)
//	if err != nil {
//	    return err // ErrFrameTooShort, ErrChecksum or an I/O error
//	}
//	var p Point
//	if err := frame.DecodeInto(&p); err != nil {
//	    return err
//	}
//
// Decode parses a frame out of a byte slice without validating it; call
// Validate before trusting the payload. ReadFrame validates on its own.
//
// # Thread Safety
//
// FrameCodec instances are safe for concurrent use. Frames returned by
// Decode alias the input slice.
package codec
