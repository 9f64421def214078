// Package binverse implements a compact, versioned binary serialization
// format.
//
// Values are written to a stream without field names or type tags. The only
// metadata is a revision number written once at the start of the stream;
// readers use it to decide which fields the writer knew about. This keeps
// the encoding small while still letting a newer program read data written
// by an older one.
//
// # Stream Format
//
// Every stream starts with a 4 byte little-endian revision header:
//
//	[Revision(4)][Value...]
//
// Values are encoded as follows:
//   - Fixed-width integers and floats: native width, little-endian
//   - Booleans: one byte, 0 or 1; anything else is rejected
//   - Varints: 1-10 bytes, 7 payload bits per byte, least significant group
//     first, high bit set on every byte but the last; only the minimal
//     encoding of a value is accepted
//   - Strings and byte slices: varint length followed by the bytes (strings
//     must be UTF-8)
//   - Sequences: varint element count followed by each element
//   - Options: a presence byte followed by the value when present
//   - Maps: varint entry count followed by key/value pairs in ascending order
//     of the encoded key bytes
//
// # Usage
//
// Types implement Serializable and Deserializable by writing and reading
// their fields in a fixed order:
//
//	type Point struct {
//	    X, Y int32
//	}
//
//	func (p Point) Serialize(s *binverse.Serializer) error {
//	    if err := s.WriteInt32(p.X); err != nil {
//	        return err
//	    }
//	    return s.WriteInt32(p.Y)
//	}
//
//	func (p *Point) Deserialize(d *binverse.Deserializer) (err error) {
//	    if p.X, err = d.ReadInt32(); err != nil {
//	        return err
//	    }
//	    p.Y, err = d.ReadInt32()
//	    return err
//	}
//
// Marshal and Unmarshal cover the common case of a whole stream in memory.
// For files and sockets, use NewSerializer and NewDeserializer directly.
//
// # Revisions
//
// When a field is added to a type, bump the revision the program writes and
// gate the new field on it. Readers of older streams skip the read and use a
// default instead:
//
//	var nameField = binverse.Since(2)
//
//	func (u *User) Deserialize(d *binverse.Deserializer) (err error) {
//	    if u.ID, err = d.ReadUint64(); err != nil {
//	        return err
//	    }
//	    u.Name, err = binverse.ReadGated(d, nameField, (*binverse.Deserializer).ReadString, "anonymous")
//	    return err
//	}
//
// Removed fields use Between(added, removed) and SkipGated so their bytes are
// still consumed in streams that carry them. A reader that meets a stream
// newer than it understands should refuse it with Schema.Check or
// WithMaxRevision rather than misread trailing fields; both report
// ErrRevisionMismatch.
//
// # Error Handling
//
// Every failure is an *Error carrying a Kind. Use errors.Is with the
// exported sentinels (ErrUnexpectedEOF, ErrInvalidVarint, ...) to test for a
// kind. Serializers and Deserializers stop at their first error; there is no
// rollback of bytes already written, so write to a buffer first (Marshal
// does) when the destination must only see complete values.
//
// # Thread Safety
//
// A Serializer or Deserializer owns its sink or source and must not be used
// from more than one goroutine at a time.
package binverse
