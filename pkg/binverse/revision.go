package binverse

import "fmt"

// Span is the range of revisions in which a field is part of a type's
// encoding: from Added up to, but not including, Removed. A zero Removed
// means the field is still present.
type Span struct {
	Added   uint32
	Removed uint32
}

// Since returns the span of a field introduced at rev.
func Since(rev uint32) Span {
	return Span{Added: rev}
}

// Between returns the span of a field introduced at added and dropped at
// removed.
func Between(added, removed uint32) Span {
	return Span{Added: added, Removed: removed}
}

// Contains reports whether a stream at rev carries the field.
func (sp Span) Contains(rev uint32) bool {
	return rev >= sp.Added && (sp.Removed == 0 || rev < sp.Removed)
}

// Has reports whether the stream being read carries a field with span sp.
func (d *Deserializer) Has(sp Span) bool {
	return sp.Contains(d.revision)
}

// Has reports whether a field with span sp belongs in the stream being
// written.
func (s *Serializer) Has(sp Span) bool {
	return sp.Contains(s.revision)
}

// ReadGated reads a field if the stream's revision carries it and returns
// def otherwise, without touching the source.
func ReadGated[T any](d *Deserializer, sp Span, read ReadFunc[T], def T) (T, error) {
	if !d.Has(sp) {
		return def, nil
	}
	return read(d)
}

// WriteGated writes v only if the field belongs in a stream at the
// Serializer's revision.
func WriteGated[T any](s *Serializer, sp Span, write WriteFunc[T], v T) error {
	if !s.Has(sp) {
		return nil
	}
	return write(s, v)
}

// SkipGated consumes a field that no longer exists in the type, if the
// stream carries it.
func SkipGated[T any](d *Deserializer, sp Span, read ReadFunc[T]) error {
	if !d.Has(sp) {
		return nil
	}
	_, err := read(d)
	return err
}

// Schema names a type and the newest revision its implementation
// understands.
type Schema struct {
	Name   string
	Latest uint32
}

// Check fails with ErrRevisionMismatch when the stream is newer than the
// schema; its trailing fields could not be consumed correctly.
func (sc Schema) Check(d *Deserializer) error {
	if d.revision > sc.Latest {
		return d.fail(revisionMismatch(sc.op(), d.revision, sc.Latest))
	}
	return nil
}

// CheckWrite fails with ErrRevisionMismatch when asked to write a revision
// the schema does not know.
func (sc Schema) CheckWrite(s *Serializer) error {
	if s.revision > sc.Latest {
		return s.fail(revisionMismatch(sc.op(), s.revision, sc.Latest))
	}
	return nil
}

func (sc Schema) op() string {
	if sc.Name == "" {
		return "check revision"
	}
	return "check revision of " + sc.Name
}

// Field describes one field of an aggregate for table-driven
// implementations, such as generated code.
//
// Write may be nil for a removed field the current type no longer holds;
// Default, if set, runs when the stream does not carry the field.
type Field struct {
	Name    string
	Span    Span
	Write   func(s *Serializer) error
	Read    func(d *Deserializer) error
	Default func()
}

// Fields is an ordered field list. Order is the wire order.
type Fields []Field

// Serialize writes every field present at the Serializer's revision.
func (fs Fields) Serialize(s *Serializer) error {
	for _, f := range fs {
		if !s.Has(f.Span) || f.Write == nil {
			continue
		}
		if err := f.Write(s); err != nil {
			return s.fail(fmt.Errorf("field %s: %w", f.Name, err))
		}
	}
	return nil
}

// Deserialize reads every field the stream carries and applies defaults to
// the rest.
func (fs Fields) Deserialize(d *Deserializer) error {
	for _, f := range fs {
		if !d.Has(f.Span) {
			if f.Default != nil {
				f.Default()
			}
			continue
		}
		if f.Read == nil {
			return d.fail(newError(KindInvalidData, "field "+f.Name,
				fmt.Errorf("no reader for revision %d", d.revision)))
		}
		if err := f.Read(d); err != nil {
			return d.fail(fmt.Errorf("field %s: %w", f.Name, err))
		}
	}
	return nil
}
