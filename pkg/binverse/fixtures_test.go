package binverse

import (
	"errors"
	"time"
)

// basicRecord is the record from the package documentation example.
type basicRecord struct {
	A int32
	B float32
	C string
}

func (r basicRecord) Serialize(s *Serializer) error {
	if err := s.WriteInt32(r.A); err != nil {
		return err
	}
	if err := s.WriteFloat32(r.B); err != nil {
		return err
	}
	return s.WriteString(r.C)
}

func (r *basicRecord) Deserialize(d *Deserializer) (err error) {
	if r.A, err = d.ReadInt32(); err != nil {
		return err
	}
	if r.B, err = d.ReadFloat32(); err != nil {
		return err
	}
	r.C, err = d.ReadString()
	return err
}

type vec3 struct {
	X, Y, Z float32
}

func (v vec3) Serialize(s *Serializer) error {
	return WriteArray(s, []float32{v.X, v.Y, v.Z}, (*Serializer).WriteFloat32)
}

func (v *vec3) Deserialize(d *Deserializer) error {
	xyz, err := ReadArray(d, 3, (*Deserializer).ReadFloat32)
	if err != nil {
		return err
	}
	v.X, v.Y, v.Z = xyz[0], xyz[1], xyz[2]
	return nil
}

// entity exercises most primitive and composite encodings at once.
type entity struct {
	ID       uint64
	Kind     int8
	Health   int16
	Flags    uint16
	Score    float64
	Alive    bool
	Name     string
	Blob     []byte
	Position vec3
	Path     []vec3
	Labels   map[string]int32
	Parent   *uint64
	Seen     time.Time
}

func (e entity) Serialize(s *Serializer) error {
	steps := []func() error{
		func() error { return s.WriteUint64(e.ID) },
		func() error { return s.WriteInt8(e.Kind) },
		func() error { return s.WriteInt16(e.Health) },
		func() error { return s.WriteUint16(e.Flags) },
		func() error { return s.WriteFloat64(e.Score) },
		func() error { return s.WriteBool(e.Alive) },
		func() error { return s.WriteString(e.Name) },
		func() error { return s.WriteBytes(e.Blob) },
		func() error { return s.Serialize(e.Position) },
		func() error { return WriteSlice(s, e.Path, WriteValue[vec3]) },
		func() error { return WriteMap(s, e.Labels, (*Serializer).WriteString, (*Serializer).WriteInt32) },
		func() error { return WriteOption(s, e.Parent, (*Serializer).WriteUint64) },
		func() error { return WriteUnixTime(s, e.Seen) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *entity) Deserialize(d *Deserializer) (err error) {
	if e.ID, err = d.ReadUint64(); err != nil {
		return err
	}
	if e.Kind, err = d.ReadInt8(); err != nil {
		return err
	}
	if e.Health, err = d.ReadInt16(); err != nil {
		return err
	}
	if e.Flags, err = d.ReadUint16(); err != nil {
		return err
	}
	if e.Score, err = d.ReadFloat64(); err != nil {
		return err
	}
	if e.Alive, err = d.ReadBool(); err != nil {
		return err
	}
	if e.Name, err = d.ReadString(); err != nil {
		return err
	}
	if e.Blob, err = d.ReadBytes(); err != nil {
		return err
	}
	if err = d.Deserialize(&e.Position); err != nil {
		return err
	}
	if e.Path, err = ReadSlice(d, ReadValue[vec3]); err != nil {
		return err
	}
	if e.Labels, err = ReadMap(d, (*Deserializer).ReadString, (*Deserializer).ReadInt32); err != nil {
		return err
	}
	if e.Parent, err = ReadOption(d, (*Deserializer).ReadUint64); err != nil {
		return err
	}
	e.Seen, err = ReadUnixTime(d)
	return err
}

var itemSchema = Schema{Name: "item", Latest: 3}

var (
	itemWeight = Between(0, 3)
	itemPrice  = Since(2)
	itemTags   = Since(3)
)

const defaultItemPrice = 100

// itemV1 is the shape item had at revision 1.
type itemV1 struct {
	ID     uint64
	Name   string
	Weight float32
}

func (i itemV1) Serialize(s *Serializer) error {
	if err := s.WriteUint64(i.ID); err != nil {
		return err
	}
	if err := s.WriteString(i.Name); err != nil {
		return err
	}
	return s.WriteFloat32(i.Weight)
}

func (i *itemV1) Deserialize(d *Deserializer) (err error) {
	if err := (Schema{Name: "item", Latest: 1}).Check(d); err != nil {
		return err
	}
	if i.ID, err = d.ReadUint64(); err != nil {
		return err
	}
	if i.Name, err = d.ReadString(); err != nil {
		return err
	}
	i.Weight, err = d.ReadFloat32()
	return err
}

// item is the current shape: Weight was dropped at revision 3, Price added
// at 2 and Tags at 3.
type item struct {
	ID    uint64
	Name  string
	Price int64
	Tags  []string
}

func readStrings(d *Deserializer) ([]string, error) {
	return ReadSlice(d, (*Deserializer).ReadString)
}

func writeStrings(s *Serializer, v []string) error {
	return WriteSlice(s, v, (*Serializer).WriteString)
}

func (i item) Serialize(s *Serializer) error {
	if err := itemSchema.CheckWrite(s); err != nil {
		return err
	}
	if err := s.WriteUint64(i.ID); err != nil {
		return err
	}
	if err := s.WriteString(i.Name); err != nil {
		return err
	}
	if err := WriteGated(s, itemWeight, (*Serializer).WriteFloat32, 0); err != nil {
		return err
	}
	if err := WriteGated(s, itemPrice, (*Serializer).WriteInt64, i.Price); err != nil {
		return err
	}
	return WriteGated(s, itemTags, writeStrings, i.Tags)
}

func (i *item) Deserialize(d *Deserializer) (err error) {
	if err := itemSchema.Check(d); err != nil {
		return err
	}
	if i.ID, err = d.ReadUint64(); err != nil {
		return err
	}
	if i.Name, err = d.ReadString(); err != nil {
		return err
	}
	if err := SkipGated(d, itemWeight, (*Deserializer).ReadFloat32); err != nil {
		return err
	}
	if i.Price, err = ReadGated(d, itemPrice, (*Deserializer).ReadInt64, defaultItemPrice); err != nil {
		return err
	}
	i.Tags, err = ReadGated(d, itemTags, readStrings, nil)
	return err
}

// failingWriter accepts limit bytes and then fails.
type failingWriter struct {
	limit   int
	written int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		n := w.limit - w.written
		w.written = w.limit
		return n, errDiskFull
	}
	w.written += len(p)
	return len(p), nil
}
