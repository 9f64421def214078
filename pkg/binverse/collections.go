package binverse

import (
	"bytes"
	"fmt"
	"sort"

	"go.hasen.dev/generic"
)

// WriteSlice writes the element count as a varint followed by each element.
func WriteSlice[T any](s *Serializer, items []T, write WriteFunc[T]) error {
	return WriteSizedSlice(s, WidthVar, items, write)
}

// ReadSlice reads a sequence written by WriteSlice.
func ReadSlice[T any](d *Deserializer, read ReadFunc[T]) ([]T, error) {
	return ReadSizedSlice(d, WidthVar, read)
}

// WriteSizedSlice is WriteSlice with a count prefix of width w.
func WriteSizedSlice[T any](s *Serializer, w Width, items []T, write WriteFunc[T]) error {
	if err := s.WriteSize(w, len(items)); err != nil {
		return err
	}
	return WriteArray(s, items, write)
}

// ReadSizedSlice reads a sequence written by WriteSizedSlice.
func ReadSizedSlice[T any](d *Deserializer, w Width, read ReadFunc[T]) ([]T, error) {
	n, err := d.ReadSize(w)
	if err != nil {
		return nil, err
	}
	return ReadArray(d, n, read)
}

// WriteArray writes the elements of a fixed-size sequence without a count;
// the reader must know n.
func WriteArray[T any](s *Serializer, items []T, write WriteFunc[T]) error {
	for i := range items {
		if err := write(s, items[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadArray reads n elements written by WriteArray.
func ReadArray[T any](d *Deserializer, n int, read ReadFunc[T]) ([]T, error) {
	if n < 0 {
		return nil, d.fail(newError(KindInvalidData, "read array", fmt.Errorf("negative count %d", n)))
	}
	// Grow with the data rather than trusting n for the allocation.
	items := make([]T, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		v, err := read(d)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// WriteOption writes a presence byte (0 or 1) followed by *v when v is not
// nil.
func WriteOption[T any](s *Serializer, v *T, write WriteFunc[T]) error {
	if v == nil {
		return s.WriteBool(false)
	}
	if err := s.WriteBool(true); err != nil {
		return err
	}
	return write(s, *v)
}

// ReadOption reads a value written by WriteOption; absent values are nil.
func ReadOption[T any](d *Deserializer, read ReadFunc[T]) (*T, error) {
	present, err := d.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	v, err := read(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type mapEntry[V any] struct {
	key []byte
	val V
}

// WriteMap writes the entry count followed by key/value pairs. Entries are
// ordered by the bytes of their encoded keys so equal maps always produce
// equal output.
func WriteMap[K comparable, V any](s *Serializer, m map[K]V, writeKey WriteFunc[K], writeVal WriteFunc[V]) error {
	if err := s.check(); err != nil {
		return err
	}
	entries := make([]mapEntry[V], 0, len(m))
	for k, v := range m {
		var buf bytes.Buffer
		ks := NewRawSerializer(&buf, s.revision)
		if err := writeKey(ks, k); err != nil {
			return s.fail(err)
		}
		entries = append(entries, mapEntry[V]{key: buf.Bytes(), val: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	if err := s.WriteUvarint(uint64(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.WriteRaw(e.key); err != nil {
			return err
		}
		if err := writeVal(s, e.val); err != nil {
			return err
		}
	}
	return nil
}

// ReadMap reads a map written by WriteMap. A repeated key is rejected with
// ErrInvalidData.
func ReadMap[K comparable, V any](d *Deserializer, readKey ReadFunc[K], readVal ReadFunc[V]) (map[K]V, error) {
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	var m map[K]V
	generic.InitMap(&m)
	for i := 0; i < n; i++ {
		k, err := readKey(d)
		if err != nil {
			return nil, err
		}
		v, err := readVal(d)
		if err != nil {
			return nil, err
		}
		if _, dup := m[k]; dup {
			return nil, d.fail(newError(KindInvalidData, "read map", fmt.Errorf("duplicate key %v", k)))
		}
		m[k] = v
	}
	return m, nil
}
