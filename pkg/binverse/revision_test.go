package binverse

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpan_Contains(t *testing.T) {
	testCases := []struct {
		name string
		span Span
		rev  uint32
		want bool
	}{
		{name: "since before", span: Since(2), rev: 1, want: false},
		{name: "since at", span: Since(2), rev: 2, want: true},
		{name: "since after", span: Since(2), rev: 100, want: true},
		{name: "between at added", span: Between(1, 3), rev: 1, want: true},
		{name: "between inside", span: Between(1, 3), rev: 2, want: true},
		{name: "between at removed", span: Between(1, 3), rev: 3, want: false},
		{name: "always", span: Span{}, rev: 0, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.span.Contains(tc.rev))
		})
	}
}

func TestRevision_OldStreamReadsIntoNewType(t *testing.T) {
	old := itemV1{ID: 7, Name: "anvil", Weight: 12.5}
	data, err := Marshal(1, old)
	require.NoError(t, err)

	r := bytes.NewReader(data)
	d, err := NewDeserializer(r)
	require.NoError(t, err)

	var got item
	require.NoError(t, d.Deserialize(&got))
	assert.Equal(t, item{ID: 7, Name: "anvil", Price: defaultItemPrice}, got)
	assert.Zero(t, r.Len(), "the removed weight field must be consumed")
}

func TestRevision_EachRevisionRoundTrips(t *testing.T) {
	testCases := []struct {
		rev  uint32
		in   item
		want item
	}{
		{
			rev:  1,
			in:   item{ID: 1, Name: "a", Price: 5, Tags: []string{"x"}},
			want: item{ID: 1, Name: "a", Price: defaultItemPrice},
		},
		{
			rev:  2,
			in:   item{ID: 2, Name: "b", Price: 5, Tags: []string{"x"}},
			want: item{ID: 2, Name: "b", Price: 5},
		},
		{
			rev:  3,
			in:   item{ID: 3, Name: "c", Price: 5, Tags: []string{"x", "y"}},
			want: item{ID: 3, Name: "c", Price: 5, Tags: []string{"x", "y"}},
		},
	}

	for _, tc := range testCases {
		data, err := Marshal(tc.rev, tc.in)
		require.NoError(t, err)

		var got item
		require.NoError(t, Unmarshal(data, &got), "revision %d", tc.rev)
		assert.Equal(t, tc.want, got, "revision %d", tc.rev)
	}
}

func TestRevision_NewerStreamIsRejected(t *testing.T) {
	// A revision 3 stream read by code that only knows revision 1.
	data, err := Marshal(3, item{ID: 1, Name: "new", Price: 9, Tags: []string{"t"}})
	require.NoError(t, err)

	var got itemV1
	err = Unmarshal(data, &got)
	assert.ErrorIs(t, err, ErrRevisionMismatch)
	assert.Equal(t, KindRevisionMismatch, KindOf(err))
}

func TestRevision_WriteUnknownRevision(t *testing.T) {
	_, err := Marshal(itemSchema.Latest+1, item{ID: 1})
	assert.ErrorIs(t, err, ErrRevisionMismatch)
}

func TestRevision_StreamAboveMaxRevision(t *testing.T) {
	data, err := Marshal(2, item{ID: 1})
	require.NoError(t, err)

	var got item
	err = Unmarshal(data, &got, WithMaxRevision(1))
	assert.ErrorIs(t, err, ErrRevisionMismatch)
}

func TestRevision_GatedReadLeavesSourceUntouched(t *testing.T) {
	src := bytes.NewReader([]byte{0x2A})
	d := NewRawDeserializer(src, 1)

	v, err := ReadGated(d, Since(2), (*Deserializer).ReadUint8, 9)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), v)
	assert.Equal(t, 1, src.Len())

	require.NoError(t, SkipGated(d, Since(2), (*Deserializer).ReadUint8))
	assert.Equal(t, 1, src.Len())
}

// gadget uses a field table instead of hand-written methods.
type gadget struct {
	Name  string
	Color uint8
	Size  uint32
}

func (g *gadget) fields() Fields {
	return Fields{
		{
			Name:  "name",
			Span:  Since(0),
			Write: func(s *Serializer) error { return s.WriteString(g.Name) },
			Read:  func(d *Deserializer) (err error) { g.Name, err = d.ReadString(); return err },
		},
		{
			// Dropped at revision 2; still consumed from older streams.
			Name: "legacy",
			Span: Between(0, 2),
			Read: func(d *Deserializer) error { _, err := d.ReadUint16(); return err },
		},
		{
			Name:    "color",
			Span:    Since(1),
			Write:   func(s *Serializer) error { return s.WriteUint8(g.Color) },
			Read:    func(d *Deserializer) (err error) { g.Color, err = d.ReadUint8(); return err },
			Default: func() { g.Color = 0xFF },
		},
		{
			Name:  "size",
			Span:  Since(2),
			Write: func(s *Serializer) error { return s.WriteUint32(g.Size) },
			Read:  func(d *Deserializer) (err error) { g.Size, err = d.ReadUint32(); return err },
		},
	}
}

func (g gadget) Serialize(s *Serializer) error     { return g.fields().Serialize(s) }
func (g *gadget) Deserialize(d *Deserializer) error { return g.fields().Deserialize(d) }

func TestFields_RevisionTable(t *testing.T) {
	// Revision 0 carries name and the legacy u16 only.
	v0 := stream(0, 2, 'o', 'k', 0x34, 0x12)
	var g gadget
	require.NoError(t, Unmarshal(v0, &g))
	assert.Equal(t, gadget{Name: "ok", Color: 0xFF}, g)

	v2, err := Marshal(2, gadget{Name: "ok", Color: 3, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, stream(2, 2, 'o', 'k', 3, 10, 0, 0, 0), v2)

	g = gadget{}
	require.NoError(t, Unmarshal(v2, &g))
	assert.Equal(t, gadget{Name: "ok", Color: 3, Size: 10}, g)
}

func TestFields_ErrorNamesField(t *testing.T) {
	var g gadget
	err := Unmarshal(stream(1, 2, 'o', 'k', 0, 0), &g)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "field color")
}

func TestFields_MissingReader(t *testing.T) {
	fs := Fields{{Name: "ghost", Span: Since(0)}}
	d := NewRawDeserializer(bytes.NewReader(nil), 0)
	err := fs.Deserialize(d)
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.ErrorIs(t, d.Err(), ErrInvalidData)

	_, err = d.ReadUint8()
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestFields_WriteErrorIsSticky(t *testing.T) {
	fs := Fields{{
		Name:  "broken",
		Span:  Since(0),
		Write: func(*Serializer) error { return Errorf("cannot encode") },
	}}
	var buf bytes.Buffer
	s := NewRawSerializer(&buf, 0)
	err := fs.Serialize(s)
	require.ErrorIs(t, err, ErrCustom)
	assert.Contains(t, err.Error(), "field broken")
	assert.ErrorIs(t, s.Err(), ErrCustom)
}
