package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/binverse/pkg/binverse"
)

// event is a small versioned type used throughout the store tests.
type event struct {
	Seq  uint64
	Name string
}

func (e event) Serialize(s *binverse.Serializer) error {
	if err := s.WriteUvarint(e.Seq); err != nil {
		return err
	}
	return s.WriteString(e.Name)
}

func (e *event) Deserialize(d *binverse.Deserializer) (err error) {
	if e.Seq, err = d.ReadUvarint(); err != nil {
		return err
	}
	e.Name, err = d.ReadString()
	return err
}

func mustMarshal(t *testing.T, revision uint32, v binverse.Serializable) []byte {
	t.Helper()
	data, err := binverse.Marshal(revision, v)
	require.NoError(t, err)
	return data
}

func tempLogPath(t *testing.T) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "binverse_store_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	return filepath.Join(tmpDir, "streams.log")
}

// writeFrames appends one frame per event and returns their offsets.
func writeFrames(t *testing.T, path string, events ...event) []int64 {
	t.Helper()
	writer, err := NewLogWriter(LogWriterConfig{FilePath: path, BufferSize: 4096})
	require.NoError(t, err)
	defer writer.Close()

	offsets := make([]int64, 0, len(events))
	for _, e := range events {
		offset, err := writer.AppendValue(1, e)
		require.NoError(t, err)
		offsets = append(offsets, offset)
	}
	return offsets
}
