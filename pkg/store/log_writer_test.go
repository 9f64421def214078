package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
)

func TestNewLogWriter(t *testing.T) {
	filePath := tempLogPath(t)

	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath, BufferSize: 4096})
	require.NoError(t, err)
	assert.NotNil(t, writer)

	assert.FileExists(t, filePath)
	assert.Equal(t, int64(0), writer.Size())
	assert.Equal(t, filePath, writer.Path())
	assert.Equal(t, uint32(binverse.DefaultMaxLength), writer.MaxFrameSize())

	assert.NoError(t, writer.Close())
}

func TestNewLogWriter_DirectoryCreation(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "log_writer_dir_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	nestedDir := filepath.Join(tmpDir, "nested", "deep", "path")
	writer, err := NewLogWriter(LogWriterConfig{FilePath: filepath.Join(nestedDir, "test.log")})
	require.NoError(t, err)

	assert.DirExists(t, nestedDir)
	assert.NoError(t, writer.Close())
}

func TestNewLogWriter_InvalidPath(t *testing.T) {
	filePath := tempLogPath(t)
	// A regular file where a directory is expected.
	require.NoError(t, os.WriteFile(filePath, nil, 0600))

	writer, err := NewLogWriter(LogWriterConfig{FilePath: filepath.Join(filePath, "test.log")})
	assert.Error(t, err)
	assert.Nil(t, writer)
}

func TestLogWriter_Append(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t)})
	require.NoError(t, err)
	defer writer.Close()

	payload := mustMarshal(t, 1, event{Seq: 1, Name: "created"})
	offset, err := writer.Append(payload)
	require.NoError(t, err)

	assert.Equal(t, int64(0), offset)
	assert.Equal(t, int64(codec.HeaderSize+len(payload)), writer.Size())
}

func TestLogWriter_AppendRejectsNonStream(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t)})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.Append([]byte{1, 2})
	assert.ErrorIs(t, err, binverse.ErrUnexpectedEOF)
	assert.Equal(t, int64(0), writer.Size())
}

func TestLogWriter_MultipleAppends(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t)})
	require.NoError(t, err)
	defer writer.Close()

	var offsets []int64
	var expected int64
	for i, name := range []string{"one", "two", "three"} {
		offset, err := writer.AppendValue(1, event{Seq: uint64(i), Name: name})
		require.NoError(t, err)
		assert.Equal(t, expected, offset)
		expected = writer.Size()
		offsets = append(offsets, offset)
	}

	assert.Greater(t, offsets[1], offsets[0])
	assert.Greater(t, offsets[2], offsets[1])
}

func TestLogWriter_AppendValueFailureWritesNothing(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t)})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.AppendValue(0, rejectedValue{})
	assert.ErrorIs(t, err, binverse.ErrCustom)
	assert.Equal(t, int64(0), writer.Size())
}

type rejectedValue struct{}

func (rejectedValue) Serialize(s *binverse.Serializer) error {
	if err := s.WriteString("partial"); err != nil {
		return err
	}
	return binverse.Errorf("rejected")
}

func TestLogWriter_MaxFrameSize(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t), MaxFrameSize: 16})
	require.NoError(t, err)
	defer writer.Close()

	assert.Equal(t, uint32(16), writer.MaxFrameSize())

	_, err = writer.AppendValue(0, event{Name: "this name does not fit"})
	assert.True(t, errors.Is(err, codec.ErrFrameTooLarge))

	_, err = writer.AppendValue(0, event{Name: "fits"})
	assert.NoError(t, err)
}

func TestLogWriter_FsyncInterval(t *testing.T) {
	filePath := tempLogPath(t)
	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      filePath,
		FsyncInterval: 20 * time.Millisecond,
		BufferSize:    4096,
	})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.AppendValue(1, event{Seq: 1})
	require.NoError(t, err)

	// The buffered frame reaches the file once the timer fires.
	assert.Eventually(t, func() bool {
		info, err := os.Stat(filePath)
		return err == nil && info.Size() == writer.Size()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLogWriter_Sync(t *testing.T) {
	filePath := tempLogPath(t)
	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath, FsyncInterval: time.Hour})
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.AppendValue(1, event{Seq: 1})
	require.NoError(t, err)
	require.NoError(t, writer.Sync())

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Equal(t, writer.Size(), info.Size())
}

func TestLogWriter_Reopen(t *testing.T) {
	filePath := tempLogPath(t)
	writeFrames(t, filePath, event{Seq: 1})

	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath})
	require.NoError(t, err)
	defer writer.Close()

	before := writer.Size()
	assert.Greater(t, before, int64(0))

	offset, err := writer.AppendValue(1, event{Seq: 2})
	require.NoError(t, err)
	assert.Equal(t, before, offset)
}

func TestLogWriter_Closed(t *testing.T) {
	writer, err := NewLogWriter(LogWriterConfig{FilePath: tempLogPath(t)})
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	assert.NoError(t, writer.Close())

	_, err = writer.AppendValue(1, event{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, writer.Sync(), ErrClosed)
}

func TestLogWriter_ConcurrentAccess(t *testing.T) {
	filePath := tempLogPath(t)
	writer, err := NewLogWriter(LogWriterConfig{FilePath: filePath, FsyncInterval: time.Second})
	require.NoError(t, err)

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_, err := writer.AppendValue(1, event{Seq: uint64(g*perGoroutine + i), Name: "concurrent"})
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, writer.Close())

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	require.NoError(t, err)
	defer reader.Close()

	seen := make(map[uint64]bool)
	it := reader.Iterator()
	for it.Next() {
		var e event
		require.NoError(t, it.Frame().DecodeInto(&e))
		seen[e.Seq] = true
	}
	require.NoError(t, it.Err())
	assert.Len(t, seen, goroutines*perGoroutine)
}
