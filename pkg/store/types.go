package store

import (
	"errors"
	"time"

	"github.com/ssargent/binverse/pkg/codec"
)

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the log file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
	MaxFrameSize  uint32        // Largest payload accepted (0 = codec default)
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath     string // Path to the log file
	StartOffset  int64  // Offset to start reading from
	MaxFrameSize uint32 // Largest payload accepted (0 = codec default)
}

// FrameIterator provides streaming access to frames
type FrameIterator interface {
	Next() bool
	Frame() *codec.Frame
	Offset() int64
	Err() error
	Close() error
}

// RecoveryResult reports what Recover found in a log file.
type RecoveryResult struct {
	FramesValidated int64
	FramesTruncated int64
	FileSizeBefore  int64
	FileSizeAfter   int64
	RecoveryTime    time.Duration
}

// Truncated reports whether recovery cut a damaged tail off the log.
func (r *RecoveryResult) Truncated() bool {
	return r.FileSizeAfter < r.FileSizeBefore
}

// Errors
var (
	ErrCorruption = &StoreError{"data corruption detected"}
	ErrClosed     = &StoreError{"log is closed"}
	// ErrOffsetOutOfRange means a read offset is negative or at or past the
	// end of the log.
	ErrOffsetOutOfRange = &StoreError{"offset out of range"}
)

// StoreError represents a stream log error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

func codecOptions(maxFrameSize uint32) []codec.FrameOption {
	if maxFrameSize == 0 {
		return nil
	}
	return []codec.FrameOption{codec.WithMaxPayload(maxFrameSize)}
}

// isCorruption reports whether err came from damaged frame bytes rather
// than the file system.
func isCorruption(err error) bool {
	return errors.Is(err, codec.ErrFrameTooShort) ||
		errors.Is(err, codec.ErrChecksum) ||
		errors.Is(err, codec.ErrFrameTooLarge)
}
