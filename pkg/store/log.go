package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
	"github.com/ssargent/binverse/pkg/metrics"
)

// LogOptions configures a Log.
type LogOptions struct {
	FsyncInterval time.Duration
	BufferSize    int
	MaxFrameSize  uint32
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Log is an append-only file of framed binverse streams. Opening it
// recovers from a torn write by truncating the damaged tail.
type Log struct {
	path     string
	opts     LogOptions
	writer   *LogWriter
	reader   *LogReader
	recovery *RecoveryResult
	logger   *slog.Logger
	metrics  *metrics.Metrics
	mutex    sync.Mutex
}

// OpenLog recovers the log at path, creating it if needed, and opens it for
// appending and reading.
func OpenLog(path string, opts LogOptions) (*Log, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("log", path)

	recovery, err := recoverLog(path, opts.MaxFrameSize)
	if err != nil {
		return nil, fmt.Errorf("failed to recover log: %w", err)
	}
	if recovery.Truncated() {
		logger.Warn("truncated damaged log tail",
			"frames_validated", recovery.FramesValidated,
			"size_before", recovery.FileSizeBefore,
			"size_after", recovery.FileSizeAfter)
	} else {
		logger.Debug("log recovered",
			"frames_validated", recovery.FramesValidated,
			"duration", recovery.RecoveryTime)
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      path,
		FsyncInterval: opts.FsyncInterval,
		BufferSize:    opts.BufferSize,
		MaxFrameSize:  opts.MaxFrameSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log writer: %w", err)
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: path, MaxFrameSize: opts.MaxFrameSize})
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to open log reader: %w", err)
	}

	return &Log{
		path:     path,
		opts:     opts,
		writer:   writer,
		reader:   reader,
		recovery: recovery,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Recovery returns what OpenLog found when it validated the file.
func (l *Log) Recovery() *RecoveryResult {
	return l.recovery
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Size returns the number of bytes in the log.
func (l *Log) Size() int64 {
	return l.writer.Size()
}

// Append adds a complete stream to the log and returns its offset.
func (l *Log) Append(payload []byte) (int64, error) {
	offset, err := l.writer.Append(payload)
	return l.observeAppend(offset, len(payload), err)
}

// AppendValue serializes v at revision and adds it to the log.
func (l *Log) AppendValue(revision uint32, v binverse.Serializable) (int64, error) {
	payload, err := binverse.Marshal(revision, v)
	if err != nil {
		return l.observeAppend(0, 0, err)
	}
	return l.Append(payload)
}

func (l *Log) observeAppend(offset int64, size int, err error) (int64, error) {
	if err != nil {
		l.metrics.ObserveError(err)
		l.logger.Error("append failed", "error", err)
		return 0, err
	}
	l.metrics.ObserveFrame("append", size)
	l.logger.Debug("appended frame", "offset", offset, "payload_size", size)
	return offset, nil
}

// Read returns the frame at offset.
func (l *Log) Read(offset int64) (*codec.Frame, error) {
	if err := l.writer.Flush(); err != nil {
		return nil, err
	}
	frame, err := l.reader.ReadAt(offset)
	if err != nil {
		l.metrics.ObserveError(err)
		return nil, err
	}
	l.metrics.ObserveFrame("read", len(frame.Payload))
	return frame, nil
}

// ReadInto decodes the stream at offset into v.
func (l *Log) ReadInto(offset int64, v binverse.Deserializable, opts ...binverse.Option) error {
	frame, err := l.Read(offset)
	if err != nil {
		return err
	}
	if err := frame.DecodeInto(v, opts...); err != nil {
		l.metrics.ObserveError(err)
		return fmt.Errorf("frame at offset %d: %w", offset, err)
	}
	return nil
}

// ErrStopScan ends Scan early without error.
var ErrStopScan = errors.New("stop scan")

// Scan calls fn for every frame in the log, in order.
func (l *Log) Scan(fn func(offset int64, frame *codec.Frame) error) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := l.writer.Flush(); err != nil {
		return err
	}
	if err := l.reader.Seek(0); err != nil {
		return err
	}

	it := l.reader.Iterator()
	defer it.Close()
	for it.Next() {
		l.metrics.ObserveFrame("scan", len(it.Frame().Payload))
		if err := fn(it.Offset(), it.Frame()); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return it.Err()
}

// Sync flushes and fsyncs the log.
func (l *Log) Sync() error {
	return l.writer.Sync()
}

// Close syncs and closes the log.
func (l *Log) Close() error {
	werr := l.writer.Close()
	rerr := l.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
