package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
)

const defaultBufferSize = 64 * 1024

// LogWriter handles append-only writes of framed streams to a log file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *codec.FrameCodec
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
	closed     bool
}

// NewLogWriter creates a new log writer with the given configuration
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, err
	}

	if config.BufferSize <= 0 {
		config.BufferSize = defaultBufferSize
	}

	writer := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		codec:  codec.NewFrameCodec(codecOptions(config.MaxFrameSize)...),
		config: config,
		offset: offset,
	}

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			if !writer.closed {
				_ = writer.sync()
			}
		})
	}

	return writer, nil
}

// Append frames payload, which must be a complete binverse stream, and
// returns the offset the frame starts at.
func (w *LogWriter) Append(payload []byte) (int64, error) {
	if _, err := binverse.PeekRevision(payload); err != nil {
		return 0, fmt.Errorf("append: payload is not a stream: %w", err)
	}
	data, err := w.codec.Encode(payload)
	if err != nil {
		return 0, err
	}
	return w.write(data)
}

// AppendValue serializes v at revision and appends it. Nothing reaches the
// log unless v serialized completely.
func (w *LogWriter) AppendValue(revision uint32, v binverse.Serializable) (int64, error) {
	data, err := w.codec.EncodeValue(revision, v)
	if err != nil {
		return 0, err
	}
	return w.write(data)
}

func (w *LogWriter) write(data []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}

	frameOffset := w.offset
	w.offset += int64(n)

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return frameOffset, nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

// Flush hands buffered frames to the operating system without an fsync, so
// readers of the file can see them.
func (w *LogWriter) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.writer.Flush()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the current size of the log file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}

// MaxFrameSize returns the largest payload Append accepts.
func (w *LogWriter) MaxFrameSize() uint32 {
	if w.config.MaxFrameSize == 0 {
		return binverse.DefaultMaxLength
	}
	return w.config.MaxFrameSize
}
