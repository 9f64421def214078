package store

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ssargent/binverse/pkg/codec"
)

// LogReader provides sequential access to frames in a log file
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.FrameCodec
	offset int64
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  codec.NewFrameCodec(codecOptions(config.MaxFrameSize)...),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the next frame from the current offset. It returns io.EOF
// at a clean end of the log and ErrCorruption for a damaged or partial
// frame; the offset is left at the start of that frame.
func (r *LogReader) ReadNext() (*codec.Frame, error) {
	frame, err := r.codec.ReadFrame(r.reader)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if isCorruption(err) {
			return nil, fmt.Errorf("%w at offset %d: %v", ErrCorruption, r.offset, err)
		}
		return nil, err
	}
	r.offset += int64(frame.Size())
	return frame, nil
}

// ReadAt reads the frame at a specific offset without moving the
// sequential position. It opens the file afresh so frames appended since
// the reader was created are visible. An offset outside the file is
// ErrOffsetOutOfRange; a damaged frame at a valid offset is ErrCorruption.
func (r *LogReader) ReadAt(offset int64) (*codec.Frame, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= info.Size() {
		return nil, fmt.Errorf("%w: %d, log size %d", ErrOffsetOutOfRange, offset, info.Size())
	}

	frame, err := r.codec.ReadFrame(io.NewSectionReader(file, offset, math.MaxInt64-offset))
	if err != nil {
		if err == io.EOF || isCorruption(err) {
			return nil, fmt.Errorf("%w at offset %d: %v", ErrCorruption, offset, err)
		}
		return nil, err
	}
	return frame, nil
}

// Seek sets the read offset
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining frames
func (r *LogReader) Iterator() FrameIterator {
	return &logFrameIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logFrameIterator struct {
	reader *LogReader
	frame  *codec.Frame
	offset int64
	err    error
}

func (it *logFrameIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.offset = it.reader.Offset()
	it.frame, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logFrameIterator) Frame() *codec.Frame {
	return it.frame
}

// Offset returns the offset of the current frame.
func (it *logFrameIterator) Offset() int64 {
	return it.offset
}

// Err returns the error that ended iteration, or nil at a clean end.
func (it *logFrameIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *logFrameIterator) Close() error {
	// The underlying reader is owned by the caller.
	return nil
}
