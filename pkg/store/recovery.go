package store

import (
	"errors"
	"io"
	"os"
	"time"
)

// Recover validates every frame in the log at filePath and truncates the
// file after the last good one. A missing file is not an error.
func Recover(filePath string) (*RecoveryResult, error) {
	return recoverLog(filePath, 0)
}

func recoverLog(filePath string, maxFrameSize uint32) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{RecoveryTime: time.Since(startTime)}, nil
		}
		return nil, err
	}
	result := &RecoveryResult{
		FileSizeBefore: fileInfo.Size(),
		FileSizeAfter:  fileInfo.Size(),
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath, MaxFrameSize: maxFrameSize})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var corrupted bool
	for {
		if _, err := reader.ReadNext(); err != nil {
			if err == io.EOF {
				break
			}
			if !errors.Is(err, ErrCorruption) {
				return nil, err
			}
			corrupted = true
			break
		}
		result.FramesValidated++
	}

	if corrupted {
		lastValidOffset := reader.Offset()
		file, err := os.OpenFile(filePath, os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
		if err := file.Truncate(lastValidOffset); err != nil {
			file.Close()
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
		result.FileSizeAfter = lastValidOffset
		// Everything after the first bad frame is unreachable; count it as one.
		result.FramesTruncated = 1
	}

	result.RecoveryTime = time.Since(startTime)
	return result, nil
}
