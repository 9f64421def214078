package api

import (
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/binverse/pkg/codec"
)

// ContentTypeBinverse is the media type of a raw binverse stream.
const ContentTypeBinverse = "application/x-binverse"

// RevisionHeader carries a stream's revision on GET responses.
const RevisionHeader = "X-Binverse-Revision"

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StreamInfo describes a stored stream without its payload.
type StreamInfo struct {
	ID        string    `json:"id"`
	Revision  uint32    `json:"revision"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

func newStreamInfo(id ksuid.KSUID, frame *codec.Frame) (StreamInfo, error) {
	rev, err := frame.Revision()
	if err != nil {
		return StreamInfo{}, err
	}
	return StreamInfo{
		ID:        id.String(),
		Revision:  rev,
		Size:      len(frame.Payload),
		Timestamp: frame.Time().UTC(),
	}, nil
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr   string
	APIKey string // Empty disables authentication
	// MaxRevision rejects uploads newer than this when set.
	MaxRevision *uint32
	// MaxBodySize caps request bodies; zero means binverse.DefaultMaxLength.
	MaxBodySize int64
}
