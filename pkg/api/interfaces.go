// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/binverse/pkg/codec"
)

// StreamStore defines the storage operations the API needs
type StreamStore interface {
	Create(payload []byte) (*ksuid.KSUID, error)
	Read(id *ksuid.KSUID) (*codec.Frame, error)
	Update(id *ksuid.KSUID, payload []byte) error
	Delete(id *ksuid.KSUID) error
	List(fn func(id ksuid.KSUID, frame *codec.Frame) error) error
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled
	StartServer(ctx context.Context, store StreamStore, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
