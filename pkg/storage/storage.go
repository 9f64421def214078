// Package storage keeps framed binverse streams in pebble, keyed by KSUID.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
	"github.com/ssargent/binverse/pkg/metrics"
)

// ErrNotFound is returned for an ID with no stored stream.
var ErrNotFound = errors.New("stream not found")

// Options configures DefaultStorage.
type Options struct {
	// InMemory keeps all data in memory; path is then only a name.
	InMemory bool
	// Sync fsyncs every write instead of leaving it to pebble's WAL policy.
	Sync    bool
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// DefaultStorage stores one frame per document.
type DefaultStorage struct {
	db      *pebble.DB
	codec   *codec.FrameCodec
	sync    *pebble.WriteOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDefaultStorage opens or creates a store at path.
func NewDefaultStorage(path string) (*DefaultStorage, error) {
	return Open(path, Options{})
}

// Open opens or creates a store at path with opts.
func Open(path string, opts Options) (*DefaultStorage, error) {
	pebbleOpts := &pebble.Options{}
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	writeOpts := pebble.NoSync
	if opts.Sync {
		writeOpts = pebble.Sync
	}

	return &DefaultStorage{
		db:      db,
		codec:   codec.NewFrameCodec(),
		sync:    writeOpts,
		logger:  logger.With("storage", path),
		metrics: opts.Metrics,
	}, nil
}

func (s *DefaultStorage) observe(op string, start time.Time, err error) {
	s.metrics.RecordStorageOperation(op, err == nil || errors.Is(err, ErrNotFound), time.Since(start))
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.metrics.ObserveError(err)
		s.logger.Error("storage operation failed", "op", op, "error", err)
	}
}

// Create stores payload, which must be a complete binverse stream, under a
// new ID.
func (s *DefaultStorage) Create(payload []byte) (_ *ksuid.KSUID, err error) {
	start := time.Now()
	defer func() { s.observe("create", start, err) }()

	id := ksuid.New()
	if err := s.put(id, payload); err != nil {
		return nil, err
	}
	s.metrics.ObserveFrame("create", len(payload))
	s.logger.Debug("created stream", "id", id.String(), "size", len(payload))
	return &id, nil
}

// CreateValue serializes v at revision and stores it under a new ID.
func (s *DefaultStorage) CreateValue(revision uint32, v binverse.Serializable) (*ksuid.KSUID, error) {
	payload, err := binverse.Marshal(revision, v)
	if err != nil {
		s.metrics.ObserveError(err)
		return nil, err
	}
	return s.Create(payload)
}

func (s *DefaultStorage) put(id ksuid.KSUID, payload []byte) error {
	if _, err := binverse.PeekRevision(payload); err != nil {
		return fmt.Errorf("payload is not a stream: %w", err)
	}
	data, err := s.codec.Encode(payload)
	if err != nil {
		return err
	}
	return s.db.Set(id.Bytes(), data, s.sync)
}

// Read returns the frame stored under id. The frame owns its memory.
func (s *DefaultStorage) Read(id *ksuid.KSUID) (_ *codec.Frame, err error) {
	start := time.Now()
	defer func() { s.observe("read", start, err) }()

	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	// The value is only valid until closer.Close.
	owned := append([]byte(nil), data...)
	if err := closer.Close(); err != nil {
		return nil, err
	}

	frame, err := s.decode(owned)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", id, err)
	}
	s.metrics.ObserveFrame("read", len(frame.Payload))
	return frame, nil
}

func (s *DefaultStorage) decode(data []byte) (*codec.Frame, error) {
	frame, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}

// ReadInto decodes the stream stored under id into v.
func (s *DefaultStorage) ReadInto(id *ksuid.KSUID, v binverse.Deserializable, opts ...binverse.Option) error {
	frame, err := s.Read(id)
	if err != nil {
		return err
	}
	if err := frame.DecodeInto(v, opts...); err != nil {
		s.metrics.ObserveError(err)
		return fmt.Errorf("stream %s: %w", id, err)
	}
	return nil
}

// Update replaces the stream stored under id. The ID must exist.
func (s *DefaultStorage) Update(id *ksuid.KSUID, payload []byte) (err error) {
	start := time.Now()
	defer func() { s.observe("update", start, err) }()

	if err := s.exists(id); err != nil {
		return err
	}
	if err := s.put(*id, payload); err != nil {
		return err
	}
	s.metrics.ObserveFrame("update", len(payload))
	return nil
}

// Delete removes the stream stored under id. The ID must exist.
func (s *DefaultStorage) Delete(id *ksuid.KSUID) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	if err := s.exists(id); err != nil {
		return err
	}
	return s.db.Delete(id.Bytes(), s.sync)
}

func (s *DefaultStorage) exists(id *ksuid.KSUID) error {
	_, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return closer.Close()
}

// List calls fn for every stored stream in ID order, which is creation
// order to the second.
func (s *DefaultStorage) List(fn func(id ksuid.KSUID, frame *codec.Frame) error) (err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()

	iter, err := s.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key())
		if err != nil {
			return fmt.Errorf("invalid key %x: %w", iter.Key(), err)
		}
		frame, err := s.decode(append([]byte(nil), iter.Value()...))
		if err != nil {
			return fmt.Errorf("stream %s: %w", id, err)
		}
		if err := fn(id, frame); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (s *DefaultStorage) Close() error {
	return s.db.Close()
}
