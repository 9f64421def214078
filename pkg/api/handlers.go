package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/codec"
	"github.com/ssargent/binverse/pkg/storage"
)

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// readStream reads and checks an uploaded stream. It writes the error
// response itself and returns ok=false on failure.
func (s *Server) readStream(w http.ResponseWriter, r *http.Request) ([]byte, uint32, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Stream too large", http.StatusRequestEntityTooLarge)
			return nil, 0, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, 0, false
	}

	rev, err := binverse.PeekRevision(body)
	if err != nil {
		s.metrics.ObserveError(err)
		sendError(w, "Body is not a binverse stream: missing revision header", http.StatusBadRequest)
		return nil, 0, false
	}
	if limit := s.config.MaxRevision; limit != nil && rev > *limit {
		s.metrics.ObserveError(&binverse.Error{Kind: binverse.KindRevisionMismatch})
		sendError(w, fmt.Sprintf("Stream revision %d is newer than supported revision %d", rev, *limit), http.StatusConflict)
		return nil, 0, false
	}
	return body, rev, true
}

// streamID parses the {id} route parameter.
func streamID(w http.ResponseWriter, r *http.Request) (*ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid stream id", http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}

func (s *Server) sendStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Stream not found", http.StatusNotFound)
		return
	}
	s.logger.Error("stream operation failed", "op", op, "error", err)
	sendError(w, fmt.Sprintf("Failed to %s stream: %v", op, err), http.StatusInternalServerError)
}

// handleCreate stores the request body as a new stream
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, rev, ok := s.readStream(w, r)
	if !ok {
		return
	}

	id, err := s.store.Create(body)
	if err != nil {
		s.sendStoreError(w, "create", err)
		return
	}

	w.Header().Set("Location", "/api/v1/streams/"+id.String())
	sendJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       id.String(),
		"revision": rev,
		"size":     len(body),
	})
}

// handleGet returns the raw stream bytes
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}

	frame, err := s.store.Read(id)
	if err != nil {
		s.sendStoreError(w, "read", err)
		return
	}
	rev, err := frame.Revision()
	if err != nil {
		s.sendStoreError(w, "read", err)
		return
	}

	w.Header().Set("Content-Type", ContentTypeBinverse)
	w.Header().Set(RevisionHeader, strconv.FormatUint(uint64(rev), 10))
	w.Header().Set("Content-Length", strconv.Itoa(len(frame.Payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Payload)
}

// handleInfo returns stream metadata as JSON
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}

	frame, err := s.store.Read(id)
	if err != nil {
		s.sendStoreError(w, "read", err)
		return
	}
	info, err := newStreamInfo(*id, frame)
	if err != nil {
		s.sendStoreError(w, "read", err)
		return
	}
	sendSuccess(w, info)
}

// handleUpdate replaces an existing stream
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}
	body, rev, ok := s.readStream(w, r)
	if !ok {
		return
	}

	if err := s.store.Update(id, body); err != nil {
		s.sendStoreError(w, "update", err)
		return
	}
	sendSuccess(w, map[string]interface{}{
		"id":       id.String(),
		"revision": rev,
		"size":     len(body),
	})
}

// handleDelete removes a stream
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := streamID(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(id); err != nil {
		s.sendStoreError(w, "delete", err)
		return
	}
	sendSuccess(w, map[string]string{"status": "deleted"})
}

// handleList returns metadata for every stored stream
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos := []StreamInfo{}
	err := s.store.List(func(id ksuid.KSUID, frame *codec.Frame) error {
		info, err := newStreamInfo(id, frame)
		if err != nil {
			return fmt.Errorf("stream %s: %w", id, err)
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		s.sendStoreError(w, "list", err)
		return
	}
	sendSuccess(w, infos)
}
