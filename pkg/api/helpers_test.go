package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/metrics"
	"github.com/ssargent/binverse/pkg/storage"
)

type note struct {
	Title string
	Stars uint8
}

func (n note) Serialize(s *binverse.Serializer) error {
	if err := s.WriteString(n.Title); err != nil {
		return err
	}
	return s.WriteUint8(n.Stars)
}

func (n *note) Deserialize(d *binverse.Deserializer) (err error) {
	if n.Title, err = d.ReadString(); err != nil {
		return err
	}
	n.Stars, err = d.ReadUint8()
	return err
}

func mustStream(t *testing.T, rev uint32, n note) []byte {
	t.Helper()
	data, err := binverse.Marshal(rev, n)
	require.NoError(t, err)
	return data
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	store    *storage.DefaultStorage
	registry *prometheus.Registry
}

func setupTestServer(t *testing.T, config ServerConfig) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	store, err := storage.Open(t.Name(), storage.Options{InMemory: true, Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := NewServer(store, config, m, nil)
	return &testEnv{
		server:   server,
		handler:  server.Routes(),
		store:    store,
		registry: reg,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}
