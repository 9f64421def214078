// Package metrics counts binverse traffic and failures with Prometheus.
package metrics

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/binverse/pkg/binverse"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for binverse streams and the
// services built on them. A nil *Metrics records nothing.
type Metrics struct {
	registerer prometheus.Registerer

	// Stream metrics
	bytesWritten prometheus.Counter
	bytesRead    prometheus.Counter
	errorsTotal  *prometheus.CounterVec
	framesTotal  *prometheus.CounterVec

	// Storage operation metrics
	storageOperationsTotal   *prometheus.CounterVec
	storageOperationDuration *prometheus.HistogramVec

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registerer: reg,

		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "binverse_bytes_written_total",
			Help: "Total number of stream bytes written",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "binverse_bytes_read_total",
			Help: "Total number of stream bytes read",
		}),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binverse_errors_total",
				Help: "Total number of serialization errors by kind",
			},
			[]string{"kind"},
		),
		framesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binverse_frames_total",
				Help: "Total number of frames processed by operation",
			},
			[]string{"op"},
		),

		storageOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binverse_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		storageOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binverse_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binverse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binverse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "binverse_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binverse_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registered metrics. It falls back to the default
// gatherer when the registerer cannot gather.
func (m *Metrics) Handler() http.Handler {
	if m != nil {
		if g, ok := m.registerer.(prometheus.Gatherer); ok {
			return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
	return promhttp.Handler()
}

// ObserveError counts err by its binverse kind. Errors from outside the
// core count as "unknown".
func (m *Metrics) ObserveError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errorsTotal.WithLabelValues(binverse.KindOf(err).String()).Inc()
}

// ObserveFrame counts one frame of size bytes for op ("append", "read",
// "recover" and so on).
func (m *Metrics) ObserveFrame(op string, size int) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(op).Inc()
	switch op {
	case "append", "write", "create", "update":
		m.bytesWritten.Add(float64(size))
	default:
		m.bytesRead.Add(float64(size))
	}
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.storageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// Middleware records every request under its chi route pattern, so
// /api/v1/streams/{id} is one series rather than one per ID.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(r.Method)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		m.RecordHTTPRequest(r.Method, endpoint, rw.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// WrapWriter counts the bytes written through w.
func (m *Metrics) WrapWriter(w io.Writer) io.Writer {
	if m == nil {
		return w
	}
	return &countingWriter{w: w, counter: m.bytesWritten}
}

// WrapReader counts the bytes read through r. If r is an io.ByteReader the
// result is too, so a Deserializer reading from it still never over-reads.
func (m *Metrics) WrapReader(r io.Reader) io.Reader {
	if m == nil {
		return r
	}
	if br, ok := r.(io.ByteReader); ok {
		return &countingByteReader{countingReader{r: r, counter: m.bytesRead}, br}
	}
	return &countingReader{r: r, counter: m.bytesRead}
}

type countingWriter struct {
	w       io.Writer
	counter prometheus.Counter
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.counter.Add(float64(n))
	return n, err
}

type countingReader struct {
	r       io.Reader
	counter prometheus.Counter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.counter.Add(float64(n))
	return n, err
}

type countingByteReader struct {
	countingReader
	br io.ByteReader
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.br.ReadByte()
	if err == nil {
		c.counter.Inc()
	}
	return b, err
}
