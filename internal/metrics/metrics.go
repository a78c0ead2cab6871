package metrics

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "mtf"

// Metrics holds all Prometheus metrics for the synchronization pipeline.
// Each instance owns a private registry so tests can build as many as they
// like.
type Metrics struct {
	registry *prometheus.Registry

	IndicatorComputeDur *prometheus.HistogramVec // labels: tf
	SyncDur             prometheus.Histogram
	SinkWriteDur        *prometheus.HistogramVec // labels: sink

	RunsTotal          *prometheus.CounterVec // labels: status=ok|error
	RowsSynchronized   prometheus.Counter
	RowsMissingContext prometheus.Counter
	SinkErrors         *prometheus.CounterVec // labels: sink
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		IndicatorComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "indicator_compute_duration_seconds",
			Help:      "Indicator engine latency per series",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"tf"}),
		SyncDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Multi-timeframe synchronization latency",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		SinkWriteDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_duration_seconds",
			Help:      "Sink write latency per run",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"status"}),
		RowsSynchronized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_synchronized_total",
			Help:      "Secondary rows emitted by the synchronizer",
		}),
		RowsMissingContext: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_missing_context_total",
			Help:      "Secondary rows with no containing primary bar",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed sink writes",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.IndicatorComputeDur,
		m.SyncDur,
		m.SinkWriteDur,
		m.RunsTotal,
		m.RowsSynchronized,
		m.RowsMissingContext,
		m.SinkErrors,
	)
	return m
}

// Registry exposes the private registry, e.g. for testutil.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one pipeline run.
func (m *Metrics) ObserveRun(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// HealthStatus tracks the last run and dependency probes.
type HealthStatus struct {
	mu sync.RWMutex

	LastRunAt  time.Time `json:"last_run_at"`
	LastRunOK  bool      `json:"last_run_ok"`
	LastError  string    `json:"last_error,omitempty"`
	RunsServed int       `json:"runs_served"`

	RedisConnected  bool      `json:"redis_connected"`
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// RecordRun stores the outcome of the most recent run.
func (h *HealthStatus) RecordRun(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRunAt = at
	h.LastRunOK = err == nil
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
	h.RunsServed++
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint. The service is healthy until
// a run fails; a failed last run reports 503.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	status := struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
		*HealthStatus
	}{
		Status:       "healthy",
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		HealthStatus: h,
	}
	code := http.StatusOK
	if h.RunsServed > 0 && !h.LastRunOK {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	body, err := sonic.Marshal(status)
	h.mu.RUnlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	mux  *http.ServeMux
	srv  *http.Server
	log  *zap.Logger
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		mux:  mux,
		log:  log,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handle mounts an extra handler. Call before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
