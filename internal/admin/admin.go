// Package admin exposes an operational HTTP surface separate from the
// tunnel listener: /healthz, /stats, and /metrics. Supplemented beyond
// spec.md's distilled scope (see SPEC_FULL.md §10) because a production
// tunnel needs this observability surface; grounded on the
// prometheus/client_golang usage shown in the example pack's
// prometheus/metrics tests (nabbar/golib) for the metric shapes, and on
// golang.org/x/net/netutil.LimitListener — used ONLY here, never on the
// tunnel listener itself, which spec.md explicitly leaves unbounded
// (see DESIGN.md).
package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"tlstunnel/internal/logging"
)

// StatsProvider is the subset of *server.Server the admin surface needs.
type StatsProvider interface {
	WorkerCount() int
	SessionCount() int
}

// Metrics holds the Prometheus collectors the tunnel updates as
// sessions come and go.
type Metrics struct {
	SessionsActive    prometheus.Gauge
	SessionsTotal     prometheus.Counter
	SessionsFailed    prometheus.Counter
	BytesTLSToDstTotal prometheus.Counter
	BytesDstToTLSTotal prometheus.Counter
}

// NewMetrics registers every tunnel metric against registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tlstunnel_sessions_active",
			Help: "Number of tunnel sessions currently established.",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tlstunnel_sessions_total",
			Help: "Total number of tunnel sessions established since startup.",
		}),
		SessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tlstunnel_sessions_failed_total",
			Help: "Total number of sessions that ended in an error: destination dial, TLS handshake, or I/O.",
		}),
		BytesTLSToDstTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tlstunnel_bytes_client_to_destination_total",
			Help: "Total bytes shuttled from TLS clients to the destination.",
		}),
		BytesDstToTLSTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tlstunnel_bytes_destination_to_client_total",
			Help: "Total bytes shuttled from the destination to TLS clients.",
		}),
	}
}

// Server is the admin HTTP surface. It is always bound to a different
// address than the tunnel listener.
type Server struct {
	addr       string
	maxConns   int
	log        logging.Logger
	stats      StatsProvider
	registry   *prometheus.Registry
	httpServer *http.Server
	ln         net.Listener
}

// Config configures the admin surface.
type Config struct {
	// Addr is the address to bind, e.g. "127.0.0.1:9090".
	Addr string
	// MaxConnections bounds concurrent admin-client connections only.
	// Zero means unbounded.
	MaxConnections int
}

// New constructs an admin Server. registry must be the same registry
// passed to NewMetrics.
func New(cfg Config, stats StatsProvider, registry *prometheus.Registry, log logging.Logger) *Server {
	s := &Server{
		addr:     cfg.Addr,
		maxConns: cfg.MaxConnections,
		log:      log,
		stats:    stats,
		registry: registry,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.httpServer = &http.Server{Handler: mux}
	return s
}

// Start binds the admin listener and serves in the background. It
// returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.ln = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Warnf("admin server: %v", err)
		}
	}()
	s.log.Infof("admin endpoint listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound admin listener address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Shutdown gracefully stops the admin HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statsResponse struct {
	Workers  int `json:"workers"`
	Sessions int `json:"sessions"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		Workers:  s.stats.WorkerCount(),
		Sessions: s.stats.SessionCount(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
