// Package server wires together configuration, TLS, the worker pool,
// and the listener into spec.md §4's single running tunnel. Its
// pool-startup sequencing (start each Worker, wait for it to signal
// readiness, then start the next) replaces the original's fixed
// 1-second launch sleep (spec.md §9), grounded on the synchronous
// "Notify then wait" shape of presentation/signals/shutdown's handler
// tests and on golang.org/x/sync/errgroup's cooperative-cancellation
// idiom used across the example pack.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	"tlstunnel/internal/admin"
	"tlstunnel/internal/config"
	"tlstunnel/internal/listener"
	"tlstunnel/internal/logging"
	"tlstunnel/internal/worker"
)

// Server owns one running tunnel: a bound listener, a fixed pool of
// Workers, and the TLS configuration they share.
type Server struct {
	cfg config.Config
	log logging.Logger

	tlsConfig *tls.Config
	workers   []*worker.Worker
	ln        *listener.Listener
	metrics   *admin.Metrics

	group  *errgroup.Group
	cancel context.CancelFunc
}

// SetMetrics attaches a Metrics collector every Worker will report to.
// Call before Start; a nil or never-called SetMetrics simply disables
// metrics reporting.
func (s *Server) SetMetrics(m *admin.Metrics) {
	s.metrics = m
}

// New builds a Server from a validated Config. It loads the server
// certificate/key and, if SSL.RequireClientCert is set, the CA bundle
// used to verify client certificates (resolving spec.md's mutual-TLS
// Open Question — see SPEC_FULL.md §6.1 and DESIGN.md).
func New(cfg config.Config, log logging.Logger) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(cfg.SSL.CertificateFile, cfg.SSL.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("server: load certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.SSL.RequireClientCert {
		pool, err := loadCAPool(cfg.SSL.VerifyLocations)
		if err != nil {
			return nil, fmt.Errorf("server: load CA bundle: %w", err)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return &Server{
		cfg:       cfg,
		log:       log,
		tlsConfig: tlsConfig,
	}, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("verify_locations is required when require_client_cert is set")
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", path)
	}
	return pool, nil
}

// Start builds the worker pool, starts each worker in turn (waiting
// for it to become ready before starting the next, replacing the
// original's fixed sleep), binds the listener, and begins accepting
// connections in the background. Start returns once the listener is
// bound and every worker is running; it does not block for the
// server's lifetime — call Shutdown to stop the server and wait for it.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	group, runCtx := errgroup.WithContext(runCtx)
	s.group = group

	threadCount := s.cfg.Main.ThreadCount
	dispatchers := make([]listener.Dispatcher, 0, threadCount)
	for i := 0; i < threadCount; i++ {
		w := worker.New(i, worker.Config{
			TLSConfig:       s.tlsConfig,
			DestinationAddr: s.cfg.DestinationAddress(),
			DialTimeout:     config.DialTimeout,
			BufferSize:      s.cfg.Main.BufferSize,
			Metrics:         s.metrics,
		}, s.log)
		s.workers = append(s.workers, w)
		dispatchers = append(dispatchers, w)

		group.Go(func() error {
			w.Run(runCtx)
			return nil
		})
		w.WaitUntilRunning()
	}
	s.log.Infof("worker pool started: %d workers", threadCount)

	s.ln = listener.New(s.cfg.BindAddress(), dispatchers, s.log)
	if err := s.ln.Listen(); err != nil {
		cancel()
		return err
	}
	s.log.Infof("listening on %s, forwarding to %s", s.cfg.BindAddress(), s.cfg.DestinationAddress())

	group.Go(func() error {
		return s.ln.Serve(runCtx)
	})

	return nil
}

// Addr returns the bound listener address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Shutdown signals every component to stop and waits for the worker
// pool to drain (spec.md §4.3 DRAINING state) before returning.
func (s *Server) Shutdown() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.group.Wait()
}

// SessionCount reports the total number of active sessions across the
// whole pool, used by the admin endpoint.
func (s *Server) SessionCount() int {
	total := 0
	for _, w := range s.workers {
		total += w.SessionCount()
	}
	return total
}

// WorkerCount returns the configured pool size.
func (s *Server) WorkerCount() int {
	return len(s.workers)
}
