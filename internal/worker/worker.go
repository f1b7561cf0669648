// Package worker implements spec.md §4.3: a fixed pool member that owns
// a private set of Sessions and dispatches newly accepted connections
// into Sessions without ever blocking on a single session's lifetime.
// Grounded on the teacher's tcp_chacha20/worker.go accept-and-register
// loop shape, translated from "OS thread running a libevent loop" to
// "goroutine selecting over channels" per SPEC_FULL.md §5.
package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"tlstunnel/internal/admin"
	"tlstunnel/internal/logging"
	"tlstunnel/internal/session"
)

// Dispatched is one raw accepted connection handed from the Listener to
// a Worker, the idiomatic-Go replacement for spec.md's shared
// mutex-guarded pending-FD queue (see SPEC_FULL.md §5 and DESIGN.md).
type Dispatched struct {
	Conn net.Conn
}

// Worker is one member of the fixed pool (spec.md §4.3). Dispatch()
// only queues the connection; Run's loop then dials the destination,
// constructs the Session, registers it, and launches its goroutine,
// never blocking on a Session's I/O.
type Worker struct {
	id         int
	tlsConfig  *tls.Config
	destAddr   string
	dialTO     time.Duration
	bufferSize int
	log        logging.Logger
	metrics    *admin.Metrics

	dispatchCh chan Dispatched
	shutdownCh chan struct{}
	started    chan struct{}

	registry *registry
	wg       sync.WaitGroup
}

// Config bundles the immutable parameters every Worker in the pool
// shares.
type Config struct {
	TLSConfig         *tls.Config
	DestinationAddr   string
	DialTimeout       time.Duration
	BufferSize        int
	DispatchQueueSize int
	// Metrics is optional; when set, the Worker reports session
	// lifecycle and byte counts to it (SPEC_FULL.md §10).
	Metrics *admin.Metrics
}

// New constructs a Worker. Call Run in its own goroutine to start the
// dispatch loop; Run closes its "started" channel before entering the
// loop, which Server.Start uses to sequence pool startup synchronously
// instead of the original's 1-second launch sleep (spec.md §9, resolved
// in SPEC_FULL.md §9).
func New(id int, cfg Config, log logging.Logger) *Worker {
	queueSize := cfg.DispatchQueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Worker{
		id:         id,
		tlsConfig:  cfg.TLSConfig,
		destAddr:   cfg.DestinationAddr,
		dialTO:     cfg.DialTimeout,
		bufferSize: cfg.BufferSize,
		log:        logging.With(log, map[string]any{"worker": id}),
		metrics:    cfg.Metrics,
		dispatchCh: make(chan Dispatched, queueSize),
		shutdownCh: make(chan struct{}),
		started:    make(chan struct{}),
		registry:   newRegistry(),
	}
}

// Dispatch hands a freshly accepted connection to this Worker. Safe to
// call from the Listener goroutine; never blocks on Session I/O, only
// potentially on the dispatch queue itself being full (the intended
// admission backpressure at accept time).
func (w *Worker) Dispatch(conn net.Conn) {
	select {
	case w.dispatchCh <- Dispatched{Conn: conn}:
	case <-w.shutdownCh:
		_ = conn.Close()
	}
}

// Run is the Worker's event loop (spec.md §4.3's RUNNING state). It
// returns once Shutdown has drained every owned Session (DRAINING state).
func (w *Worker) Run(ctx context.Context) {
	close(w.started)
	for {
		select {
		case d := <-w.dispatchCh:
			w.handle(ctx, d.Conn)
		case <-w.shutdownCh:
			w.drain()
			return
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

// WaitUntilRunning blocks until Run has entered its loop, used by
// Server.Start to start Workers one at a time without a fixed sleep.
func (w *Worker) WaitUntilRunning() {
	<-w.started
}

// Shutdown signals the Worker to close every owned Session and exit its
// loop. It does not block; callers wait on Run returning (e.g. via an
// errgroup) to know draining finished.
func (w *Worker) Shutdown() {
	close(w.shutdownCh)
}

// SessionCount returns the number of Sessions currently owned by this
// Worker, exposed for the admin/metrics endpoint.
func (w *Worker) SessionCount() int {
	return w.registry.Len()
}

func (w *Worker) handle(ctx context.Context, conn net.Conn) {
	dialCtx, cancel := context.WithTimeout(ctx, w.dialTO)
	defer cancel()

	var d net.Dialer
	dstConn, err := d.DialContext(dialCtx, "tcp", w.destAddr)
	if err != nil {
		w.log.Warnf("destination dial failed for %s: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		if w.metrics != nil {
			w.metrics.SessionsFailed.Inc()
		}
		return
	}

	tlsConn := tls.Server(conn, w.tlsConfig)
	s := session.New(tlsConn, dstConn, w.bufferSize, w.log)
	handle := w.registry.Add(s)

	if w.metrics != nil {
		w.metrics.SessionsActive.Inc()
		w.metrics.SessionsTotal.Inc()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.registry.Delete(handle)
		err := s.Run(ctx)
		if w.metrics != nil {
			w.metrics.SessionsActive.Dec()
			tlsToDst, dstToTLS := s.BytesShuttled()
			w.metrics.BytesTLSToDstTotal.Add(float64(tlsToDst))
			w.metrics.BytesDstToTLSTotal.Add(float64(dstToTLS))
			if err != nil {
				w.metrics.SessionsFailed.Inc()
			}
		}
		if err != nil {
			w.log.Warnf("session %s ended: %v", s.ID(), err)
		}
	}()
}

// drain implements spec.md §4.3's DRAINING state: force-close every
// owned Session, unblocking their direction goroutines, then wait for
// all of them to finish before returning.
func (w *Worker) drain() {
	for _, s := range w.registry.Snapshot() {
		_ = s.Close()
	}
	w.wg.Wait()
}

// String supports %v logging of a Worker without exposing internals.
func (w *Worker) String() string {
	return fmt.Sprintf("worker[%d] sessions=%d", w.id, w.SessionCount())
}
