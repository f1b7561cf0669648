// Package listener implements spec.md §4.4: the single raw-TCP accept
// loop that hands each accepted connection to one worker of a fixed
// pool in round-robin order. Grounded on the teacher's
// infrastructure/routing/server_routing/routing/tcp_chacha20
// HandleTransport accept loop, including its "goroutine blocks on
// ctx.Done then closes the listener to unblock Accept" idiom.
package listener

import (
	"context"
	"fmt"
	"net"

	"tlstunnel/internal/logging"
)

// Dispatcher is the subset of *worker.Worker the Listener depends on,
// kept as an interface so the round-robin logic is testable without a
// real TLS destination.
type Dispatcher interface {
	Dispatch(conn net.Conn)
}

// Listener owns the single bound TCP socket and fans accepted
// connections out across a fixed pool of Dispatchers.
type Listener struct {
	addr    string
	log     logging.Logger
	workers []Dispatcher

	ln net.Listener
}

// New constructs a Listener. workers must be non-empty; Listen binds
// the address but does not yet accept.
func New(addr string, workers []Dispatcher, log logging.Logger) *Listener {
	return &Listener{addr: addr, workers: workers, log: log}
}

// Listen binds the configured address. Separated from Serve so callers
// can detect a bind failure before committing to starting the worker
// pool.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listener: bind %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Addr returns the bound address, useful in tests that bind to ":0".
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop (spec.md §4.4's "ACCEPT" state) until ctx
// is cancelled, at which point it closes the listener to unblock
// Accept and returns nil. It never returns a non-nil error for the
// expected shutdown path.
func (l *Listener) Serve(ctx context.Context) error {
	unblocked := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = l.ln.Close()
		case <-unblocked:
		}
	}()
	defer close(unblocked)

	var next int
	for {
		conn, err := l.ln.Accept()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			l.log.Warnf("accept failed: %v", err)
			continue
		}

		w := l.workers[next%len(l.workers)]
		next++
		w.Dispatch(conn)
	}
}

// Close closes the underlying socket directly, used by callers that
// never called Serve (e.g. a failed startup sequence).
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
