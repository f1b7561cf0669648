// Package session implements the per-connection byte-shuttling engine:
// spec.md §4.2's state machine, redesigned around two goroutines per
// session instead of a single-threaded non-blocking reactor (see
// SPEC_FULL.md §4.2 and DESIGN.md for the rationale). It is grounded on
// the teacher's infrastructure/routing/server_routing/routing/tcp_chacha20
// worker.go handleClient/registerClient loop shape.
package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"tlstunnel/internal/logging"
	"tlstunnel/internal/ring"
)

// handshakeState mirrors spec.md §3's tls_engine states. crypto/tls hides
// the WANT_READ/WANT_WRITE negotiation inside a single blocking call, so
// this is kept purely for observability (logs, tests) rather than as a
// gate any caller needs to poll.
type handshakeState int32

const (
	handshaking handshakeState = iota
	established
)

// Session is one client-to-destination tunneled connection pair,
// spec.md §3. Exactly one Worker owns it from creation to destruction;
// it is never migrated (spec.md §3 "Ownership").
type Session struct {
	// Handle is the identifier a Worker's registry uses for O(1)
	// self-unlink, replacing the intrusive list node pointer spec.md §9
	// asks to redesign. Assigned by the Worker at registration.
	Handle uint64

	id  string
	log logging.Logger

	tlsConn *tls.Conn
	dstConn net.Conn

	bufferSize int

	hsState handshakeState

	tlsClosed int32
	dstClosed int32

	bytesTLSToDst int64
	bytesDstToTLS int64
}

// New constructs a Session around an already-accepted TLS connection and
// an already-dialed destination connection. The caller still owns
// closing both on error paths before Run's handshake completes; once Run
// is called, the Session owns their lifetime.
func New(tlsConn *tls.Conn, dstConn net.Conn, bufferSize int, log logging.Logger) *Session {
	id := newCorrelationID(tlsConn.RemoteAddr())
	return &Session{
		id:         id,
		log:        logging.With(log, map[string]any{"session": id}),
		tlsConn:    tlsConn,
		dstConn:    dstConn,
		bufferSize: bufferSize,
	}
}

// ID returns the session's log-correlation identifier.
func (s *Session) ID() string { return s.id }

// Run performs the TLS handshake (spec.md §4.2 "Handshake gating",
// collapsed into one blocking call — see SPEC_FULL.md §4.2) and then
// shuttles bytes in both directions until both sides are closed and
// both FIFOs have drained (spec.md §4.2 "Ordering and half-close
// semantics"). It returns once the Session is fully destroyed.
func (s *Session) Run(ctx context.Context) error {
	if err := s.tlsConn.HandshakeContext(ctx); err != nil {
		_ = s.tlsConn.Close()
		_ = s.dstConn.Close()
		return fmt.Errorf("session %s: tls handshake: %w", s.id, err)
	}
	atomic.StoreInt32((*int32)(&s.hsState), int32(established))
	s.log.Infof("established: tls=%s dst=%s", s.tlsConn.RemoteAddr(), s.dstConn.RemoteAddr())

	fromTLS, err := ring.New(s.bufferSize)
	if err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	fromDst, err := ring.New(s.bufferSize)
	if err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	var tlsToDstErr, dstToTLSErr error
	go func() {
		defer wg.Done()
		tlsToDstErr = s.shuttle(fromTLS, s.tlsConn, s.dstConn, &s.tlsClosed, &s.dstClosed, &s.bytesTLSToDst)
	}()
	go func() {
		defer wg.Done()
		dstToTLSErr = s.shuttle(fromDst, s.dstConn, s.tlsConn, &s.dstClosed, &s.tlsClosed, &s.bytesDstToTLS)
	}()

	wg.Wait()

	s.closeConn(s.tlsConn, &s.tlsClosed)
	s.closeConn(s.dstConn, &s.dstClosed)

	s.log.Infof("disconnected: tls=%s bytes_in=%d bytes_out=%d",
		s.tlsConn.RemoteAddr(), atomic.LoadInt64(&s.bytesTLSToDst), atomic.LoadInt64(&s.bytesDstToTLS))

	if tlsToDstErr != nil {
		return tlsToDstErr
	}
	return dstToTLSErr
}

// shuttle is one direction goroutine: it is the sole reader and writer
// of buf (spec.md §4.1 "not intrinsically thread-safe"). It reads from
// src into buf's write window, commits, then drains buf's read window to
// dst, repeating until src returns a terminal error — at which point it
// keeps draining any bytes already buffered (the half-close drain of
// spec.md §4.2) before returning. A slow dst.Write simply blocks this
// goroutine, which is the redesign's replacement for the spec's 1ms
// rearm-timer backpressure (SPEC_FULL.md §4.2): src is never read again
// until dst has drained, so buf.Used() never exceeds bufferSize.
//
// Once src is done and buf has been fully drained to dst, dst is closed
// too (spec.md §4.2 "if from_dst.used>0, register write_tls to flush;
// else close TLS side" and its mirror): this is what unblocks the
// opposite direction goroutine, which is blocked reading that same dst,
// instead of leaving it to wait on a peer that may never independently
// close. srcClosedFlag/dstClosedFlag track which of the two underlying
// conns the session has already closed, so the opposite goroutine can
// recognize a resulting read/write error as the expected consequence of
// this cascade rather than a real failure.
func (s *Session) shuttle(buf *ring.FIFO, src, dst net.Conn, srcClosedFlag, dstClosedFlag *int32, counter *int64) error {
	for {
		if buf.Free() > 0 {
			w := buf.WriteWindow()
			n, err := src.Read(w)
			if n > 0 {
				buf.CommitWrite(n)
			}
			if err != nil {
				expected := atomic.LoadInt32(srcClosedFlag) == 1
				s.closeConn(src, srcClosedFlag)
				drainErr := s.drain(buf, dst, dstClosedFlag, counter)
				if drainErr != nil {
					return s.terminalErr(src, err, drainErr, expected)
				}
				s.closeConn(dst, dstClosedFlag)
				return s.terminalErr(src, err, nil, expected)
			}
		}

		for buf.Used() > 0 {
			r := buf.ReadWindow()
			n, err := dst.Write(r)
			if n > 0 {
				buf.CommitRead(n)
				atomic.AddInt64(counter, int64(n))
			}
			if err != nil {
				if atomic.LoadInt32(dstClosedFlag) == 1 {
					return nil
				}
				return fmt.Errorf("session %s: write to %s: %w", s.id, dst.RemoteAddr(), err)
			}
		}
	}
}

// drain flushes every remaining byte in buf to dst after src has
// terminated, guaranteeing no buffered data is lost across a half-close
// (spec.md §8 "No bytes are lost across a half-close").
func (s *Session) drain(buf *ring.FIFO, dst net.Conn, dstClosedFlag *int32, counter *int64) error {
	for buf.Used() > 0 {
		r := buf.ReadWindow()
		n, err := dst.Write(r)
		if n > 0 {
			buf.CommitRead(n)
			atomic.AddInt64(counter, int64(n))
		}
		if err != nil {
			if atomic.LoadInt32(dstClosedFlag) == 1 {
				return nil
			}
			return err
		}
	}
	return nil
}

// closeConn closes conn exactly once, regardless of how many directions
// race to close it (a session's two goroutines never own conflicting
// "dst" roles, but the Worker's forced Close() and a goroutine's
// half-close cascade can still land on the same conn concurrently).
func (s *Session) closeConn(conn net.Conn, closedFlag *int32) {
	if atomic.CompareAndSwapInt32(closedFlag, 0, 1) {
		_ = conn.Close()
	}
}

// terminalErr turns src's read error into the shuttle goroutine's return
// value. expected is true when srcClosedFlag was already set before this
// read failed, meaning the opposite direction (or an external Close)
// closed src on purpose to unblock this goroutine, not a genuine failure.
func (s *Session) terminalErr(src net.Conn, readErr, drainErr error, expected bool) error {
	if drainErr != nil {
		return fmt.Errorf("session %s: drain after %s closed: %w", s.id, src.RemoteAddr(), drainErr)
	}
	if expected || errors.Is(readErr, io.EOF) {
		return nil
	}
	return fmt.Errorf("session %s: read from %s: %w", s.id, src.RemoteAddr(), readErr)
}

// BytesShuttled returns the cumulative bytes moved in each direction so
// far, safe to call concurrently with Run.
func (s *Session) BytesShuttled() (tlsToDst, dstToTLS int64) {
	return atomic.LoadInt64(&s.bytesTLSToDst), atomic.LoadInt64(&s.bytesDstToTLS)
}

// Close forcibly tears down both sockets, unblocking any in-flight Read
// so Run returns promptly. Used by Worker during shutdown drain
// (spec.md §4.3 DRAINING state).
func (s *Session) Close() error {
	s.closeConn(s.tlsConn, &s.tlsClosed)
	s.closeConn(s.dstConn, &s.dstClosed)
	return nil
}
