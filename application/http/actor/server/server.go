package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"httpd/application/http/coding"
	iolib "httpd/lib/io"
	"httpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric/noop"
)

// Server serves HTTP/1.1 on the connections accepted from a listener.
// Closing the listener is left to the caller.
type Server struct {
	l transport.ConnListener

	stopAccept context.CancelFunc
	stopConns  context.CancelFunc
	acceptDone chan struct{}
	wg         sync.WaitGroup

	mu    sync.Mutex
	conns map[*conn]struct{}
	// slots bounds concurrent connections. nil when unbounded.
	slots chan struct{}

	logger  *slog.Logger
	opts    Options
	metrics *metrics

	handle HandleFunc
	coding *coding.Applier
	clock  clock.Clock
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Server {
	m, err := newMetrics(opts.Meter)
	if err != nil {
		logger.Error("failed to register metrics, not recording them", "error", err)
		m, _ = newMetrics(noop.NewMeterProvider().Meter(meterName))
	}

	s := &Server{
		l:       l,
		conns:   make(map[*conn]struct{}),
		logger:  logger,
		opts:    opts,
		metrics: m,
		handle:  handle,
		coding:  coding.NewApplier(opts.ExtraContentCoders),
		clock:   clock,
	}

	if opts.MaxConns > 0 {
		s.slots = make(chan struct{}, opts.MaxConns)
	}

	return s
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	connCtx, connCancel := context.WithCancel(context.Background())
	s.stopAccept, s.stopConns = cancel, connCancel
	s.acceptDone = make(chan struct{})

	go func() {
		defer close(s.acceptDone)

		var delay time.Duration
		for {
			// Wait for a free slot before accepting, so that pending connections
			// stay in the listener's backlog.
			if !s.acquire(ctx) {
				return
			}

			conn, err := s.acceptConn(ctx)
			if err != nil {
				s.release()

				switch {
				case errors.Is(err, context.Canceled):
					return
				case errors.Is(err, transport.ErrConnListenerClosed):
					s.logger.Error("listener closed, not accepting anymore", "error", err.Error())
					return
				}

				// Errors like running out of file descriptors may go away.
				delay = nextAcceptDelay(delay)
				s.logger.Error(
					"unexpected error when accepting connection",
					"error", err.Error(),
					"retry_in", delay,
				)
				if !s.sleep(ctx, delay) {
					return
				}
				continue
			}
			delay = 0

			s.track(conn)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.release()
				defer s.untrack(conn)
				conn.start(connCtx)
			}()
		}
	}()
}

func (s *Server) acceptConn(ctx context.Context) (*conn, error) {
	con, err := s.l.Accept(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listening for connection")
	}

	conn := &conn{
		con:     con,
		r:       iolib.NewUntilReader(con),
		handle:  s.handle,
		coding:  s.coding,
		clock:   s.clock,
		metrics: s.metrics,
		logger:  s.logger.With("conn", con.RemoteAddr().String()),
		opts:    s.opts,
	}

	return conn, nil
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// nextAcceptDelay doubles the delay between failed accepts, up to maxAcceptDelay.
func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}
	return min(2*delay, maxAcceptDelay)
}

// sleep waits for d on the server clock. It reports false if ctx is done first.
func (s *Server) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) acquire(ctx context.Context) bool {
	if s.slots == nil {
		return ctx.Err() == nil
	}

	select {
	case s.slots <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func (s *Server) track(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) eachConn(f func(c *conn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		f(c)
	}
}

// stop stops accepting and returns once the acceptor has exited.
// It reports false if the server was never started.
func (s *Server) stop() bool {
	if s.acceptDone == nil {
		return false
	}

	s.stopAccept()
	<-s.acceptDone
	return true
}

// Shutdown stops accepting connections and closes the idle ones.
// Connections in the middle of a request are closed after their response,
// which tells the client with "Connection: close".
//
// If ctx is done before every connection is closed, the rest is closed forcibly
// and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.stop() {
		return nil
	}

	s.eachConn(func(c *conn) { c.shutdown() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
		s.stopConns()
		return nil
	case <-ctx.Done():
		s.forceClose()
		<-done
		return ctx.Err()
	}
}

// Close closes every connection immediately, without waiting for in-flight requests.
func (s *Server) Close() error {
	if !s.stop() {
		return nil
	}

	s.forceClose()
	s.wg.Wait()
	return nil
}

func (s *Server) forceClose() {
	s.stopConns()
	s.eachConn(func(c *conn) { c.con.Close() })
}
