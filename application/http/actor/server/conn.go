package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"httpd/application/http"
	"httpd/application/http/coding"
	"httpd/application/http/status"
	iolib "httpd/lib/io"
	"httpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type connState int

const (
	// waiting for the first byte of a request.
	stateIdle connState = iota
	// reading, handling or answering a request.
	stateActive
)

type conn struct {
	con transport.Conn
	r   *iolib.UntilReader

	handle  HandleFunc
	coding  *coding.Applier
	clock   clock.Clock
	metrics *metrics

	logger *slog.Logger

	opts Options

	mu      sync.Mutex
	state   connState
	closing bool
}

func (c *conn) start(ctx context.Context) {
	c.logger.Debug("accepted connection")
	c.metrics.connOpened(ctx)
	defer func() {
		c.logger.Debug("closing connection")
		if err := c.con.Close(); err != nil {
			c.logger.Error("error when closing connection", "error", err)
		}
		c.metrics.connClosed(ctx)
	}()

	err := c.serve(ctx)

	switch {
	case err == nil:
		// no-op.
	case errors.Is(err, errPeerClosed):
		c.logger.Debug("connection closed by peer")
	case errors.Is(err, ErrIdleTimeoutExceeded):
		c.logger.Info("idle timeout exceeded")
	case errors.Is(err, transport.ErrConnClosed):
		c.logger.Error("unexpected connection closure", "error", err)
	default:
		c.logger.Error("unknown error occured", "error", err)
	}
}

// shutdown makes the connection close once the current request is answered.
// An idle connection is closed right away.
func (c *conn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closing = true
	if c.state == stateIdle {
		c.con.Close()
	}
}

// setState returns false if the connection is shutting down.
func (c *conn) setState(state connState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
	return !c.closing
}

func (c *conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *conn) serve(ctx context.Context) error {
	dec := http.NewRequestDecoder(c.r, c.opts.Serve.Decode)
	enc := http.NewResponseEncoder(c.con, c.opts.Serve.Encode)

	for {
		if !c.setState(stateIdle) {
			return nil
		}

		if err := c.waitForRequest(); err != nil {
			if c.isClosing() {
				return nil
			}
			return errors.Wrap(err, "error while waiting for request")
		}

		if !c.setState(stateActive) {
			return nil
		}
		started := c.clock.Now()

		var (
			response  *http.Response
			method    string
			closeConn bool
		)

		request, err := c.readRequest(dec)
		if err != nil {
			if errors.Is(err, transport.ErrConnClosed) {
				return errors.Wrap(err, "reading request")
			}

			c.logger.Debug("invalid request", "error", err)
			response = statusErrToResponse(toStatusError(err), false)
			closeConn = true
		} else {
			method = request.Method

			hctx := &HandleContext{
				ctx:        ctx,
				remoteAddr: c.con.RemoteAddr(),
				logger:     c.logger,
				coding:     c.coding,
				request:    request,
			}
			response = hctx.doHandle(c.handle)
			closeConn = hctx.closeConn || request.WantsClose()
		}

		if c.isClosing() {
			closeConn = true
		}
		if closeConn {
			response.SetHeader("Connection", "close")
		}

		if err := c.writeResponse(response, enc); err != nil {
			return errors.Wrap(err, "writing response")
		}
		c.metrics.requestServed(ctx, method, response.Status.Code, c.clock.Since(started))

		if closeConn {
			return nil
		}
	}
}

var (
	ErrIdleTimeoutExceeded = errors.New("idle timeout exceeded")

	errPeerClosed = errors.New("connection closed by peer")
)

// waitForRequest blocks until the first bytes of the next request are buffered.
func (c *conn) waitForRequest() error {
	if c.r.Len() > 0 {
		return nil
	}

	c.con.SetReadDeadLine(c.deadline(c.opts.Serve.Timeout.IdleTimeout))

	err := c.r.Fill()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrDeadLineExceeded):
		return ErrIdleTimeoutExceeded
	case errors.Is(err, transport.ErrConnClosed):
		return errPeerClosed
	}
	return err
}

func (c *conn) readRequest(dec *http.RequestDecoder) (*http.Request, error) {
	c.con.SetReadDeadLine(c.deadline(c.opts.Serve.Timeout.ReadTimeout))

	var request http.Request
	if err := dec.Decode(&request); err != nil {
		return nil, err
	}

	return &request, nil
}

func (c *conn) writeResponse(response *http.Response, enc *http.ResponseEncoder) error {
	c.con.SetWriteDeadLine(c.deadline(c.opts.Serve.Timeout.WriteTimeout))

	// Ensures Content-Length matches the body that is written.
	response.EnsureHeadersSet()

	return enc.Encode(*response)
}

// deadline returns the zero time, meaning no deadline, for a zero timeout.
func (c *conn) deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(timeout)
}

// toStatusError converts error into [status.Error].
// It assumes that error is returned when reading request,
// so if it isn't any specific error, it will return error with [status.BadRequest].
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
func toStatusError(err error) status.Error {
	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return status.NewError(nil, status.RequestTimeout)
	}

	if errors.Is(err, http.ErrBodyTooLarge) {
		return status.NewError(err, status.ContentTooLarge)
	}

	return status.NewError(err, status.BadRequest)
}
