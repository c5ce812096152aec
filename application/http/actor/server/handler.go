package server

import (
	"context"
	"log/slog"

	"httpd/application/http"
	"httpd/application/http/coding"
	"httpd/application/http/status"
	"httpd/transport"

	"github.com/pkg/errors"
)

// HandleFunc answers a request. It must return a non-nil response.
type HandleFunc func(c *HandleContext, request *http.Request) *http.Response

type HandleContext struct {
	ctx context.Context

	remoteAddr transport.Addr
	logger     *slog.Logger
	coding     *coding.Applier

	request *http.Request

	closeConn bool
}

func (c *HandleContext) doHandle(handle HandleFunc) (res *http.Response) {
	defer func() {
		if e := recover(); e != nil {
			c.logger.Error("handler panicked", "panic", e)
			c.closeConn = true
			res = statusErrToResponse(status.NewError(nil, status.InternalServerError), false)
		}
	}()

	res = handle(c, c.request)
	if res == nil {
		c.logger.Error("handler returned nil response")
		c.closeConn = true
		return statusErrToResponse(status.NewError(nil, status.InternalServerError), false)
	}

	return res
}

func (c *HandleContext) Context() context.Context   { return c.ctx }
func (c *HandleContext) RemoteAddr() transport.Addr { return c.remoteAddr }
func (c *HandleContext) Logger() *slog.Logger       { return c.logger }

// ContentCoding returns the content codings the server was configured with.
func (c *HandleContext) ContentCoding() *coding.Applier { return c.coding }

// Error turns err into a response and closes the connection after it is sent.
// A [status.Error] keeps its status and its cause becomes the body,
// anything else is an internal server error.
func (c *HandleContext) Error(err error) *http.Response {
	if err == nil {
		err = errors.New("handler reported nil error")
	}

	c.closeConn = true

	if statusErr := new(status.Error); errors.As(err, statusErr) {
		return statusErrToResponse(*statusErr, true)
	}

	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return statusErrToResponse(status.NewError(nil, status.RequestTimeout), false)
	}

	c.logger.Error("handler failed", "error", err)
	return statusErrToResponse(status.NewError(err, status.InternalServerError), false)
}

func statusErrToResponse(se status.Error, withBody bool) *http.Response {
	res := http.NewResponse(se.Status)

	if withBody && se.Cause() != nil {
		res.WithBody("text/plain", []byte(se.Cause().Error()))
	}

	return res
}
