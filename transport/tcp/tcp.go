// Package tcp adapts TCP sockets of the operating system to the transport interfaces.
package tcp

import (
	"context"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"httpd/transport"

	"github.com/pkg/errors"
)

// Any time in the past unblocks pending calls when used as a deadline.
var aLongTimeAgo = time.Unix(1, 0)

type Listener struct {
	l *net.TCPListener
}

var _ transport.ConnListener = (*Listener)(nil)

// Listen listens on addr, "host:port". Port 0 picks a free port.
func Listen(addr string) (*Listener, error) {
	la, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", addr)
	}

	l, err := net.ListenTCP("tcp", la)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrapf(transport.ErrAddrAlreadyInUse, "%q", addr)
		}
		return nil, errors.Wrapf(err, "listening on %q", addr)
	}

	return &Listener{l: l}, nil
}

func (l *Listener) Addr() transport.Addr { return l.l.Addr() }

// Accept waits for the next connection until ctx is done.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.l.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		l.l.SetDeadline(aLongTimeAgo)
	})
	defer stop()

	c, err := l.l.AcceptTCP()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrConnListenerClosed
		}
		return nil, errors.Wrap(err, "accepting connection")
	}

	return &conn{c: c}, nil
}

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return err
	}
	return nil
}

type Dialer struct {
	net.Dialer
}

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	c, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		switch {
		case errors.Is(err, syscall.ECONNREFUSED):
			return nil, errors.Wrapf(transport.ErrConnRefused, "%q", addr)
		case errors.Is(err, syscall.ENETUNREACH):
			return nil, errors.Wrapf(transport.ErrNetUnreachable, "%q", addr)
		}
		return nil, errors.Wrapf(err, "dialing %q", addr)
	}

	return &conn{c: c.(*net.TCPConn)}, nil
}

// Dial connects to addr, "host:port".
func Dial(ctx context.Context, addr string) (transport.Conn, error) {
	var d Dialer
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", addr)
	}
	return d.Dial(ctx, a)
}

type conn struct {
	c *net.TCPConn
}

var _ transport.Conn = (*conn)(nil)

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, mapErr(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, mapErr(err)
}

func (c *conn) Close() error {
	if err := c.c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *conn) LocalAddr() transport.Addr  { return c.c.LocalAddr() }
func (c *conn) RemoteAddr() transport.Addr { return c.c.RemoteAddr() }

func (c *conn) SetReadDeadLine(t time.Time)  { c.c.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { c.c.SetWriteDeadline(t) }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return errors.Wrap(transport.ErrConnClosed, err.Error())
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrap(transport.ErrDeadLineExceeded, err.Error())
	}
	return err
}
