package transport

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")

	ErrConnRefused      = errors.New("connection refused")
	ErrAddrAlreadyInUse = errors.New("address already in use")
	ErrNetUnreachable   = errors.New("network is unreachable")
)

// Conn is a full-duplex byte stream.
//
// Read returns [ErrConnClosed] once either side has closed the connection
// and no more bytes are available, and [ErrDeadLineExceeded] when the
// deadline set by SetReadDeadLine passes. Write behaves the same way.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	// Zero value means no deadline.
	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() Addr
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
