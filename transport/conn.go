package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed       = errors.New("connection is closed")
	ErrListenerClosed   = errors.New("conn listener is closed")
	ErrDeadLineExceeded = errors.New("deadline exceeded")
	ErrAddrInUse        = errors.New("address already in use")
	ErrConnRefused      = errors.New("connection refused")
)

// Conn is a bidirectional byte stream.
// Read returns [io.EOF] once the peer has closed its side.
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
	// Accept blocks until a connection arrives, ctx is done or the listener is closed.
	// A closed listener returns [ErrListenerClosed].
	Accept(ctx context.Context) (Conn, error)
	Addr() Addr
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
