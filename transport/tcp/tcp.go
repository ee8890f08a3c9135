// Package tcp adapts operating system TCP sockets to [transport].
package tcp

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"http-server/transport"

	"github.com/pkg/errors"
)

type ListenOptions struct {
	// ReusePort sets SO_REUSEADDR and SO_REUSEPORT on the listening socket where supported.
	ReusePort bool
}

type Listener struct {
	l net.Listener
}

var _ transport.ConnListener = (*Listener)(nil)

// Listen binds a TCP listener on addr (e.g. "localhost:4221").
func Listen(ctx context.Context, addr string, opts ListenOptions) (*Listener, error) {
	var lc net.ListenConfig
	if opts.ReusePort {
		lc.Control = reusePort
	}

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return nil, errors.Wrapf(transport.ErrAddrInUse, "listening on %s", addr)
		}
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}

	return &Listener{l: l}, nil
}

func (l *Listener) Addr() transport.Addr { return l.l.Addr() }

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrListenerClosed
		}
		return err
	}
	return nil
}

// Accept waits for the next connection.
// Cancelling ctx unblocks it but leaves the listener open.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan result, 1)
	go func() {
		c, err := l.l.Accept()
		done <- result{c, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, net.ErrClosed) {
				return nil, transport.ErrListenerClosed
			}
			return nil, errors.Wrap(res.err, "accepting connection")
		}
		return newConn(res.conn), nil
	case <-ctx.Done():
		// Unblock the pending accept before giving up.
		if tl, ok := l.l.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Now())
		}
		if res := <-done; res.conn != nil {
			_ = res.conn.Close()
		}
		if tl, ok := l.l.(*net.TCPListener); ok {
			_ = tl.SetDeadline(time.Time{})
		}
		return nil, ctx.Err()
	}
}

type Conn struct {
	c net.Conn

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Conn = (*Conn)(nil)

func newConn(c net.Conn) *Conn { return &Conn{c: c} }

// Dial connects to a TCP address. Clients and tests use it.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	return newConn(c), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, convertErr(err)
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, convertErr(err)
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = convertErr(c.c.Close()) })
	return c.closeErr
}

func (c *Conn) LocalAddr() transport.Addr  { return c.c.LocalAddr() }
func (c *Conn) RemoteAddr() transport.Addr { return c.c.RemoteAddr() }

func (c *Conn) SetReadDeadLine(t time.Time)  { _ = c.c.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadLine(t time.Time) { _ = c.c.SetWriteDeadline(t) }

// convertErr maps net errors onto transport errors. io.EOF is kept as is.
func convertErr(err error) error {
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return errors.Wrap(transport.ErrDeadLineExceeded, err.Error())
	}
	return err
}
