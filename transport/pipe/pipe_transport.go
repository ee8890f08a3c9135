package pipe

import (
	"context"
	"sync"

	"http-server/transport"

	"github.com/benbjohnson/clock"
)

type dialRequest struct {
	conn     *Conn
	accepted chan struct{}
}

// Transport connects dialers to listeners by name.
type Transport struct {
	mu        sync.Mutex
	listeners map[Addr]*Listener

	clock clock.Clock
}

var _ transport.ConnDialer = (*Transport)(nil)

func NewTransport(clock clock.Clock) *Transport {
	return &Transport{
		listeners: make(map[Addr]*Listener),
		clock:     clock,
	}
}

func (t *Transport) Listen(addr Addr) (*Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.listeners[addr]; ok {
		return nil, transport.ErrAddrInUse
	}

	l := &Listener{
		addr:      addr,
		transport: t,
		requests:  make(chan dialRequest),
		closed:    make(chan struct{}),
	}
	t.listeners[addr] = l

	return l, nil
}

func (t *Transport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pa, ok := addr.(Addr)
	if !ok {
		return nil, transport.ErrConnRefused
	}

	t.mu.Lock()
	l, ok := t.listeners[pa]
	t.mu.Unlock()
	if !ok {
		return nil, transport.ErrConnRefused
	}

	local, remote := NewPair("dialer", pa.Name, t.clock)
	req := dialRequest{conn: remote, accepted: make(chan struct{}, 1)}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrConnRefused
	case l.requests <- req:
	}

	// The listener took the request, so it is accepted right away.
	<-req.accepted

	return local, nil
}

type Listener struct {
	addr      Addr
	transport *Transport

	requests chan dialRequest

	closeOnce sync.Once
	closed    chan struct{}
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Addr() transport.Addr { return l.addr }

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrListenerClosed
	case req := <-l.requests:
		req.accepted <- struct{}{}
		return req.conn, nil
	}
}

func (l *Listener) Close() error {
	err := transport.ErrListenerClosed
	l.closeOnce.Do(func() {
		close(l.closed)

		l.transport.mu.Lock()
		delete(l.transport.listeners, l.addr)
		l.transport.mu.Unlock()

		err = nil
	})

	return err
}
