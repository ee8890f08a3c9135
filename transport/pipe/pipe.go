// Package pipe implements in-memory, synchronous connections.
// A write blocks until the counterpart has read every byte of it, much like [net.Pipe].
package pipe

import (
	"io"
	"sync"
	"time"

	"http-server/transport"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

func (a Addr) Network() string { return "pipe" }
func (a Addr) String() string  { return a.Name }

var _ transport.Addr = Addr{}

type Conn struct {
	stream chan []byte // bytes written by the counterpart.
	nc     chan int    // how many bytes the counterpart consumed.

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once

	rdeadline *deadline
	wdeadline *deadline

	counterpart *Conn
	addr        Addr
}

var _ transport.Conn = (*Conn)(nil)

// NewPair creates two connected ends. name1 and name2 become their local addresses.
func NewPair(name1, name2 string, clock clock.Clock) (c1, c2 *Conn) {
	c1, c2 = newConn(name1, clock), newConn(name2, clock)
	c1.counterpart, c2.counterpart = c2, c1
	return c1, c2
}

func newConn(name string, clock clock.Clock) *Conn {
	return &Conn{
		stream:    make(chan []byte),
		nc:        make(chan int),
		closed:    make(chan struct{}),
		rdeadline: newDeadline(clock),
		wdeadline: newDeadline(clock),
		addr:      Addr{Name: name},
	}
}

func (c *Conn) LocalAddr() transport.Addr  { return c.addr }
func (c *Conn) RemoteAddr() transport.Addr { return c.counterpart.addr }

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) Read(b []byte) (int, error) {
	switch {
	case isClosed(c.closed):
		return 0, transport.ErrConnClosed
	case isClosed(c.rdeadline.wait()):
		return 0, transport.ErrDeadLineExceeded
	}

	select {
	case received := <-c.stream:
		n := copy(b, received)
		c.counterpart.nc <- n
		return n, nil
	case <-c.closed:
		return 0, transport.ErrConnClosed
	case <-c.counterpart.closed:
		return 0, io.EOF
	case <-c.rdeadline.wait():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (c *Conn) Write(b []byte) (int, error) {
	switch {
	case isClosed(c.closed):
		return 0, transport.ErrConnClosed
	case isClosed(c.counterpart.closed):
		return 0, transport.ErrConnClosed
	case isClosed(c.wdeadline.wait()):
		return 0, transport.ErrDeadLineExceeded
	}

	// Concurrent writes must not interleave.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for len(b) > 0 {
		select {
		case c.counterpart.stream <- b:
			n := <-c.nc
			b = b[n:]
			written += n
		case <-c.closed:
			return written, transport.ErrConnClosed
		case <-c.counterpart.closed:
			return written, transport.ErrConnClosed
		case <-c.wdeadline.wait():
			return written, transport.ErrDeadLineExceeded
		}
	}

	return written, nil
}

func (c *Conn) SetReadDeadLine(t time.Time)  { c.rdeadline.set(t) }
func (c *Conn) SetWriteDeadLine(t time.Time) { c.wdeadline.set(t) }

// deadline is a channel which gets closed once the time set is reached.
type deadline struct {
	clock clock.Clock

	mu     sync.Mutex
	timer  *clock.Timer
	closed chan struct{}
}

func newDeadline(clock clock.Clock) *deadline {
	return &deadline{clock: clock, closed: make(chan struct{})}
}

func (d *deadline) set(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A timer which could not be stopped has closed, or is about to close, the current channel.
	fired := d.timer != nil && !d.timer.Stop()
	d.timer = nil

	if fired || isClosed(d.closed) {
		d.closed = make(chan struct{})
	}

	if t.IsZero() {
		return
	}

	closed := d.closed
	wait := d.clock.Until(t)
	if wait <= 0 {
		close(closed)
		return
	}

	d.timer = d.clock.AfterFunc(wait, func() { close(closed) })
}

func (d *deadline) wait() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
