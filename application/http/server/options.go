package server

import (
	"strconv"
	"time"

	"http-server/application/http"
)

// DefaultReceiveBufferSize is the size of the single receive done by [ReadOnce].
const DefaultReceiveBufferSize = 4096

type ReadMode int

const (
	// ReadFramed keeps reading until the header block is complete,
	// then reads exactly the declared Content-Length.
	ReadFramed ReadMode = iota
	// ReadOnce takes a single receive of ReceiveBufferSize bytes as the whole request.
	// Anything sent past it is ignored.
	ReadOnce
)

func (m ReadMode) String() string {
	switch m {
	case ReadFramed:
		return "framed"
	case ReadOnce:
		return "once"
	}
	return "ReadMode(" + strconv.Itoa(int(m)) + ")"
}

type Options struct {
	Serve ServeOptions
	Pool  PoolOptions
}

type ServeOptions struct {
	ReadMode ReadMode
	// ReceiveBufferSize is only used by [ReadOnce]. Zero means [DefaultReceiveBufferSize].
	ReceiveBufferSize uint

	// Read.Parse applies to both read modes; the limits only to [ReadFramed].
	Read http.ReadOptions

	Timeout TimeoutOptions
}

// Zero means no timeout.
type TimeoutOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PoolOptions struct {
	// Workers bounds how many connections are served at the same time.
	// Zero serves every accepted connection on its own goroutine, without limit.
	Workers uint
	// QueueLength is how many accepted connections may wait for a free worker.
	// The accept loop blocks while the queue is full.
	QueueLength uint
}
