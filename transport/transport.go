// Package transport abstracts the stream connections the http server is
// served over, so the server can run on OS sockets and on in-memory pipes.
package transport

// Addr is satisfied by [net.Addr].
type Addr interface {
	Network() string
	String() string
}
