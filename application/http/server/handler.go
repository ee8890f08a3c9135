package server

import (
	"context"
	"log/slog"

	"http-server/application/http"
	"http-server/transport"

	"github.com/pkg/errors"
)

// HandleFunc maps a request onto the response sent back.
// It is called exactly once per connection.
type HandleFunc func(c *HandleContext, request *http.Request) *http.Response

type HandleContext struct {
	ctx context.Context

	remoteAddr transport.Addr
	connID     string
	logger     *slog.Logger

	request *http.Request

	// Set by Error.
	err error
}

var ErrNilResponse = errors.New("nil response is forbidden")

func NewHandleContext(
	ctx context.Context,
	remoteAddr transport.Addr,
	connID string,
	logger *slog.Logger,
	request *http.Request,
) *HandleContext {
	return &HandleContext{
		ctx:        ctx,
		remoteAddr: remoteAddr,
		connID:     connID,
		logger:     logger,
		request:    request,
	}
}

func (c *HandleContext) doHandle(handle HandleFunc) (res *http.Response, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("handler panicked: %v", e)
		}
	}()

	response := handle(c, c.request)
	if c.err != nil {
		return nil, c.err
	}

	if response == nil {
		return nil, ErrNilResponse
	}

	return response, nil
}

func (c *HandleContext) Context() context.Context  { return c.ctx }
func (c *HandleContext) RemoteAddr() transport.Addr { return c.remoteAddr }
func (c *HandleContext) ConnID() string             { return c.connID }

// Logger is scoped to the connection.
func (c *HandleContext) Logger() *slog.Logger { return c.logger }

// Error aborts handling: a 500 response is sent and err is logged.
// Handlers return its result.
func (c *HandleContext) Error(err error) *http.Response {
	if err == nil {
		err = errors.New("using Error() with nil error is forbidden")
	}

	c.err = err
	return nil
}

// Err returns the error passed to Error, if any.
func (c *HandleContext) Err() error { return c.err }
