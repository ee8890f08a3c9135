package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"http-server/application/http"
	"http-server/application/http/status"
	iolib "http-server/lib/io"
	"http-server/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// conn serves a single request/response exchange.
type conn struct {
	con transport.Conn
	id  string

	handle HandleFunc
	clock  clock.Clock

	logger *slog.Logger

	opts ServeOptions
}

func (c *conn) serve(ctx context.Context) {
	defer func() {
		if err := c.con.Close(); err != nil && !errors.Is(err, transport.ErrConnClosed) {
			c.logger.Error("error when closing connection", "error", err)
		}
		c.logger.Debug("connection closed")
	}()

	err := c.exchange(ctx)
	switch {
	case err == nil:
	case errors.Is(err, http.ErrProtocolParse):
		c.logger.Info("malformed request", "error", err)
	case errors.Is(err, io.EOF):
		c.logger.Debug("peer closed before sending a request")
	case errors.Is(err, transport.ErrDeadLineExceeded) && ctx.Err() != nil:
		c.logger.Debug("read cancelled by shutdown")
	case errors.Is(err, transport.ErrDeadLineExceeded):
		c.logger.Info("timeout exceeded", "error", err)
	case errors.Is(err, transport.ErrConnClosed):
		c.logger.Error("unexpected connection closure", "error", err)
	default:
		c.logger.Error("unknown error occured", "error", err)
	}
}

func (c *conn) exchange(ctx context.Context) error {
	if timeout := c.opts.Timeout.ReadTimeout; timeout > 0 {
		c.con.SetReadDeadLine(c.clock.Now().Add(timeout))
	}

	// Shutting down unblocks a read waiting on an idle peer.
	stop := context.AfterFunc(ctx, func() {
		c.con.SetReadDeadLine(c.clock.Now().Add(-time.Second))
	})
	request, err := c.readRequest()
	stop()
	if err != nil {
		if errors.Is(err, http.ErrProtocolParse) {
			if werr := c.writeResponse(failureResponse()); werr != nil {
				return errors.Wrap(werr, "writing failure response")
			}
		}
		return errors.Wrap(err, "reading request")
	}

	c.logger.Debug("request received", "method", request.Method, "path", request.Path)

	hctx := NewHandleContext(ctx, c.con.RemoteAddr(), c.id, c.logger, request)

	response, err := hctx.doHandle(c.handle)
	if err != nil {
		c.logger.Error("handler failed", "error", err, "path", request.Path)
		response = failureResponse()
	}

	if err := c.writeResponse(response); err != nil {
		return errors.Wrap(err, "writing response")
	}

	c.logger.Debug("response sent", "status", response.Status().Code)

	return nil
}

func (c *conn) readRequest() (*http.Request, error) {
	if c.opts.ReadMode == ReadOnce {
		size := c.opts.ReceiveBufferSize
		if size == 0 {
			size = DefaultReceiveBufferSize
		}

		// A single receive; whatever did not arrive with it is never read.
		buf := make([]byte, size)
		n, err := c.con.Read(buf)
		if n == 0 && err != nil {
			return nil, err
		}

		return http.ParseRequest(buf[:n], c.opts.Read.Parse)
	}

	return http.ReadRequest(iolib.NewUntilReader(c.con), c.opts.Read)
}

// writeResponse writes the chunks of response in order.
// If serialization fails before anything is written, a 500 response is written instead.
// Failures after that abandon the response halfway.
func (c *conn) writeResponse(response *http.Response) error {
	if timeout := c.opts.Timeout.WriteTimeout; timeout > 0 {
		c.con.SetWriteDeadLine(c.clock.Now().Add(timeout))
	}

	written := false
	for chunk, err := range response.Chunks() {
		if err != nil {
			if written {
				return errors.Wrap(err, "serializing response")
			}

			c.logger.Error("cannot serialize response", "error", err)
			return c.writeChunks(failureResponse())
		}

		if _, err := c.con.Write(chunk); err != nil {
			return err
		}
		written = true
	}

	return nil
}

func (c *conn) writeChunks(response *http.Response) error {
	_, err := response.WriteTo(c.con)
	return err
}

func failureResponse() *http.Response {
	return http.MustResponse(status.InternalServerError.Code)
}
