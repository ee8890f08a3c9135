// Package server accepts connections and serves one HTTP exchange on each.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"http-server/transport"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxAcceptBackoff = time.Second

type Server struct {
	l transport.ConnListener

	logger *slog.Logger
	clock  clock.Clock
	handle HandleFunc
	opts   Options

	wg sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Server {
	return &Server{
		l:      l,
		logger: logger,
		clock:  clock,
		handle: handle,
		opts:   opts,
	}
}

// Start runs Serve in the background until Close is called.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := s.Serve(ctx); err != nil {
			s.logger.Error("server stopped", "error", err)
		}
	}()
}

// Serve accepts connections until ctx is done or the listener is closed,
// then waits for every connection being served.
// An error on a single connection never stops it.
func (s *Server) Serve(ctx context.Context) error {
	dispatch, wait := s.dispatcher(ctx)
	defer wait()

	s.logger.Info("accepting connections", "addr", s.l.Addr(), "workers", s.opts.Pool.Workers)

	var backoff time.Duration
	for {
		con, err := s.l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrListenerClosed) {
				return nil
			}

			// Keep accepting; back off so a persistent failure does not spin.
			backoff = min(max(2*backoff, 5*time.Millisecond), maxAcceptBackoff)
			s.logger.Error(
				"unexpected error when accepting connection",
				"error", err.Error(),
				"retry_in", backoff,
			)

			select {
			case <-ctx.Done():
				return nil
			case <-s.clock.After(backoff):
			}
			continue
		}
		backoff = 0

		dispatch(con)
	}
}

// dispatcher returns how accepted connections are handed over to be served,
// and a function waiting for all of them to finish.
func (s *Server) dispatcher(ctx context.Context) (dispatch func(transport.Conn), wait func()) {
	workers := s.opts.Pool.Workers
	if workers == 0 {
		dispatch = func(con transport.Conn) {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.newConn(con).serve(ctx)
			}()
		}
		return dispatch, s.wg.Wait
	}

	queue := make(chan transport.Conn, s.opts.Pool.QueueLength)
	for range workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for con := range queue {
				s.newConn(con).serve(ctx)
			}
		}()
	}

	dispatch = func(con transport.Conn) {
		select {
		case queue <- con:
		case <-ctx.Done():
			_ = con.Close()
		}
	}
	wait = func() {
		close(queue)
		s.wg.Wait()
	}

	return dispatch, wait
}

func (s *Server) newConn(con transport.Conn) *conn {
	id := uuid.NewString()

	return &conn{
		con:    con,
		id:     id,
		handle: s.handle,
		clock:  s.clock,
		logger: s.logger.With("conn", con.RemoteAddr().String(), "id", id),
		opts:   s.opts.Serve,
	}
}

// Close stops a server started with Start, waits for the connections being
// served and closes the listener.
// Connections still waiting for their request are cut short; handlers and
// responses already under way run to completion.
func (s *Server) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if err := s.l.Close(); err != nil && !errors.Is(err, transport.ErrListenerClosed) {
		return errors.Wrap(err, "closing listener")
	}
	return nil
}
