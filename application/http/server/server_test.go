package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"http-server/application/http"
	"http-server/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

const internalServerError = "HTTP/1.1 500 Internal Server Error\r\n\r\n"

type ServerTestSuite struct {
	suite.Suite

	transport *pipe.Transport
	addr      pipe.Addr
	listener  *pipe.Listener
	logger    *slog.Logger
	clock     *clock.Mock
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.transport = pipe.NewTransport(s.clock)
	s.addr = pipe.Addr{Name: "server"}
	s.logger = slog.New(slog.DiscardHandler)

	l, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)
	s.listener = l
}

func (s *ServerTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *ServerTestSuite) start(handle HandleFunc, opts Options) *Server {
	server := New(s.listener, s.logger, s.clock, handle, opts)
	server.Start()
	return server
}

// roundTrip sends raw and returns everything received until the server closes the connection.
func (s *ServerTestSuite) roundTrip(raw string) string {
	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	defer conn.Close()

	// The server may stop reading before raw is consumed.
	var wg sync.WaitGroup
	defer wg.Wait()
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = conn.Write([]byte(raw))
	}()

	b, err := io.ReadAll(conn)
	s.Require().NoError(err)
	return string(b)
}

func echo(c *HandleContext, request *http.Request) *http.Response {
	res := http.MustResponse(200)
	res.AddHeader("Content-Type", "text/plain")
	res.SetText(strings.TrimPrefix(request.Path, "/echo/"))
	return res
}

func (s *ServerTestSuite) TestServe() {
	server := s.start(echo, Options{})
	defer func() { s.NoError(server.Close()) }()

	s.Equal(
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc",
		s.roundTrip("GET /echo/abc HTTP/1.1\r\n\r\n"),
	)
}

func (s *ServerTestSuite) TestServeRequestBody() {
	handle := func(c *HandleContext, request *http.Request) *http.Response {
		res := http.MustResponse(201)
		res.SetText(string(request.Body))
		return res
	}

	server := s.start(handle, Options{})
	defer func() { s.NoError(server.Close()) }()

	s.Equal(
		"HTTP/1.1 Created\r\nContent-Length: 6\r\n\r\nabc123",
		s.roundTrip("POST /files/a HTTP/1.1\r\nContent-Length: 6\r\n\r\nabc123"),
	)
}

func (s *ServerTestSuite) TestWorkerPool() {
	var (
		active, peak atomic.Int32
		release      = make(chan struct{})
	)

	handle := func(c *HandleContext, request *http.Request) *http.Response {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		return echo(c, request)
	}

	server := s.start(handle, Options{Pool: PoolOptions{Workers: 2, QueueLength: 1}})
	defer func() { s.NoError(server.Close()) }()

	const clients = 6
	responses := make(chan string, clients)
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses <- s.roundTrip(fmt.Sprintf("GET /echo/%d HTTP/1.1\r\n\r\n", i))
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(responses)

	count := 0
	for res := range responses {
		s.True(strings.HasPrefix(res, "HTTP/1.1 200 OK\r\n"), res)
		count++
	}
	s.Equal(clients, count)
	s.LessOrEqual(peak.Load(), int32(2))
}

func (s *ServerTestSuite) TestUnboundedConcurrency() {
	const clients = 5

	var arrived sync.WaitGroup
	arrived.Add(clients)
	handle := func(c *HandleContext, request *http.Request) *http.Response {
		// Every handler waits for all others, so they must run at the same time.
		arrived.Done()
		arrived.Wait()
		return echo(c, request)
	}

	server := s.start(handle, Options{})
	defer func() { s.NoError(server.Close()) }()

	var wg sync.WaitGroup
	for range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.True(strings.HasPrefix(s.roundTrip("GET /echo/x HTTP/1.1\r\n\r\n"), "HTTP/1.1 200 OK"))
		}()
	}
	wg.Wait()
}

func (s *ServerTestSuite) TestMalformedRequest() {
	called := false
	handle := func(c *HandleContext, request *http.Request) *http.Response {
		called = true
		return echo(c, request)
	}

	server := s.start(handle, Options{})
	defer func() { s.NoError(server.Close()) }()

	s.Equal(internalServerError, s.roundTrip("GET / HTTP/1.0\r\n\r\n"))
	s.False(called)
}

func (s *ServerTestSuite) TestHandlerFailures() {
	testcases := []struct {
		desc   string
		handle HandleFunc
	}{
		{
			desc: "panic",
			handle: func(c *HandleContext, request *http.Request) *http.Response {
				panic("boom")
			},
		},
		{
			desc: "error",
			handle: func(c *HandleContext, request *http.Request) *http.Response {
				return c.Error(fmt.Errorf("no luck"))
			},
		},
		{
			desc: "nil response",
			handle: func(c *HandleContext, request *http.Request) *http.Response {
				return nil
			},
		},
		{
			desc: "unknown status",
			handle: func(c *HandleContext, request *http.Request) *http.Response {
				return &http.Response{}
			},
		},
		{
			desc: "missing file",
			handle: func(c *HandleContext, request *http.Request) *http.Response {
				res := http.MustResponse(200)
				res.SetFile("/nonexistent/file")
				return res
			},
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			server := s.start(tc.handle, Options{})
			s.Equal(internalServerError, s.roundTrip("GET / HTTP/1.1\r\n\r\n"))
			s.Require().NoError(server.Close())

			// The listener is closed with the server.
			l, err := s.transport.Listen(s.addr)
			s.Require().NoError(err)
			s.listener = l
		})
	}
}

func (s *ServerTestSuite) TestReadOnce() {
	opts := Options{Serve: ServeOptions{ReadMode: ReadOnce}}

	server := s.start(echo, opts)
	defer func() { s.NoError(server.Close()) }()

	s.Equal(
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 2\r\n\r\nhi",
		s.roundTrip("GET /echo/hi HTTP/1.1\r\nUser-Agent: test\r\n\r\n"),
	)
}

func (s *ServerTestSuite) TestReadOnceTruncates() {
	opts := Options{Serve: ServeOptions{ReadMode: ReadOnce, ReceiveBufferSize: 16}}

	server := s.start(echo, opts)
	defer func() { s.NoError(server.Close()) }()

	// The header terminator lies beyond the single receive.
	s.Equal(internalServerError, s.roundTrip("GET /echo/a-rather-long-path HTTP/1.1\r\n\r\n"))
}

func (s *ServerTestSuite) TestStrictContentLength() {
	opts := Options{Serve: ServeOptions{
		ReadMode: ReadOnce,
		Read:     http.ReadOptions{Parse: http.ParseOptions{ContentLength: http.ContentLengthStrict}},
	}}

	server := s.start(echo, opts)
	defer func() { s.NoError(server.Close()) }()

	s.Equal(internalServerError, s.roundTrip("POST /echo/a HTTP/1.1\r\nContent-Length: 9\r\n\r\nabc"))
}

func (s *ServerTestSuite) TestReadTimeout() {
	opts := Options{Serve: ServeOptions{Timeout: TimeoutOptions{ReadTimeout: time.Second}}}

	server := s.start(echo, opts)
	defer func() { s.NoError(server.Close()) }()

	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// The deadline is set once the server picks the conn up.
		for {
			select {
			case <-stop:
				return
			case <-time.After(10 * time.Millisecond):
				s.clock.Add(time.Second)
			}
		}
	}()

	// Nothing is sent back when the request never arrives.
	b, err := io.ReadAll(conn)
	s.NoError(err)
	s.Empty(b)
}

func (s *ServerTestSuite) TestPeerClosesEarly() {
	server := s.start(echo, Options{})
	defer func() { s.NoError(server.Close()) }()

	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	s.Require().NoError(conn.Close())
}

func (s *ServerTestSuite) TestCloseStopsAccepting() {
	server := s.start(echo, Options{})
	s.Require().NoError(server.Close())

	_, err := s.transport.Dial(context.Background(), s.addr)
	s.Error(err)
}

func (s *ServerTestSuite) TestCloseWithIdlePeer() {
	server := s.start(echo, Options{})

	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	defer conn.Close()

	closed := make(chan error, 1)
	go func() { closed <- server.Close() }()

	select {
	case err := <-closed:
		s.NoError(err)
	case <-time.After(time.Second):
		s.FailNow("Close blocked on a peer which never sent a request")
	}

	// The connection is dropped without a reply.
	b, err := io.ReadAll(conn)
	s.NoError(err)
	s.Empty(b)
}
