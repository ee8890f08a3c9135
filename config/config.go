// Package config loads the http-server configuration file.
package config

import (
	"os"
	"time"

	"http-server/application/http"
	"http-server/application/http/server"

	json "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultAddr = "localhost:4221"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type Config struct {
	Addr string `json:"addr"`
	// Directory holds the files served under /files/. Empty disables the route.
	Directory string `json:"directory"`
	ReusePort bool   `json:"reuse_port"`

	Server Server `json:"server"`
	Log    Log    `json:"log"`
}

type Server struct {
	// ReadMode is either "framed" or "once".
	ReadMode          string `json:"read_mode"`
	ReceiveBufferSize uint   `json:"receive_buffer_size"`
	MaxHeaderBytes    uint   `json:"max_header_bytes"`
	MaxBodyBytes      uint   `json:"max_body_bytes"`
	// ContentLength is either "unchecked" or "strict".
	ContentLength string `json:"content_length"`

	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`

	Workers     uint `json:"workers"`
	QueueLength uint `json:"queue_length"`
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is a time.Duration written as a string like "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", s)
	}

	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func Default() Config {
	return Config{
		Addr:      DefaultAddr,
		ReusePort: true,
		Server: Server{
			ReadMode:          server.ReadFramed.String(),
			ReceiveBufferSize: server.DefaultReceiveBufferSize,
			MaxHeaderBytes:    64 * 1024,
			MaxBodyBytes:      10 * 1024 * 1024,
			ContentLength:     http.ContentLengthUnchecked.String(),
			ReadTimeout:       Duration(30 * time.Second),
			WriteTimeout:      Duration(30 * time.Second),
		},
		Log: Log{
			Level:  "info",
			Format: LogFormatJSON,
		},
	}
}

// Load reads the file at path over [Default] and validates the result.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}

	if err := json.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "decoding config %q", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error

	if c.Addr == "" {
		err = multierr.Append(err, errors.New("addr is empty"))
	}
	if _, e := parseReadMode(c.Server.ReadMode); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := parseContentLength(c.Server.ContentLength); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Server.ReadTimeout < 0 {
		err = multierr.Append(err, errors.New("read_timeout is negative"))
	}
	if c.Server.WriteTimeout < 0 {
		err = multierr.Append(err, errors.New("write_timeout is negative"))
	}
	if c.Server.Workers == 0 && c.Server.QueueLength > 0 {
		err = multierr.Append(err, errors.New("queue_length requires workers"))
	}
	if _, e := zapcore.ParseLevel(c.Log.Level); e != nil {
		err = multierr.Append(err, errors.Wrap(e, "log level"))
	}
	if c.Log.Format != LogFormatJSON && c.Log.Format != LogFormatConsole {
		err = multierr.Append(err, errors.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.WithMessage(err, "invalid config")
}

// ServerOptions converts a validated config.
func (c Config) ServerOptions() (server.Options, error) {
	mode, err := parseReadMode(c.Server.ReadMode)
	if err != nil {
		return server.Options{}, err
	}
	policy, err := parseContentLength(c.Server.ContentLength)
	if err != nil {
		return server.Options{}, err
	}

	return server.Options{
		Serve: server.ServeOptions{
			ReadMode:          mode,
			ReceiveBufferSize: c.Server.ReceiveBufferSize,
			Read: http.ReadOptions{
				Parse:          http.ParseOptions{ContentLength: policy},
				MaxHeaderBytes: c.Server.MaxHeaderBytes,
				MaxBodyBytes:   c.Server.MaxBodyBytes,
			},
			Timeout: server.TimeoutOptions{
				ReadTimeout:  time.Duration(c.Server.ReadTimeout),
				WriteTimeout: time.Duration(c.Server.WriteTimeout),
			},
		},
		Pool: server.PoolOptions{
			Workers:     c.Server.Workers,
			QueueLength: c.Server.QueueLength,
		},
	}, nil
}

func parseReadMode(s string) (server.ReadMode, error) {
	for _, m := range []server.ReadMode{server.ReadFramed, server.ReadOnce} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("unknown read_mode %q", s)
}

func parseContentLength(s string) (http.ContentLengthPolicy, error) {
	for _, p := range []http.ContentLengthPolicy{http.ContentLengthUnchecked, http.ContentLengthStrict} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown content_length %q", s)
}
