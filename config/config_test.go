package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"http-server/application/http"
	"http-server/application/http/server"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.ServerOptions()
	require.NoError(t, err)
	assert.Equal(t, server.ReadFramed, opts.Serve.ReadMode)
	assert.Equal(t, http.ContentLengthUnchecked, opts.Serve.Read.Parse.ContentLength)
	assert.Equal(t, 30*time.Second, opts.Serve.Timeout.ReadTimeout)
	assert.Zero(t, opts.Pool.Workers)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"addr": "0.0.0.0:8080",
		"directory": "/tmp/files",
		"server": {
			"read_mode": "once",
			"receive_buffer_size": 1024,
			"content_length": "strict",
			"read_timeout": "1m30s",
			"workers": 8,
			"queue_length": 16
		},
		"log": {"level": "debug", "format": "console"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "/tmp/files", cfg.Directory)
	// Absent fields keep their defaults.
	assert.True(t, cfg.ReusePort)
	assert.Equal(t, Duration(30*time.Second), cfg.Server.WriteTimeout)
	assert.Equal(t, Log{Level: "debug", Format: LogFormatConsole}, cfg.Log)

	opts, err := cfg.ServerOptions()
	require.NoError(t, err)
	assert.Equal(t, server.Options{
		Serve: server.ServeOptions{
			ReadMode:          server.ReadOnce,
			ReceiveBufferSize: 1024,
			Read: http.ReadOptions{
				Parse:          http.ParseOptions{ContentLength: http.ContentLengthStrict},
				MaxHeaderBytes: Default().Server.MaxHeaderBytes,
				MaxBodyBytes:   Default().Server.MaxBodyBytes,
			},
			Timeout: server.TimeoutOptions{
				ReadTimeout:  90 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
		},
		Pool: server.PoolOptions{Workers: 8, QueueLength: 16},
	}, opts)
}

func TestLoadErrors(t *testing.T) {
	testcases := []struct {
		desc    string
		content string
	}{
		{"not json", `addr = "x"`},
		{"duration not a string", `{"server": {"read_timeout": 5}}`},
		{"malformed duration", `{"server": {"read_timeout": "5 minutes"}}`},
		{"invalid value", `{"server": {"read_mode": "twice"}}`},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Addr = ""
	cfg.Server.ReadMode = "twice"
	cfg.Server.ContentLength = "lenient"
	cfg.Server.ReadTimeout = Duration(-time.Second)
	cfg.Server.QueueLength = 4
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(errors.Cause(err)), 7)

	_, err = cfg.ServerOptions()
	assert.Error(t, err)
}

func TestDurationMarshal(t *testing.T) {
	b, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	var d Duration
	require.NoError(t, d.UnmarshalJSON(b))
	assert.Equal(t, Duration(90*time.Second), d)
}
