// Package router maps requests onto responses for the http-server binary.
package router

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"http-server/application/http"
	"http-server/application/http/server"
	"http-server/application/http/status"

	"github.com/dchest/uniuri"
	"github.com/pkg/errors"
)

const (
	echoPrefix  = "/echo/"
	filesPrefix = "/files/"

	userAgentPath   = "/user-agent"
	headerUserAgent = "User-Agent"

	contentTypeText = "text/plain"
)

type Router struct {
	// dir holds the files served under /files/. Empty disables the route.
	dir    string
	logger *slog.Logger
}

var _ server.HandleFunc = (*Router)(nil).Handle

func New(dir string, logger *slog.Logger) *Router {
	return &Router{dir: dir, logger: logger}
}

func (r *Router) Handle(c *server.HandleContext, request *http.Request) *http.Response {
	path := request.Path

	switch {
	case path == "/":
		return http.MustResponse(status.OK.Code)

	case strings.HasPrefix(path, echoPrefix):
		return text(strings.ReplaceAll(path, echoPrefix, ""))

	case path == userAgentPath:
		return text(request.Header(headerUserAgent))

	case strings.HasPrefix(path, filesPrefix):
		return r.files(c, request, strings.TrimPrefix(path, filesPrefix))
	}

	return http.MustResponse(status.NotFound.Code)
}

func (r *Router) files(c *server.HandleContext, request *http.Request, name string) *http.Response {
	if r.dir == "" {
		return http.MustResponse(status.FailedDependency.Code)
	}

	// Rejects empty, absolute and parent-escaping names.
	if !filepath.IsLocal(name) {
		c.Logger().Info("file name escapes directory", "name", name)
		return http.MustResponse(status.NotFound.Code)
	}
	path := filepath.Join(r.dir, name)

	switch request.Method {
	case "GET":
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			if err != nil && !os.IsNotExist(err) {
				c.Logger().Warn("cannot stat file", "path", path, "error", err)
			}
			return http.MustResponse(status.NotFound.Code)
		}

		res := http.MustResponse(status.OK.Code)
		res.SetFile(path)
		return res

	case "POST":
		if err := writeFile(path, request.Body); err != nil {
			return c.Error(err)
		}

		r.logger.Info("file written", "path", path, "size", len(request.Body))
		return http.MustResponse(status.Created.Code)
	}

	return http.MustResponse(status.NotFound.Code)
}

func text(s string) *http.Response {
	res := http.MustResponse(status.OK.Code)
	res.AddHeader(http.HeaderContentType, contentTypeText)
	res.SetText(s)
	return res
}

// writeFile replaces path with content atomically.
// Content lands in a sibling temporary file which is then renamed over path.
func writeFile(path string, content []byte) (err error) {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uniuri.New())

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &http.FileAccessError{Path: path, Op: "create", Err: err}
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return &http.FileAccessError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &http.FileAccessError{Path: path, Op: "write", Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "renaming %q", tmp)
	}

	return nil
}
