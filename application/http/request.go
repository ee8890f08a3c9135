package http

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const (
	Version = "HTTP/1.1"

	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
)

var (
	crlf             = []byte("\r\n")
	headerTerminator = []byte("\r\n\r\n")
)

// headPattern matches the start line followed by zero or more header lines.
// Compiled once; regexp is safe for concurrent use.
// The separators also accept NEL and NBSP, the whitespace of the Latin-1 range.
var headPattern = regexp.MustCompile(
	`^([a-zA-Z]+)[\s\x{85}\x{a0}](.+)[\s\x{85}\x{a0}](HTTP/1\.1)\r\n` + // method, target, version
		`((?:.+:.+\r\n)*)`, // header lines
)

type Request struct {
	Method string
	// Path is the request target exactly as received. It is never decoded.
	Path    string
	Version string

	// Headers is nil when the request carried no header lines.
	Headers *Headers

	// Body is only set when a header named exactly "Content-Length" exists.
	Body []byte
}

// ContentLengthPolicy decides whether a declared Content-Length is checked
// against the body bytes received.
type ContentLengthPolicy int

const (
	// ContentLengthUnchecked takes whatever follows the header block as the body.
	ContentLengthUnchecked ContentLengthPolicy = iota
	// ContentLengthStrict rejects bodies whose length differs from the declared value.
	ContentLengthStrict
)

func (p ContentLengthPolicy) String() string {
	switch p {
	case ContentLengthUnchecked:
		return "unchecked"
	case ContentLengthStrict:
		return "strict"
	}
	return "ContentLengthPolicy(" + strconv.Itoa(int(p)) + ")"
}

type ParseOptions struct {
	ContentLength ContentLengthPolicy
}

// ParseRequest parses a request which must be wholly contained in b.
// Everything after the header block is taken as the body when a Content-Length header is present.
func ParseRequest(b []byte, opts ParseOptions) (*Request, error) {
	idx := bytes.Index(b, headerTerminator)
	if idx < 0 {
		return nil, ErrMissingHeaderTerminator
	}

	// Keep the CRLF ending the last line.
	req, err := parseHead(b[:idx+len(crlf)])
	if err != nil {
		return nil, err
	}

	if !req.Headers.Has(HeaderContentLength) {
		return req, nil
	}

	req.Body = b[idx+len(headerTerminator):]

	if opts.ContentLength == ContentLengthStrict {
		declared, err := req.ContentLength()
		if err != nil {
			return nil, err
		}
		if declared != len(req.Body) {
			return nil, errors.Wrapf(ErrBodyLengthMismatch, "declared %d, got %d", declared, len(req.Body))
		}
	}

	return req, nil
}

// parseHead parses the start line and the header lines.
// head must end with the CRLF of its last line, without the empty line.
func parseHead(head []byte) (*Request, error) {
	// ISO-8859-1 maps every byte to a character, so any header byte decodes.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(head)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedStartLine, err.Error())
	}

	m := headPattern.FindSubmatch(decoded)
	if m == nil {
		return nil, ErrMalformedStartLine
	}

	req := &Request{
		Method:  string(m[1]),
		Path:    string(m[2]),
		Version: string(m[3]),
	}

	if len(m[4]) > 0 {
		req.Headers = parseHeaderLines(string(m[4]))
	}

	return req, nil
}

func parseHeaderLines(lines string) *Headers {
	h := NewHeaders()
	for _, line := range strings.Split(strings.TrimSpace(lines), "\r\n") {
		name, value, _ := strings.Cut(line, ":")
		h.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h
}

// ContentLength returns the declared Content-Length as a byte count.
func (r *Request) ContentLength() (int, error) {
	v, ok := r.Headers.Get(HeaderContentLength)
	if !ok {
		return 0, errors.Wrap(ErrInvalidContentLength, "not declared")
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrInvalidContentLength, "%q", v)
	}

	return n, nil
}

// Header is a shorthand for r.Headers.Get(name) ignoring presence.
func (r *Request) Header(name string) string {
	v, _ := r.Headers.Get(name)
	return v
}
