package http

import (
	"io"
	"iter"
	"os"
	"strconv"
	"strings"

	"http-server/application/http/status"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const (
	// ChunkSize is how many bytes of a file body go into each chunk.
	ChunkSize = 4096

	ContentTypeOctetStream = "application/octet-stream"
)

// Response is built by a handler and serialized once it returns.
// Serializing never changes the response, so it may be serialized any number of times.
type Response struct {
	status  status.Status
	headers *Headers
	body    Body
}

// NewResponse fails with [status.ErrUnknownStatus] for codes outside the status table.
func NewResponse(code int) (*Response, error) {
	s, err := status.FromCode(code)
	if err != nil {
		return nil, err
	}

	return &Response{status: s, headers: NewHeaders()}, nil
}

// MustResponse is like [NewResponse] but panics on unknown codes.
func MustResponse(code int) *Response {
	res, err := NewResponse(code)
	if err != nil {
		panic(err)
	}
	return res
}

func (r *Response) Status() status.Status { return r.status }

// Headers returns a copy of the headers added so far.
func (r *Response) Headers() *Headers { return r.headers.Clone() }

// AddHeader appends a header, or replaces the value of an existing one in place.
// Content-Length, and Content-Type for file bodies, are overwritten on serialization.
func (r *Response) AddHeader(name, value string) {
	if r.headers == nil {
		r.headers = NewHeaders()
	}
	r.headers.Set(name, value)
}

func (r *Response) Body() Body { return r.body }

// SetBody replaces any previous body.
func (r *Response) SetBody(b Body) { r.body = b }

func (r *Response) SetText(s string)    { r.SetBody(TextBody(s)) }
func (r *Response) SetFile(path string) { r.SetBody(FileBody(path)) }

// Chunks serializes the response lazily.
// The first chunk holds the status line and the headers, the following ones the body.
// A file body is read [ChunkSize] bytes at a time; the chunk slice is only valid
// until the next iteration.
//
// Failures before the first chunk (unknown status, unreadable file, header
// encoding) are yielded with no bytes emitted.
func (r *Response) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		s, err := status.FromCode(r.status.Code)
		if err != nil {
			yield(nil, err)
			return
		}

		headers := r.headers.Clone()
		if headers == nil {
			headers = NewHeaders()
		}

		var (
			text []byte
			file *os.File
		)

		switch r.body.kind {
		case BodyEmpty:
		case BodyText:
			// An empty text is no body at all.
			if r.body.text != "" {
				text = []byte(r.body.text)
				headers.Set(HeaderContentLength, strconv.Itoa(len(text)))
			}
		case BodyFile:
			f, size, err := openFile(r.body.path)
			if err != nil {
				yield(nil, err)
				return
			}
			defer f.Close()

			file = f
			headers.Set(HeaderContentType, ContentTypeOctetStream)
			headers.Set(HeaderContentLength, strconv.FormatInt(size, 10))
		default:
			yield(nil, errors.Wrap(ErrUnknownBodyKind, r.body.kind.String()))
			return
		}

		head, err := encodeHead(s, headers)
		if err != nil {
			yield(nil, err)
			return
		}

		if !yield(head, nil) {
			return
		}

		switch {
		case len(text) > 0:
			yield(text, nil)
		case file != nil:
			streamFile(file, r.body.path, yield)
		}
	}
}

// Bytes returns the whole serialized response.
func (r *Response) Bytes() ([]byte, error) {
	var b []byte
	for chunk, err := range r.Chunks() {
		if err != nil {
			return nil, err
		}
		b = append(b, chunk...)
	}
	return b, nil
}

// WriteTo writes every chunk to w in order.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for chunk, err := range r.Chunks() {
		if err != nil {
			return total, err
		}

		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "writing chunk")
		}
	}
	return total, nil
}

func encodeHead(s status.Status, headers *Headers) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(Version + " " + s.Reason + "\r\n")
	for name, value := range headers.All() {
		sb.WriteString(name + ": " + value + "\r\n")
	}
	sb.WriteString("\r\n")

	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(sb.String()))
	if err != nil {
		return nil, errors.Wrap(ErrHeaderEncoding, err.Error())
	}
	return b, nil
}

func openFile(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &FileAccessError{Path: path, Op: "open", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &FileAccessError{Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, &FileAccessError{Path: path, Op: "stat", Err: errors.New("is a directory")}
	}

	return f, info.Size(), nil
}

func streamFile(f *os.File, path string, yield func([]byte, error) bool) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 && !yield(buf[:n], nil) {
			return
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return
		default:
			yield(nil, &FileAccessError{Path: path, Op: "read", Err: err})
			return
		}
	}
}
