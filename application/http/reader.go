package http

import (
	"io"

	iolib "http-server/lib/io"

	"github.com/pkg/errors"
)

type ReadOptions struct {
	Parse ParseOptions

	// MaxHeaderBytes bounds the start line and headers, terminator included. Zero means no limit.
	MaxHeaderBytes uint
	// MaxBodyBytes bounds the declared Content-Length. Zero means no limit.
	MaxBodyBytes uint
}

// ReadRequest reads from r until the header block is complete,
// then reads exactly as many body bytes as Content-Length declares.
//
// Unlike [ParseRequest] the body is framed by the declared length, so the
// declared value must be a valid length. If the stream ends early, the body
// holds what was received under [ContentLengthUnchecked].
func ReadRequest(r *iolib.UntilReader, opts ReadOptions) (*Request, error) {
	head, err := r.ReadUntil(headerTerminator, opts.MaxHeaderBytes)
	switch {
	case errors.Is(err, iolib.ErrLimitExceeded):
		return nil, errors.Wrapf(ErrHeaderTooLarge, "limit %d", opts.MaxHeaderBytes)
	case errors.Is(err, io.EOF):
		if len(head) == 0 {
			return nil, errors.Wrap(err, "reading header block")
		}
		return nil, ErrMissingHeaderTerminator
	case err != nil:
		return nil, errors.Wrap(err, "reading header block")
	}

	req, err := parseHead(head[:len(head)-len(crlf)])
	if err != nil {
		return nil, err
	}

	if !req.Headers.Has(HeaderContentLength) {
		return req, nil
	}

	declared, err := req.ContentLength()
	if err != nil {
		return nil, err
	}
	if opts.MaxBodyBytes > 0 && uint(declared) > opts.MaxBodyBytes {
		return nil, errors.Wrapf(ErrBodyTooLarge, "declared %d, limit %d", declared, opts.MaxBodyBytes)
	}

	// The body grows with the bytes received, never with the declared length alone.
	body, err := io.ReadAll(io.LimitReader(r, int64(declared)))
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}
	if len(body) < declared && opts.Parse.ContentLength == ContentLengthStrict {
		return nil, errors.Wrapf(ErrBodyLengthMismatch, "declared %d, got %d", declared, len(body))
	}

	req.Body = body

	return req, nil
}
