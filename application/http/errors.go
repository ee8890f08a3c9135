package http

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrProtocolParse is the root of every error caused by malformed request bytes.
var ErrProtocolParse = errors.New("protocol parse error")

var (
	ErrMissingHeaderTerminator = errors.WithMessage(ErrProtocolParse, "header terminator not found")
	ErrMalformedStartLine      = errors.WithMessage(ErrProtocolParse, "start line or header lines are malformed")
	ErrHeaderTooLarge          = errors.WithMessage(ErrProtocolParse, "header block exceeds limit")
	ErrInvalidContentLength    = errors.WithMessage(ErrProtocolParse, "content length is not a valid length")
	ErrBodyLengthMismatch      = errors.WithMessage(ErrProtocolParse, "body length differs from content length")
	ErrBodyTooLarge            = errors.WithMessage(ErrProtocolParse, "body exceeds limit")
)

var (
	ErrHeaderEncoding  = errors.New("header is not representable in ISO-8859-1")
	ErrUnknownBodyKind = errors.New("unknown body kind")
)

// FileAccessError reports a file body which could not be stat'd, opened or read.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file body %s %q: %s", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }
