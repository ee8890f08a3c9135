// Package iolib holds reader helpers for delimiter-framed protocols.
package iolib

import (
	"bytes"
	"errors"
	"io"
)

const readSize = 1024

var (
	ErrZeroLenDelim  = errors.New("delim has zero length")
	ErrLimitExceeded = errors.New("delim not found within limit")
)

// UntilReader reads from an underlying reader until a delimiter shows up.
// Bytes read past the delimiter are kept and served by following reads.
type UntilReader struct {
	r   io.Reader
	buf []byte
}

func NewUntilReader(r io.Reader) *UntilReader {
	return &UntilReader{r: r}
}

// Buffered returns how many bytes were read ahead from the underlying reader.
func (ur *UntilReader) Buffered() int { return len(ur.buf) }

func (ur *UntilReader) Read(p []byte) (int, error) {
	if len(ur.buf) > 0 {
		n := copy(p, ur.buf)
		ur.buf = ur.buf[n:]
		return n, nil
	}

	return ur.r.Read(p)
}

// ReadUntil returns everything up to and including the first occurrence of delim.
// A positive limit bounds how many bytes may precede the end of delim;
// [ErrLimitExceeded] is returned once it is crossed.
// If the underlying reader fails first, the bytes read so far are returned with its error.
func (ur *UntilReader) ReadUntil(delim []byte, limit uint) ([]byte, error) {
	if len(delim) == 0 {
		return nil, ErrZeroLenDelim
	}

	var (
		searched int
		readErr  error
		tmp      = make([]byte, readSize)
	)

	for {
		if idx := bytes.Index(ur.buf[searched:], delim); idx >= 0 {
			end := searched + idx + len(delim)
			if limit > 0 && uint(end) > limit {
				return ur.drain(), ErrLimitExceeded
			}

			b := bytes.Clone(ur.buf[:end])
			ur.buf = ur.buf[end:]
			return b, nil
		}

		if limit > 0 && uint(len(ur.buf)) >= limit {
			return ur.drain(), ErrLimitExceeded
		}

		if readErr != nil {
			return ur.drain(), readErr
		}

		// The delim may straddle two reads.
		searched = max(0, len(ur.buf)-len(delim)+1)

		var n int
		n, readErr = ur.r.Read(tmp)
		ur.buf = append(ur.buf, tmp[:n]...)
	}
}

func (ur *UntilReader) drain() []byte {
	b := ur.buf
	ur.buf = nil
	return b
}
