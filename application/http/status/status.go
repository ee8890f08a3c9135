// Package status holds the fixed set of response statuses the server can emit.
package status

import "github.com/pkg/errors"

var ErrUnknownStatus = errors.New("unknown status code")

type Status struct {
	Code int
	// Reason is written after the protocol version on the status line, verbatim.
	Reason string
}

// The reason of 201 carries no code. It is emitted as is.
var (
	OK                  = add(Status{200, "200 OK"})
	Created             = add(Status{201, "Created"})
	NotFound            = add(Status{404, "404 Not Found"})
	FailedDependency    = add(Status{424, "424 Failed Dependency"})
	InternalServerError = add(Status{500, "500 Internal Server Error"})
)

var table = make(map[int]Status)

func add(s Status) Status {
	table[s.Code] = s
	return s
}

func FromCode(code int) (Status, error) {
	s, ok := table[code]
	if !ok {
		return Status{}, errors.Wrapf(ErrUnknownStatus, "%d", code)
	}
	return s, nil
}
