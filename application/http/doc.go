// Package http implements a minimal subset of Hypertext Transfer Protocol 1.1.
// One request and one response are exchanged per connection.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
