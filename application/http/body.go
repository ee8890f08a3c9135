package http

import "strconv"

type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyFile
)

func (k BodyKind) String() string {
	switch k {
	case BodyEmpty:
		return "empty"
	case BodyText:
		return "text"
	case BodyFile:
		return "file"
	}
	return "BodyKind(" + strconv.Itoa(int(k)) + ")"
}

// Body is a response body: nothing, a text held in memory or a file streamed from disk.
// The zero value is the empty body.
type Body struct {
	kind BodyKind
	text string
	path string
}

func EmptyBody() Body { return Body{} }

// TextBody is sent UTF-8 encoded.
func TextBody(s string) Body { return Body{kind: BodyText, text: s} }

// FileBody refers to a file read only when the response is serialized.
func FileBody(path string) Body { return Body{kind: BodyFile, path: path} }

func (b Body) Kind() BodyKind { return b.kind }

// Text is only meaningful for [BodyText].
func (b Body) Text() string { return b.text }

// Path is only meaningful for [BodyFile].
func (b Body) Path() string { return b.path }
