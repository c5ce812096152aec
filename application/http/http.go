package http

import (
	"strconv"
	"strings"

	"httpd/application/http/status"

	"github.com/pkg/errors"
)

type Request struct {
	Method string
	// Path is the request-target exactly as it was sent.
	Path string
	// Proto is the protocol version of the request line. It is not interpreted.
	Proto string

	Headers Headers
	Body    []byte
}

// WantsClose reports whether the client asked to close the connection after this request.
// Only the exact value "close" counts.
func (r *Request) WantsClose() bool {
	v, ok := r.Headers.Get("Connection")
	return ok && v == "close"
}

var ErrInvalidContentLength = errors.New("content length is not a valid number")

// ContentLength returns the Content-Length field as a number, if present.
func (r *Request) ContentLength() (length uint, ok bool, err error) {
	return contentLength(r.Headers)
}

func contentLength(h Headers) (uint, bool, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, true, errors.Wrapf(ErrInvalidContentLength, "%q", v)
	}

	return uint(n), true, nil
}

type Response struct {
	Version Version
	Status  status.Status

	// Headers are written in order.
	Headers []Field
	Body    []byte
}

func NewResponse(s status.Status) *Response {
	return &Response{Version: Version11, Status: s}
}

// WithBody sets the body and its Content-Type.
func (r *Response) WithBody(contentType string, body []byte) *Response {
	r.SetHeader("Content-Type", contentType)
	r.Body = body
	return r
}

func (r *Response) Header(name string) (string, bool) {
	for _, f := range r.Headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// SetHeader replaces the value of an existing field, or appends a new one.
func (r *Response) SetHeader(name, value string) {
	for i, f := range r.Headers {
		if strings.EqualFold(f.Name, name) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, Field{Name: name, Value: value})
}

// EnsureHeadersSet fills the fields derived from the message itself.
// Content-Length always matches the body that will be written.
func (r *Response) EnsureHeadersSet() {
	if r.Version == (Version{}) {
		r.Version = Version11
	}
	r.SetHeader("Content-Length", strconv.Itoa(len(r.Body)))
}
