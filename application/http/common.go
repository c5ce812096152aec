package http

import (
	"bytes"
	"strconv"

	"httpd/application/util/rule"
)

// [Major, Minor]
type Version [2]uint

var Version11 = Version{1, 1}

func (ver Version) Text() []byte {
	buf := bytes.NewBuffer(nil)
	buf.Write([]byte("HTTP/"))
	buf.Write([]byte(strconv.FormatUint(uint64(ver[0]), 10)))
	buf.Write([]byte{'.'})
	buf.Write([]byte(strconv.FormatUint(uint64(ver[1]), 10)))
	return buf.Bytes()
}

func (ver Version) String() string { return string(ver.Text()) }

type Field struct{ Name, Value string }

func (f Field) Text() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(f.Name)+len(f.Value)+2))
	buf.WriteString(f.Name)
	buf.WriteString(rule.FieldSeparator)
	buf.WriteString(f.Value)
	return buf.Bytes()
}

// Headers maps a field name to its value. The last value set for a name wins.
//
// Names are compared exactly as they are given unless the container was
// created with [NewCanonicalHeaders], which normalizes valid tokens
// (e.g. "content-length" and "Content-Length" are the same field).
type Headers struct {
	underlying map[string]string
	canonical  bool
}

func NewHeaders(initial map[string]string) Headers {
	return newHeaders(initial, false)
}

func NewCanonicalHeaders(initial map[string]string) Headers {
	return newHeaders(initial, true)
}

func newHeaders(initial map[string]string, canonical bool) Headers {
	h := Headers{
		underlying: make(map[string]string, len(initial)),
		canonical:  canonical,
	}
	for k, v := range initial {
		h.Set(k, v)
	}
	return h
}

func (h *Headers) Get(key string) (value string, ok bool) {
	value, ok = h.underlying[h.key(key)]
	return
}

func (h *Headers) Set(key, value string) {
	if h.underlying == nil {
		h.underlying = make(map[string]string)
	}
	h.underlying[h.key(key)] = value
}

func (h *Headers) Del(key string) { delete(h.underlying, h.key(key)) }
func (h *Headers) Len() int       { return len(h.underlying) }

// Fields returns a copy of all the key-values in the header.
func (h *Headers) Fields() map[string]string {
	clone := make(map[string]string, len(h.underlying))
	for k, v := range h.underlying {
		clone[k] = v
	}
	return clone
}

func (h *Headers) key(s string) string {
	if h.canonical && rule.IsValidToken(s) {
		s = toCanonicalFieldName(s)
	}
	return s
}

// This only works for valid token.
func toCanonicalFieldName(s string) string {
	const capitalDiff = 'a' - 'A'
	b := []byte(s)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}
