package http

import (
	"testing"

	"httpd/application/http/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionText(t *testing.T) {
	assert.Equal(t, "HTTP/1.1", Version11.String())
	assert.Equal(t, []byte("HTTP/2.0"), Version{2, 0}.Text())
}

func TestHeaders(t *testing.T) {
	h := NewHeaders(map[string]string{"User-Agent": "curl"})

	v, ok := h.Get("User-Agent")
	assert.True(t, ok)
	assert.Equal(t, "curl", v)

	// Names are matched exactly.
	_, ok = h.Get("user-agent")
	assert.False(t, ok)

	h.Set("User-Agent", "wget")
	v, _ = h.Get("User-Agent")
	assert.Equal(t, "wget", v)

	h.Del("User-Agent")
	assert.Zero(t, h.Len())
}

func TestCanonicalHeaders(t *testing.T) {
	h := NewCanonicalHeaders(map[string]string{"user-agent": "curl"})

	v, ok := h.Get("USER-AGENT")
	assert.True(t, ok)
	assert.Equal(t, "curl", v)
	assert.Equal(t, map[string]string{"User-Agent": "curl"}, h.Fields())

	// Invalid tokens are kept as is.
	h.Set("bad name", "x")
	_, ok = h.Get("bad name")
	assert.True(t, ok)
}

func TestZeroHeaders(t *testing.T) {
	var h Headers
	_, ok := h.Get("A")
	assert.False(t, ok)

	h.Set("A", "b")
	v, ok := h.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestToCanonicalFieldName(t *testing.T) {
	assert.Equal(t, "Content-Length", toCanonicalFieldName("content-length"))
	assert.Equal(t, "Accept-Encoding", toCanonicalFieldName("ACCEPT-ENCODING"))
	assert.Equal(t, "X-Id", toCanonicalFieldName("x-iD"))
}

func TestRequestWantsClose(t *testing.T) {
	testcases := []struct {
		desc     string
		headers  map[string]string
		expected bool
	}{
		{desc: "no header", expected: false},
		{desc: "close", headers: map[string]string{"Connection": "close"}, expected: true},
		{desc: "keep-alive", headers: map[string]string{"Connection": "keep-alive"}, expected: false},
		{desc: "other case", headers: map[string]string{"Connection": "Close"}, expected: false},
		{desc: "token list", headers: map[string]string{"Connection": "close, upgrade"}, expected: false},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := Request{Headers: NewHeaders(tc.headers)}
			assert.Equal(t, tc.expected, r.WantsClose())
		})
	}
}

func TestRequestContentLength(t *testing.T) {
	r := Request{Headers: NewHeaders(nil)}
	_, ok, err := r.ContentLength()
	require.NoError(t, err)
	assert.False(t, ok)

	r.Headers.Set("Content-Length", "42")
	n, ok, err := r.ContentLength()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(42), n)

	r.Headers.Set("Content-Length", "-1")
	_, ok, err = r.ContentLength()
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalidContentLength)
}

func TestResponseHeaders(t *testing.T) {
	r := NewResponse(status.OK).WithBody("text/plain", []byte("hey"))
	r.SetHeader("Content-Encoding", "gzip")
	r.SetHeader("content-type", "application/octet-stream")
	r.EnsureHeadersSet()

	assert.Equal(t, []Field{
		{"Content-Type", "application/octet-stream"},
		{"Content-Encoding", "gzip"},
		{"Content-Length", "3"},
	}, r.Headers)

	v, ok := r.Header("CONTENT-LENGTH")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}
