package http

import (
	"io"
	"strings"
	"testing"

	iolib "httpd/lib/io"

	"github.com/stretchr/testify/suite"
)

type ParseRequestTestSuite struct {
	suite.Suite
}

func TestParseRequestTestSuite(t *testing.T) {
	suite.Run(t, new(ParseRequestTestSuite))
}

func (s *ParseRequestTestSuite) TestParse() {
	testcases := []struct {
		desc     string
		input    string
		expected Request
		wantErr  error
	}{
		{
			desc: "request line only",
			input: "" +
				"GET / HTTP/1.1\r\n" +
				"\r\n",
			expected: Request{Method: "GET", Path: "/", Proto: "HTTP/1.1"},
		},
		{
			desc: "headers are kept byte for byte",
			input: "" +
				"GET /user-agent HTTP/1.1\r\n" +
				"Host: localhost:4221\r\n" +
				"User-Agent: foobar/1.2.3\r\n" +
				"accept-encoding: gzip, br\r\n" +
				"\r\n",
			expected: Request{
				Method: "GET", Path: "/user-agent", Proto: "HTTP/1.1",
				Headers: NewHeaders(map[string]string{
					"Host":            "localhost:4221",
					"User-Agent":      "foobar/1.2.3",
					"accept-encoding": "gzip, br",
				}),
			},
		},
		{
			desc: "last duplicate wins",
			input: "" +
				"GET / HTTP/1.1\r\n" +
				"X-Id: 1\r\n" +
				"X-Id: 2\r\n" +
				"\r\n",
			expected: Request{
				Method: "GET", Path: "/", Proto: "HTTP/1.1",
				Headers: NewHeaders(map[string]string{"X-Id": "2"}),
			},
		},
		{
			desc: "value keeps further separators",
			input: "" +
				"GET / HTTP/1.1\r\n" +
				"X-Time: 12: 30: 00\r\n" +
				"\r\n",
			expected: Request{
				Method: "GET", Path: "/", Proto: "HTTP/1.1",
				Headers: NewHeaders(map[string]string{"X-Time": "12: 30: 00"}),
			},
		},
		{
			desc: "body lines joined with LF",
			input: "" +
				"POST /files/a HTTP/1.1\r\n" +
				"Content-Length: 11\r\n" +
				"\r\n" +
				"hello\r\nworld",
			expected: Request{
				Method: "POST", Path: "/files/a", Proto: "HTTP/1.1",
				Headers: NewHeaders(map[string]string{"Content-Length": "11"}),
				Body:    []byte("hello\nworld"),
			},
		},
		{
			desc:     "sole LF and no version",
			input:    "DELETE /x\nA: b\n\nbody",
			expected: Request{Method: "DELETE", Path: "/x", Headers: NewHeaders(map[string]string{"A": "b"}), Body: []byte("body")},
		},
		{
			desc:    "request line without path",
			input:   "GET\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "empty buffer",
			input:   "",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc: "field without separator",
			input: "" +
				"GET / HTTP/1.1\r\n" +
				"Host:localhost\r\n" +
				"\r\n",
			wantErr: ErrMalformedFieldLine,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			got, err := ParseRequest([]byte(tc.input))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)

			s.Equal(tc.expected.Method, got.Method)
			s.Equal(tc.expected.Path, got.Path)
			s.Equal(tc.expected.Proto, got.Proto)
			s.Equal(tc.expected.Headers.Fields(), got.Headers.Fields())
			s.Equal(string(tc.expected.Body), string(got.Body))
		})
	}
}

type RequestDecoderTestSuite struct {
	suite.Suite
}

func TestRequestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(RequestDecoderTestSuite))
}

func (s *RequestDecoderTestSuite) decoder(input string, opts DecodeOptions) *RequestDecoder {
	return NewRequestDecoder(iolib.NewUntilReader(strings.NewReader(input)), opts)
}

func (s *RequestDecoderTestSuite) TestDecode() {
	body := "field1=value1"

	rawRequest := "" +
		"POST /example HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		body

	var request Request
	s.Require().NoError(s.decoder(rawRequest, DefaultDecodeOptions).Decode(&request))

	s.Equal("POST", request.Method)
	s.Equal("/example", request.Path)
	s.Equal("HTTP/1.1", request.Proto)
	s.Equal(map[string]string{
		"Host":           "example.com",
		"Content-Type":   "application/x-www-form-urlencoded",
		"Content-Length": "13",
	}, request.Headers.Fields())
	s.Equal(body, string(request.Body))
}

func (s *RequestDecoderTestSuite) TestDecodeConsecutive() {
	rawRequests := "" +
		"\r\n" + // leading empty lines are skipped.
		"GET /echo/a HTTP/1.1\r\n" +
		"\r\n"

	// The reader only hands out the second message after the first was consumed,
	// just as a client waiting for the first response would behave.
	r := iolib.NewUntilReader(io.MultiReader(
		strings.NewReader(rawRequests),
		strings.NewReader("GET /echo/b HTTP/1.1\r\nConnection: close\r\n\r\n"),
	))
	rd := NewRequestDecoder(r, DefaultDecodeOptions)

	var first, second Request
	s.Require().NoError(rd.Decode(&first))
	s.Require().NoError(rd.Decode(&second))

	s.Equal("/echo/a", first.Path)
	s.False(first.WantsClose())
	s.Equal("/echo/b", second.Path)
	s.True(second.WantsClose())

	s.ErrorIs(rd.Decode(&Request{}), io.ErrUnexpectedEOF)
}

func (s *RequestDecoderTestSuite) TestDecodeBody() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "no content length",
			input:    "GET / HTTP/1.1\r\n\r\n",
			expected: "",
		},
		{
			desc:     "exact content length",
			input:    "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello",
			expected: "hello",
		},
		{
			desc:     "bytes beyond content length stay with the message",
			input:    "POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nhello",
			expected: "hello",
		},
		{
			desc:     "body without content length",
			input:    "POST / HTTP/1.1\r\n\r\nhello",
			expected: "hello",
		},
		{
			desc:    "body shorter than content length",
			input:   "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello",
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			desc:    "content length not a number",
			input:   "POST / HTTP/1.1\r\nContent-Length: five\r\n\r\nhello",
			wantErr: ErrInvalidContentLength,
		},
		{
			desc:    "content length above limit",
			opts:    DecodeOptions{MaxBodyLength: 4},
			input:   "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello",
			wantErr: ErrBodyTooLarge,
		},
		{
			desc:     "lowercase content length is ignored by default",
			input:    "POST / HTTP/1.1\r\ncontent-length: 2\r\n\r\nhello",
			expected: "hello",
		},
		{
			desc:     "lowercase content length with canonical names",
			opts:     DecodeOptions{CanonicalFieldNames: true},
			input:    "POST / HTTP/1.1\r\ncontent-length: 2\r\n\r\nhe",
			expected: "he",
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var request Request
			err := s.decoder(tc.input, tc.opts).Decode(&request)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected, string(request.Body))
		})
	}
}

func (s *RequestDecoderTestSuite) TestDecodeHead() {
	testcases := []struct {
		desc    string
		opts    DecodeOptions
		input   string
		wantErr error
	}{
		{
			desc:  "sole LF allowed",
			opts:  DecodeOptions{AllowSoleLF: true},
			input: "GET / HTTP/1.1\nHost: a\n\n",
		},
		{
			desc:    "sole LF rejected",
			input:   "GET / HTTP/1.1\nHost: a\n\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:    "head exceeding limit",
			opts:    DecodeOptions{MaxHeadLength: 20},
			input:   "GET / HTTP/1.1\r\nUser-Agent: curl/8.0\r\n\r\n",
			wantErr: ErrHeadTooLarge,
		},
		{
			desc:  "head within limit",
			opts:  DecodeOptions{MaxHeadLength: 18},
			input: "GET / HTTP/1.1\r\n\r\n",
		},
		{
			desc:    "malformed request line",
			input:   "GET\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "malformed field line",
			input:   "GET / HTTP/1.1\r\nHost localhost\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "missing empty line",
			input:   "GET / HTTP/1.1\r\nHost: a\r\n",
			wantErr: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var request Request
			err := s.decoder(tc.input, tc.opts).Decode(&request)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.NoError(err)
			s.Equal("GET", request.Method)
		})
	}
}

func (s *RequestDecoderTestSuite) TestDecodeSingleRead() {
	input := "" +
		"POST /files/a HTTP/1.1\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello" +
		strings.Repeat("x", iolib.DefaultChunkSize)

	var request Request
	err := s.decoder(input, DecodeOptions{SingleRead: true}).Decode(&request)
	s.Require().NoError(err)

	s.Equal("/files/a", request.Path)
	// Everything beyond a single read is cut off.
	head := len("POST /files/a HTTP/1.1\r\nContent-Length: 5\r\n\r\n")
	s.Len(request.Body, iolib.DefaultChunkSize-head)
}
