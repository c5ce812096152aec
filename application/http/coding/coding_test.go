package coding

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ApplierTestSuite struct {
	suite.Suite

	applier *Applier
}

func TestApplierTestSuite(t *testing.T) {
	suite.Run(t, new(ApplierTestSuite))
}

func (s *ApplierTestSuite) SetupTest() {
	s.applier = NewApplier(nil)
}

func (s *ApplierTestSuite) TestNegotiate() {
	testcases := []struct {
		desc           string
		acceptEncoding string
		expected       Coding
		ok             bool
	}{
		{desc: "empty", acceptEncoding: "", ok: false},
		{desc: "gzip only", acceptEncoding: "gzip", expected: CodingGzip, ok: true},
		{desc: "list", acceptEncoding: "br, gzip, deflate", expected: CodingGzip, ok: true},
		{desc: "substring", acceptEncoding: "x-gzipped", expected: CodingGzip, ok: true},
		{desc: "unknown", acceptEncoding: "br, deflate", ok: false},
		{desc: "case sensitive", acceptEncoding: "GZIP", ok: false},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			coding, ok := s.applier.Negotiate(tc.acceptEncoding)
			s.Equal(tc.ok, ok)
			s.Equal(tc.expected, coding)
		})
	}
}

func (s *ApplierTestSuite) TestRoundTrip() {
	testcases := []struct {
		desc string
		body []byte
	}{
		{desc: "empty", body: []byte{}},
		{desc: "text", body: []byte("abc")},
		{desc: "large", body: []byte(strings.Repeat("hello world ", 10000))},
		{desc: "binary", body: []byte{0x00, 0xff, 0x1f, 0x8b, '\r', '\n'}},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			encoded, err := s.applier.Encode(tc.body, CodingGzip)
			s.Require().NoError(err)

			decoded, err := s.applier.Decode(encoded, CodingGzip)
			s.Require().NoError(err)
			s.Equal(len(tc.body), len(decoded))
			s.True(bytes.Equal(tc.body, decoded))
		})
	}
}

func (s *ApplierTestSuite) TestEncodeIsStandardGzip() {
	encoded, err := s.applier.Encode([]byte("abc"), CodingGzip)
	s.Require().NoError(err)

	gr, err := gzip.NewReader(bytes.NewReader(encoded))
	s.Require().NoError(err)
	decoded, err := io.ReadAll(gr)
	s.Require().NoError(err)
	s.Equal("abc", string(decoded))
}

func (s *ApplierTestSuite) TestUnsupported() {
	_, err := s.applier.Encode([]byte("abc"), "br")
	s.ErrorIs(err, ErrUnsupportedCoding)

	_, err = s.applier.Decode([]byte("abc"), "br")
	s.ErrorIs(err, ErrUnsupportedCoding)
}

func (s *ApplierTestSuite) TestDecodeCorrupted() {
	_, err := s.applier.Decode([]byte("not gzip at all"), CodingGzip)
	s.Error(err)
}

type identityCoder struct{ name Coding }

func (c identityCoder) Coding() Coding                             { return c.name }
func (identityCoder) NewReader(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(r), nil }
func (identityCoder) NewWriter(w io.Writer) io.WriteCloser         { return nopWriteCloser{w} }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (s *ApplierTestSuite) TestCustomCoders() {
	applier := NewApplier([]Coder{identityCoder{"identity"}, identityCoder{CodingGzip}})

	coding, ok := applier.Negotiate("gzip, identity")
	s.True(ok)
	s.Equal(Coding("identity"), coding)

	// The custom gzip replaces the built-in one.
	encoded, err := applier.Encode([]byte("abc"), CodingGzip)
	s.Require().NoError(err)
	s.Equal("abc", string(encoded))
}

func (s *ApplierTestSuite) TestGzipLevel() {
	s.Panics(func() { NewGzipCoderLevel(42) })

	applier := NewApplier([]Coder{NewGzipCoderLevel(gzip.BestSpeed)})
	encoded, err := applier.Encode([]byte("abc"), CodingGzip)
	s.Require().NoError(err)

	decoded, err := applier.Decode(encoded, CodingGzip)
	s.Require().NoError(err)
	s.Equal("abc", string(decoded))
}
