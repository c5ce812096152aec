package coding

import (
	"compress/gzip"
	"io"
)

type gzipCoder struct{ level int }

// NewGzipCoder returns a gzip coder compressing with the default level.
func NewGzipCoder() Coder { return NewGzipCoderLevel(gzip.DefaultCompression) }

// NewGzipCoderLevel panics if level is not a valid gzip level.
func NewGzipCoderLevel(level int) Coder {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		panic("invalid gzip level")
	}
	return gzipCoder{level: level}
}

func (gzipCoder) Coding() Coding { return CodingGzip }

func (gzipCoder) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func (c gzipCoder) NewWriter(w io.Writer) io.WriteCloser {
	// The level was checked on construction.
	gw, _ := gzip.NewWriterLevel(w, c.level)
	return gw
}
