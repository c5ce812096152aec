package iolib

import (
	"bytes"
	"errors"
	"io"
)

// DefaultChunkSize is how many bytes UntilReader asks the underlying reader for at once.
const DefaultChunkSize = 1024

// UntilReader buffers the underlying reader so that callers can read up to a delimiter
// and then continue with plain reads without losing bytes.
type UntilReader struct {
	r io.Reader

	buf   *bytes.Buffer
	chunk []byte
}

func NewUntilReader(r io.Reader) *UntilReader {
	return NewUntilReaderSize(r, DefaultChunkSize)
}

func NewUntilReaderSize(r io.Reader, chunkSize int) *UntilReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &UntilReader{r: r, buf: bytes.NewBuffer(nil), chunk: make([]byte, chunkSize)}
}

func (ur *UntilReader) Read(p []byte) (n int, err error) {
	if ur.buf.Len() > 0 {
		n, err = ur.buf.Read(p)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}

	return ur.r.Read(p)
}

var (
	ErrZeroLenDelim  = errors.New("delim has zero length")
	ErrLimitExceeded = errors.New("delim not found within limit")
)

// ReadUntil reads until delim is found and returns the bytes including delim.
// If the underlying reader fails first, the bytes read so far are returned with the error.
func (ur *UntilReader) ReadUntil(delim []byte) ([]byte, error) {
	return ur.readUntil(delim, 0)
}

// ReadUntilLimit is ReadUntil that gives up with [ErrLimitExceeded]
// when delim is not within the first limit bytes. Zero limit means no limit.
func (ur *UntilReader) ReadUntilLimit(delim []byte, limit uint) ([]byte, error) {
	return ur.readUntil(delim, limit)
}

func (ur *UntilReader) readUntil(delim []byte, limit uint) ([]byte, error) {
	if len(delim) == 0 {
		return nil, ErrZeroLenDelim
	}

	// Bytes before scanned were already searched for delim.
	scanned := 0
	for {
		b := ur.buf.Bytes()

		// delim might have been split between the previous chunk and the new one.
		from := max(0, scanned-len(delim)+1)
		if idx := bytes.Index(b[from:], delim); idx >= 0 {
			end := from + idx + len(delim)
			if limit > 0 && uint(end) > limit {
				return nil, ErrLimitExceeded
			}

			found := bytes.Clone(b[:end])
			ur.buf.Next(end)
			return found, nil
		}

		scanned = len(b)
		if limit > 0 && uint(scanned) >= limit {
			return nil, ErrLimitExceeded
		}

		n, err := ur.r.Read(ur.chunk)
		ur.buf.Write(ur.chunk[:n])

		if err != nil {
			if n > 0 && bytes.Contains(ur.buf.Bytes()[max(0, scanned-len(delim)+1):], delim) {
				// Delim arrived along with the error. Return it first,
				// the error will show up again on the next read.
				continue
			}

			// Underlying reader returned error before delim.
			remain := bytes.Clone(ur.buf.Bytes())
			ur.buf.Reset()
			return remain, err
		}
	}
}

// Fill blocks until at least one byte is buffered.
// It returns immediately if the buffer is not empty.
func (ur *UntilReader) Fill() error {
	for ur.buf.Len() == 0 {
		n, err := ur.r.Read(ur.chunk)
		ur.buf.Write(ur.chunk[:n])
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Buffered drains and returns the bytes that were read from the underlying reader
// but not consumed yet. It never blocks.
func (ur *UntilReader) Buffered() []byte {
	if ur.buf.Len() == 0 {
		return nil
	}
	b := bytes.Clone(ur.buf.Bytes())
	ur.buf.Reset()
	return b
}

// Len returns the number of buffered bytes.
func (ur *UntilReader) Len() int { return ur.buf.Len() }
