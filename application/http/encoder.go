package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"httpd/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF specifies wheter a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

var DefaultEncodeOptions = EncodeOptions{
	UseSoleLF: false,
}

type ResponseEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{
		bw:   bufio.NewWriter(w),
		opts: opts,
	}
}

// Encode writes the whole response and flushes it.
// Headers are written as they are, so callers should call [Response.EnsureHeadersSet] first.
func (re *ResponseEncoder) Encode(response Response) error {
	if err := re.encodeStatusLine(response); err != nil {
		return errors.Wrap(err, "encoding status line")
	}

	if err := re.encodeHeaders(response.Headers); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if _, err := re.bw.Write(response.Body); err != nil {
		return errors.Wrap(err, "writing response body")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing response")
	}

	return nil
}

func (re *ResponseEncoder) writeLine(line []byte) error {
	if _, err := re.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	term := rule.CRLF
	if re.opts.UseSoleLF {
		term = term[1:]
	}

	if _, err := re.bw.Write(term); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *ResponseEncoder) encodeStatusLine(response Response) error {
	buf := bytes.NewBuffer(nil)

	buf.Write(response.Version.Text())
	buf.WriteByte(rule.SP)
	buf.Write([]byte(strconv.FormatUint(uint64(response.Status.Code), 10)))
	buf.WriteByte(rule.SP)
	buf.Write([]byte(response.Status.ReasonPhrase))

	return re.writeLine(buf.Bytes())
}

func (re *ResponseEncoder) encodeHeaders(headers []Field) error {
	for _, field := range headers {
		if err := re.writeLine(field.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := re.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}
