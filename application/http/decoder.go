package http

import (
	"io"
	"strings"

	"httpd/application/util/rule"
	iolib "httpd/lib/io"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// CanonicalFieldNames makes field name lookups case-insensitive.
	// When false, names are matched exactly as they were sent.
	CanonicalFieldNames bool

	// MaxHeadLength limits the request line and the header section together.
	// Zero means no limit.
	MaxHeadLength uint

	// MaxBodyLength limits the advertised Content-Length. Zero means no limit.
	MaxBodyLength uint

	// SingleRead decodes whatever one read from the connection returns as a whole message,
	// without waiting for the rest of the header section or the body.
	SingleRead bool
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:   true,
	MaxHeadLength: 8 << 10,
	MaxBodyLength: 16 << 20,
}

var (
	ErrMissingCRBeforeLF    = errors.New("missing CR before LF")
	ErrHeadTooLarge         = errors.New("request head exceeds limit")
	ErrMalformedRequestLine = errors.New("request line is malformed")
	ErrMalformedFieldLine   = errors.New("field line is malformed")
	ErrBodyTooLarge         = errors.New("request body exceeds limit")
)

type RequestDecoder struct {
	r    *iolib.UntilReader
	opts DecodeOptions

	// bytes of the current head read so far.
	consumed uint
}

func NewRequestDecoder(r *iolib.UntilReader, opts DecodeOptions) *RequestDecoder {
	return &RequestDecoder{r: r, opts: opts}
}

// r MUST be a non-nil pointer
func (rd *RequestDecoder) Decode(r *Request) error {
	if rd.opts.SingleRead {
		return rd.decodeSingleRead(r)
	}

	rd.consumed = 0

	line, err := rd.decodeRequestLine()
	if err != nil {
		return errors.Wrap(err, "parsing request line")
	}

	method, path, proto, err := parseRequestLine(line)
	if err != nil {
		return err
	}

	headers := rd.newHeaders()
	if err := rd.decodeHeaders(&headers); err != nil {
		return errors.Wrap(err, "parsing headers")
	}

	body, err := rd.decodeBody(headers)
	if err != nil {
		return errors.Wrap(err, "parsing body")
	}

	*r = Request{
		Method:  method,
		Path:    path,
		Proto:   proto,
		Headers: headers,
		Body:    body,
	}

	return nil
}

func (rd *RequestDecoder) decodeSingleRead(r *Request) error {
	if err := rd.r.Fill(); err != nil {
		return errors.Wrap(err, "reading message")
	}

	parsed, err := parseRequest(rd.r.Buffered(), rd.newHeaders())
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}

func (rd *RequestDecoder) newHeaders() Headers {
	return newHeaders(nil, rd.opts.CanonicalFieldNames)
}

func (rd *RequestDecoder) readLine() (string, error) {
	limit := uint(0)
	if rd.opts.MaxHeadLength > 0 {
		if rd.consumed >= rd.opts.MaxHeadLength {
			return "", ErrHeadTooLarge
		}
		limit = rd.opts.MaxHeadLength - rd.consumed
	}

	b, err := rd.r.ReadUntilLimit([]byte{rule.LF}, limit)
	if err != nil {
		if errors.Is(err, iolib.ErrLimitExceeded) {
			return "", ErrHeadTooLarge
		}
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", errors.Wrap(err, "reading line")
	}
	rd.consumed += uint(len(b))

	b = b[:len(b)-1] // Remove LF.

	if len(b) > 0 && b[len(b)-1] == rule.CR {
		b = b[:len(b)-1]
	} else if !rd.opts.AllowSoleLF {
		return "", ErrMissingCRBeforeLF
	}

	return string(b), nil
}

func (rd *RequestDecoder) decodeRequestLine() (string, error) {
	for {
		line, err := rd.readLine()
		if err != nil {
			return "", err
		}

		// An empty line can be received before message.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
		if len(line) > 0 {
			return line, nil
		}
	}
}

func (rd *RequestDecoder) decodeHeaders(headers *Headers) error {
	for {
		line, err := rd.readLine()
		if err != nil {
			return err
		}

		if len(line) == 0 {
			// An empty line. This means that there are no more headers.
			return nil
		}

		field, err := parseField(line)
		if err != nil {
			return err
		}

		headers.Set(field.Name, field.Value)
	}
}

func (rd *RequestDecoder) decodeBody(headers Headers) ([]byte, error) {
	length, ok, err := contentLength(headers)
	if err != nil {
		return nil, err
	}

	if !ok {
		return rd.r.Buffered(), nil
	}

	if rd.opts.MaxBodyLength > 0 && length > rd.opts.MaxBodyLength {
		return nil, ErrBodyTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(rd.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(err, "reading body")
	}

	// Pipelining is not supported, so anything that came along with this message belongs to it.
	if extra := rd.r.Buffered(); len(extra) > 0 {
		body = append(body, extra...)
	}

	return body, nil
}

// ParseRequest parses one whole message held in buf.
//
// Lines are separated by LF, with an optional CR before it. The first line is the
// request line, lines up to the first empty one are header fields, and every line
// after it is body, joined back together with LF.
func ParseRequest(buf []byte) (Request, error) {
	return parseRequest(buf, NewHeaders(nil))
}

func parseRequest(buf []byte, headers Headers) (Request, error) {
	text := strings.TrimSuffix(string(buf), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	method, path, proto, err := parseRequestLine(lines[0])
	if err != nil {
		return Request{}, err
	}

	var body []string
	inBody := false
	for _, line := range lines[1:] {
		if inBody {
			body = append(body, line)
			continue
		}

		if len(line) == 0 {
			inBody = true
			continue
		}

		field, err := parseField(line)
		if err != nil {
			return Request{}, err
		}
		headers.Set(field.Name, field.Value)
	}

	return Request{
		Method:  method,
		Path:    path,
		Proto:   proto,
		Headers: headers,
		Body:    []byte(strings.Join(body, "\n")),
	}, nil
}

func parseRequestLine(line string) (method, path, proto string, err error) {
	parts := strings.FieldsFunc(line, rule.IsWhitespace)
	if len(parts) < 2 {
		return "", "", "", errors.Wrapf(ErrMalformedRequestLine, "%q", line)
	}

	if len(parts) > 2 {
		proto = parts[2]
	}

	return parts[0], parts[1], proto, nil
}

func parseField(line string) (Field, error) {
	name, value, found := strings.Cut(line, rule.FieldSeparator)
	if !found {
		return Field{}, errors.Wrapf(ErrMalformedFieldLine, "%q", line)
	}

	return Field{Name: name, Value: value}, nil
}
