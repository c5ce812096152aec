// Package coding applies content codings to message bodies.
package coding

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type Coding string

const (
	CodingGzip Coding = "gzip"
)

type Coder interface {
	Coding() Coding
	NewReader(r io.Reader) (io.ReadCloser, error)
	NewWriter(w io.Writer) io.WriteCloser
}

// Applier encodes and decodes whole bodies with the coders it knows.
type Applier struct {
	coders map[Coding]Coder
	// order in which codings are offered to Negotiate.
	preference []Coding
}

// NewApplier returns an Applier with the built-in coders.
// customs are preferred over the built-in ones, and replace a built-in coder of the same coding.
func NewApplier(customs []Coder) *Applier {
	a := &Applier{coders: make(map[Coding]Coder)}

	for _, coder := range customs {
		a.add(coder)
	}
	a.add(NewGzipCoder())

	return a
}

func (a *Applier) add(coder Coder) {
	if _, ok := a.coders[coder.Coding()]; ok {
		return
	}
	a.coders[coder.Coding()] = coder
	a.preference = append(a.preference, coder.Coding())
}

var ErrUnsupportedCoding = errors.New("coding is unsupported")

// Negotiate picks a coding for a response, given the Accept-Encoding value of the request.
// A coding is picked when its name appears anywhere in the value.
func (a *Applier) Negotiate(acceptEncoding string) (Coding, bool) {
	if acceptEncoding == "" {
		return "", false
	}

	for _, c := range a.preference {
		if strings.Contains(acceptEncoding, string(c)) {
			return c, true
		}
	}

	return "", false
}

func (a *Applier) Encode(body []byte, coding Coding) ([]byte, error) {
	coder, ok := a.coders[coding]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCoding, "%q", coding)
	}

	var buf bytes.Buffer
	w := coder.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrapf(err, "encoding %s", coding)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "finishing %s", coding)
	}

	return buf.Bytes(), nil
}

func (a *Applier) Decode(body []byte, coding Coding) ([]byte, error) {
	coder, ok := a.coders[coding]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCoding, "%q", coding)
	}

	r, err := coder.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", coding)
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", coding)
	}

	return decoded, nil
}
