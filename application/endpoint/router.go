// Package endpoint routes requests to the fixed set of endpoints the server offers.
package endpoint

import (
	"strings"

	"httpd/application/http"
	"httpd/application/http/actor/server"
	"httpd/application/http/status"

	"github.com/pkg/errors"
)

const (
	contentTypeText   = "text/plain"
	contentTypeBinary = "application/octet-stream"
)

// Router answers
//
//	/               200 with an empty body
//	/user-agent     the User-Agent field of the request
//	/echo/{text}    text, compressed if the client accepts it
//	/files/{name}   GET reads and POST writes a file of the store
//
// The /files endpoint answers 404 when the router has no store.
type Router struct {
	store *Store
}

// NewRouter returns a Router. store may be nil.
func NewRouter(store *Store) *Router {
	return &Router{store: store}
}

func (rt *Router) Handle(c *server.HandleContext, request *http.Request) *http.Response {
	path := request.Path

	switch {
	case path == "/":
		return http.NewResponse(status.OK)
	case path == "/user-agent":
		return rt.userAgent(c, request)
	case strings.HasPrefix(path, "/echo"):
		return rt.echo(c, request)
	case strings.HasPrefix(path, "/files") && rt.store != nil:
		return rt.files(c, request)
	}

	return http.NewResponse(status.NotFound)
}

// suffix returns path from offset, or empty when path is shorter.
func suffix(path string, offset int) string {
	if len(path) < offset {
		return ""
	}
	return path[offset:]
}

func (rt *Router) userAgent(c *server.HandleContext, request *http.Request) *http.Response {
	ua, ok := request.Headers.Get("User-Agent")
	if !ok {
		return c.Error(status.NewError(errors.New("missing User-Agent"), status.BadRequest))
	}

	return http.NewResponse(status.OK).WithBody(contentTypeText, []byte(ua))
}

func (rt *Router) echo(c *server.HandleContext, request *http.Request) *http.Response {
	body := []byte(suffix(request.Path, len("/echo/")))
	res := http.NewResponse(status.OK).WithBody(contentTypeText, body)

	accept, _ := request.Headers.Get("Accept-Encoding")
	cod, ok := c.ContentCoding().Negotiate(accept)
	if !ok {
		return res
	}

	encoded, err := c.ContentCoding().Encode(body, cod)
	if err != nil {
		return c.Error(errors.Wrap(err, "compressing echo"))
	}

	res.Body = encoded
	res.SetHeader("Content-Encoding", string(cod))
	return res
}

func (rt *Router) files(c *server.HandleContext, request *http.Request) *http.Response {
	name := suffix(request.Path, len("/files/"))

	switch request.Method {
	case "GET":
		return rt.readFile(c, name)
	case "POST":
		return rt.writeFile(c, name, request)
	}

	res := http.NewResponse(status.MethodNotAllowed)
	res.SetHeader("Allow", "GET, POST")
	return res
}

func (rt *Router) readFile(c *server.HandleContext, name string) *http.Response {
	content, err := rt.store.Read(name)
	if err != nil {
		if errors.Is(err, ErrOutsideRoot) {
			return http.NewResponse(status.Forbidden)
		}

		c.Logger().Debug("file not readable", "name", name, "error", err)
		return http.NewResponse(status.NotFound)
	}

	return http.NewResponse(status.OK).WithBody(contentTypeBinary, content)
}

func (rt *Router) writeFile(c *server.HandleContext, name string, request *http.Request) *http.Response {
	length, ok, err := request.ContentLength()
	if !ok {
		return c.Error(status.NewError(errors.New("missing Content-Length"), status.BadRequest))
	}
	if err != nil {
		return c.Error(status.NewError(err, status.BadRequest))
	}

	if length != uint(len(request.Body)) {
		return http.NewResponse(status.BadRequest)
	}

	if err := rt.store.Write(name, request.Body); err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			return http.NewResponse(status.BadRequest)
		case errors.Is(err, ErrOutsideRoot):
			return http.NewResponse(status.Forbidden)
		}

		c.Logger().Error("failed to write file", "name", name, "error", err)
		return http.NewResponse(status.InternalServerError)
	}

	return http.NewResponse(status.Created)
}
