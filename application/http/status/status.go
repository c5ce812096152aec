// Package status defines the HTTP status codes the server answers with.
package status

type Status struct {
	Code         uint
	ReasonPhrase string
}

// Successful 2XX
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.3
var (
	OK        = add(Status{200, "OK"})
	Created   = add(Status{201, "Created"})
	NoContent = add(Status{204, "No Content"})
)

// Client Error 4xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.5
var (
	BadRequest       = add(Status{400, "Bad Request"})
	Forbidden        = add(Status{403, "Forbidden"})
	NotFound         = add(Status{404, "Not Found"})
	MethodNotAllowed = add(Status{405, "Method Not Allowed"})
	RequestTimeout   = add(Status{408, "Request Timeout"})
	LengthRequired   = add(Status{411, "Length Required"})
	ContentTooLarge  = add(Status{413, "Content Too Large"})
)

// Server Error 5xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.6
var (
	InternalServerError = add(Status{500, "Internal Server Error"})
	NotImplemented      = add(Status{501, "Not Implemented"})
	ServiceUnavailable  = add(Status{503, "Service Unavailable"})
)

var sm = make(map[uint]*Status)

func add(status Status) Status {
	sm[status.Code] = &status
	return status
}

// FromCode looks up a known status. Unknown codes come back with an empty reason phrase.
func FromCode(code uint) (status Status, ok bool) {
	s, ok := sm[code]
	if !ok {
		return Status{Code: code, ReasonPhrase: ""}, false
	}

	return *s, true
}

func (s Status) IsSuccess() bool { return 200 <= s.Code && s.Code < 300 }
