// Package http implements the message layer of a small HTTP/1.1 server:
// decoding requests off a connection and encoding responses onto it.
//
// The request grammar is deliberately narrow. Header lines are split on the
// first ": ", there is no line folding and no multi-valued fields, and by
// default field names are matched case-sensitively.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
