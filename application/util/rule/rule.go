// Package rule holds the character classes of the request grammar the server accepts.
package rule

import "unicode"

const (
	CR byte = '\r'
	LF byte = '\n'
	SP byte = ' '

	// FieldSeparator splits a field line into name and value.
	// Nothing else is accepted, so "Name:value" is malformed.
	FieldSeparator = ": "
)

var CRLF = []byte{CR, LF}

// IsWhitespace reports whether r separates the parts of a request line.
// Any Unicode white space counts, not only SP.
func IsWhitespace(r rune) bool { return unicode.IsSpace(r) }

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }
