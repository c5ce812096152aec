package server

import (
	"time"

	"httpd/application/http"
	"httpd/application/http/coding"

	"go.opentelemetry.io/otel/metric"
)

type Options struct {
	Serve ServeOptions

	// MaxConns bounds the number of connections served at once.
	// The server stops accepting while the bound is reached. Zero means no bound.
	MaxConns uint

	// Meter records the server metrics. A no-op meter is used when nil.
	Meter metric.Meter

	ExtraContentCoders []coding.Coder
}

type ServeOptions struct {
	Encode http.EncodeOptions
	Decode http.DecodeOptions

	Timeout TimeoutOptions
}

// Zero value of each timeout means no timeout.
type TimeoutOptions struct {
	// IdleTimeout is how long a connection may wait for the next request.
	IdleTimeout time.Duration
	// ReadTimeout is how long reading a request may take once its first bytes arrived.
	ReadTimeout time.Duration
	// WriteTimeout is how long writing a response may take.
	WriteTimeout time.Duration
}

var DefaultOptions = Options{
	Serve: ServeOptions{
		Decode: http.DefaultDecodeOptions,
		Encode: http.DefaultEncodeOptions,
		Timeout: TimeoutOptions{
			IdleTimeout:  2 * time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	},
}
