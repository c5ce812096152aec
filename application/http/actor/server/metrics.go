package server

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "httpd/application/http/actor/server"

type metrics struct {
	connections metric.Int64Counter
	active      metric.Int64UpDownCounter
	requests    metric.Int64Counter
	duration    metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	var (
		m   metrics
		err error
	)

	m.connections, err = meter.Int64Counter("http.server.connection.count",
		metric.WithDescription("The number of accepted connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, errors.Wrap(err, "creating connection counter")
	}

	m.active, err = meter.Int64UpDownCounter("http.server.active_connections",
		metric.WithDescription("The number of connections being served"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, errors.Wrap(err, "creating active connection counter")
	}

	m.requests, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("The number of responses sent by method and status code"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, errors.Wrap(err, "creating request counter")
	}

	m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Time from the first byte of a request until its response was written"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, errors.Wrap(err, "creating request duration histogram")
	}

	return &m, nil
}

func (m *metrics) connOpened(ctx context.Context) {
	m.connections.Add(ctx, 1)
	m.active.Add(ctx, 1)
}

func (m *metrics) connClosed(ctx context.Context) {
	m.active.Add(ctx, -1)
}

// knownMethods are recorded as they are. Methods are free text, so recording
// any other value would let clients create series without bound.
var knownMethods = map[string]struct{}{
	"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"CONNECT": {}, "OPTIONS": {}, "TRACE": {}, "PATCH": {},
}

const otherMethod = "_OTHER"

// methodAttr keeps the empty method of undecodable requests.
func methodAttr(method string) string {
	if method == "" {
		return ""
	}
	if _, ok := knownMethods[method]; ok {
		return method
	}
	return otherMethod
}

// method is empty when the request could not be decoded.
func (m *metrics) requestServed(ctx context.Context, method string, code uint, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", methodAttr(method)),
		attribute.Int("http.response.status_code", int(code)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
