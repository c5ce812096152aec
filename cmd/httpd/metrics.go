package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricsLogger collects the metrics of the process and writes them to the log.
type metricsLogger struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	logger   *slog.Logger
}

// newMetricsLogger installs a meter provider as the global one.
func newMetricsLogger(logger *slog.Logger) *metricsLogger {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	return &metricsLogger{
		reader:   reader,
		provider: provider,
		logger:   logger.With("component", "metrics"),
	}
}

// run logs metrics every interval until ctx is done.
func (ml *metricsLogger) run(ctx context.Context, clk clock.Clock, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ml.log(ctx); err != nil {
				ml.logger.Error("failed to collect metrics", "error", err)
			}
		}
	}
}

func (ml *metricsLogger) log(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := ml.reader.Collect(ctx, &rm); err != nil {
		return errors.Wrap(err, "collecting metrics")
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					ml.logger.Info(m.Name, append(attrs(dp.Attributes.ToSlice()), "value", dp.Value)...)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					ml.logger.Info(m.Name, append(attrs(dp.Attributes.ToSlice()),
						"count", dp.Count,
						"sum", dp.Sum,
					)...)
				}
			}
		}
	}

	return nil
}

// shutdown logs the final values and stops the provider.
func (ml *metricsLogger) shutdown(ctx context.Context) error {
	if err := ml.log(ctx); err != nil {
		return err
	}
	return ml.provider.Shutdown(ctx)
}

func attrs(kvs []attribute.KeyValue) []any {
	args := make([]any, 0, len(kvs)*2)
	for _, kv := range kvs {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}
	return args
}
