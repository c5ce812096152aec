// Command httpd serves a small set of endpoints over HTTP/1.1 with persistent connections.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"httpd/application/endpoint"
	"httpd/application/http/actor/server"
	"httpd/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, ErrInvalidConfig) {
			io.WriteString(stderr, err.Error()+"\n")
		}
		return 2
	}

	logger := cfg.newLogger(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger, nil); err != nil {
		logger.Error("server failed", "error", err)
		return 1
	}

	return 0
}

// serve runs the server until ctx is done.
// If ready is non-nil, the address being listened on is sent to it once connections are accepted.
func serve(ctx context.Context, cfg config, logger *slog.Logger, ready chan<- string) error {
	var store *endpoint.Store
	if cfg.directory != "" {
		var err error
		if store, err = endpoint.NewStore(cfg.directory); err != nil {
			return errors.Wrap(err, "opening directory")
		}
	}

	l, err := tcp.Listen(cfg.addr)
	if err != nil {
		return errors.Wrap(err, "binding")
	}
	defer l.Close()

	clk := clock.New()

	metrics := newMetricsLogger(logger)
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()

	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		metrics.run(metricsCtx, clk, cfg.metricsInterval)
	}()

	opts := cfg.options()
	opts.Meter = otel.Meter("httpd")

	srv := server.New(l, logger, clk, endpoint.NewRouter(store).Handle, opts)
	srv.Start()

	fields := []any{"addr", l.Addr().String()}
	if store != nil {
		fields = append(fields, "directory", store.Root())
	}
	logger.Info("listening", fields...)

	if ready != nil {
		ready <- l.Addr().String()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("connections closed forcibly", "error", err)
	}

	stopMetrics()
	<-metricsDone
	if err := metrics.shutdown(context.Background()); err != nil {
		logger.Error("failed to flush metrics", "error", err)
	}

	return nil
}
