package main

import (
	"flag"
	"io"
	"log/slog"
	"time"

	"httpd/application/http"
	"httpd/application/http/actor/server"

	"github.com/pkg/errors"
)

type config struct {
	directory string
	addr      string

	maxConns        uint
	idleTimeout     time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	maxBody          uint
	canonicalHeaders bool
	singleRead       bool

	logLevel  slog.Level
	logFormat string

	metricsInterval time.Duration
}

var ErrInvalidConfig = errors.New("invalid configuration")

func parseConfig(args []string, output io.Writer) (config, error) {
	var cfg config
	defaults := server.DefaultOptions

	fs := flag.NewFlagSet("httpd", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.directory, "directory", "", "directory served under /files; /files is disabled when empty")
	fs.StringVar(&cfg.addr, "addr", "127.0.0.1:4221", "address to listen on")

	fs.UintVar(&cfg.maxConns, "max-conns", 1024, "connections served at once, 0 for no limit")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaults.Serve.Timeout.IdleTimeout, "how long a connection may wait for the next request, 0 for no limit")
	fs.DurationVar(&cfg.readTimeout, "read-timeout", defaults.Serve.Timeout.ReadTimeout, "how long reading a request may take, 0 for no limit")
	fs.DurationVar(&cfg.writeTimeout, "write-timeout", defaults.Serve.Timeout.WriteTimeout, "how long writing a response may take, 0 for no limit")
	fs.DurationVar(&cfg.shutdownTimeout, "shutdown-timeout", 10*time.Second, "how long in-flight requests may take on shutdown")

	fs.UintVar(&cfg.maxBody, "max-body", defaults.Serve.Decode.MaxBodyLength, "largest accepted request body in bytes, 0 for no limit")
	fs.BoolVar(&cfg.canonicalHeaders, "canonical-headers", false, "match header names case-insensitively")
	fs.BoolVar(&cfg.singleRead, "single-read", false, "treat a single read of at most 1024 bytes as the whole request")

	fs.TextVar(&cfg.logLevel, "log-level", slog.LevelInfo, "one of debug, info, warn, error")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "one of text, json")

	fs.DurationVar(&cfg.metricsInterval, "metrics-interval", 0, "how often metrics are logged, 0 to log them only on shutdown")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if fs.NArg() > 0 {
		return config{}, errors.Wrapf(ErrInvalidConfig, "unexpected arguments %q", fs.Args())
	}

	switch cfg.logFormat {
	case "text", "json":
	default:
		return config{}, errors.Wrapf(ErrInvalidConfig, "unknown log format %q", cfg.logFormat)
	}

	for name, d := range map[string]time.Duration{
		"idle-timeout":     cfg.idleTimeout,
		"read-timeout":     cfg.readTimeout,
		"write-timeout":    cfg.writeTimeout,
		"shutdown-timeout": cfg.shutdownTimeout,
		"metrics-interval": cfg.metricsInterval,
	} {
		if d < 0 {
			return config{}, errors.Wrapf(ErrInvalidConfig, "negative %s", name)
		}
	}

	return cfg, nil
}

func (cfg config) options() server.Options {
	opts := server.DefaultOptions

	opts.MaxConns = cfg.maxConns
	opts.Serve.Timeout = server.TimeoutOptions{
		IdleTimeout:  cfg.idleTimeout,
		ReadTimeout:  cfg.readTimeout,
		WriteTimeout: cfg.writeTimeout,
	}

	opts.Serve.Decode = http.DefaultDecodeOptions
	opts.Serve.Decode.MaxBodyLength = cfg.maxBody
	opts.Serve.Decode.CanonicalFieldNames = cfg.canonicalHeaders
	opts.Serve.Decode.SingleRead = cfg.singleRead

	return opts
}

func (cfg config) newLogger(w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.logLevel}

	if cfg.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
