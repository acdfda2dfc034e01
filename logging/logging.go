package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

type Config struct {
	Level         string
	File          string // empty disables the file sink
	FileMaxSizeMB int
	JSON          bool   // JSON instead of colored console output
	FluentHost    string // empty disables Fluentd
	FluentPort    int
	FluentTag     string
}

// Setup builds the process logger: console, rotating JSON file and Fluentd,
// each when enabled. The returned func closes the sinks.
func Setup(cfg Config, console io.Writer) (*slog.Logger, func() error, error) {
	if console == nil {
		console = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var handlers []slog.Handler
	var closers []io.Closer

	if cfg.JSON {
		handlers = append(handlers, slog.NewJSONHandler(console, &slog.HandlerOptions{Level: level}))
	} else {
		handlers = append(handlers, tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	if cfg.File != "" {
		fw := NewFileWriter(cfg.File, cfg.FileMaxSizeMB)
		closers = append(closers, fw)
		handlers = append(handlers, slog.NewJSONHandler(fw, &slog.HandlerOptions{Level: level}))
	}

	if cfg.FluentHost != "" {
		client, err := fluent.New(fluent.Config{
			FluentHost: cfg.FluentHost,
			FluentPort: cfg.FluentPort,
			TagPrefix:  cfg.FluentTag,
			Async:      true,
		})
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, client)
		handlers = append(handlers, NewFluentHandler(client, level))
	}

	closer := func() error { return closeAll(closers) }
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(Fanout(handlers...)), closer, nil
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fanoutHandler forwards every record to each handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: out}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: out}
}
