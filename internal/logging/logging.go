// Package logging builds the structured loggers shared by the API binaries.
package logging

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	goamiddleware "goa.design/goa/v3/middleware"

	"rajhholding/internal/config"
	apperrors "rajhholding/pkg/errors"
)

// New returns a root logger writing to w at the configured level and format.
func New(cfg config.LogConfig, w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, apperrors.Configuration("LOG_LEVEL %q is not a valid level", cfg.Level)
	}

	var formatter log.Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, apperrors.Configuration("LOG_FORMAT %q must be text, json or logfmt", cfg.Format)
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		TimeFunction:    log.NowUTC,
	}), nil
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// For returns l annotated with the request id carried by ctx, if any.
func For(ctx context.Context, l *log.Logger) *log.Logger {
	if id, ok := ctx.Value(goamiddleware.RequestIDKey).(string); ok && id != "" {
		return l.With("request_id", id)
	}
	return l
}
