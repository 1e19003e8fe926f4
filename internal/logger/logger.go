// Package logger configures the process logger and carries request ids through contexts.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey string

const requestIDKey ctxKey = "requestID"

var base = logrus.New()

// Init configures the process logger. Production logs are JSON at info level,
// development logs are text at debug level. level overrides the default when set.
func Init(devMode bool, level string) {
	if devMode {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
		base.SetLevel(logrus.InfoLevel)
	}
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			base.SetLevel(lvl)
		}
	}
	base.SetOutput(os.Stdout)
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// Base returns the process logger.
func Base() *logrus.Logger {
	return base
}

// GenerateRequestID creates a new id for tracing a request.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id, if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// FromContext returns a log entry that includes request_id when present.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(base)
	if id, ok := RequestIDFromContext(ctx); ok {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
