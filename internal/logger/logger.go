package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger, or a human readable one in development.
func New(env string) zerolog.Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func WithRequestID(ctx context.Context, base zerolog.Logger, requestID string) context.Context {
	l := base.With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}
