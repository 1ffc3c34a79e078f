package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const service = "estate-api"

// NewLogger returns the process logger.
// APP_ENV=dev (or development) uses a console writer at debug level; otherwise JSON at info.
func NewLogger(env string) zerolog.Logger { return newLogger(os.Stdout, env) }

func newLogger(w io.Writer, env string) zerolog.Logger {
	level := zerolog.InfoLevel
	if env == "dev" || env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", service).Logger()
}
