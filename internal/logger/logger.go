package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
//   - Level: log level string (trace, debug, info, warn, error, fatal, panic)
//   - Format: "json" for production, "pretty" for human-readable dev output
//   - File: optional path; when set, JSON lines are also written to a rotating file
type Options struct {
	Level  string
	Format string
	File   string
}

// Setup initializes the global zerolog level and returns the configured logger.
func Setup(opts Options) zerolog.Logger {
	var console io.Writer

	if opts.Format == "pretty" {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	} else {
		console = os.Stdout
	}

	writer := console
	if opts.File != "" {
		writer = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		})
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}
