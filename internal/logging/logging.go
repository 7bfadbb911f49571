// Package logging builds the logrus loggers shared by the server, the CLI and
// the conversion pipeline.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options controls logger construction
type Options struct {
	Level  string // debug, info, warn, error
	Output io.Writer
	JSON   bool
	// Silent discards everything; stdio MCP mode uses it so log lines never
	// interleave with protocol frames.
	Silent bool
}

// New creates a logger from the options. An unknown level falls back to info.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Silent {
		out = io.Discard
	}
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

// Discard returns a logger that drops all output, for tests and library
// callers that do not care about logs
func Discard() *logrus.Logger {
	return New(Options{Silent: true})
}

// Component tags log lines with the emitting component
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}
