package cliutil

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogOptions configures the process-wide logger.
type LogOptions struct {
	// info|debug|warn|error
	LogLevel string

	// text|json
	LogFormat string
}

// SetupSlog builds a logger from the passed options, writing to stdout, and
// installs it as the slog default.
func SetupSlog(options LogOptions) (*slog.Logger, error) {
	var hopts slog.HandlerOptions
	hopts.Level = slog.LevelInfo
	if options.LogLevel != "" {
		switch strings.ToLower(options.LogLevel) {
		case "debug":
			hopts.Level = slog.LevelDebug
		case "info":
			hopts.Level = slog.LevelInfo
		case "warn":
			hopts.Level = slog.LevelWarn
		case "error":
			hopts.Level = slog.LevelError
		default:
			return nil, fmt.Errorf("unknown log level: %#v", options.LogLevel)
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.LogFormat) {
	case "", "json":
		handler = slog.NewJSONHandler(os.Stdout, &hopts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &hopts)
	default:
		return nil, fmt.Errorf("invalid log format: %#v", options.LogFormat)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
