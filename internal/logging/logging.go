// Package logging builds the service's slog loggers.
package logging

import (
	"io"
	stdlog "log"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w. The json format uses slog's JSON handler;
// text uses a logfmt handler with UTC timestamps.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if format == FormatText {
		return slog.New(newCharm(w, lvl))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// StdLogger returns a stdlib logger for libraries that want one, such as
// goose. Output is logfmt at info level.
func StdLogger(w io.Writer, source string) *stdlog.Logger {
	return newCharm(w, slog.LevelInfo).With("source", source).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newCharm(w io.Writer, lvl slog.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		TimeFunction:    log.NowUTC,
		TimeFormat:      time.RFC3339Nano,
		Level:           charmLevel(lvl),
		ReportTimestamp: true,
		Formatter:       log.LogfmtFormatter,
	})
}

func charmLevel(lvl slog.Level) log.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return log.DebugLevel
	case lvl <= slog.LevelInfo:
		return log.InfoLevel
	case lvl <= slog.LevelWarn:
		return log.WarnLevel
	}
	return log.ErrorLevel
}
