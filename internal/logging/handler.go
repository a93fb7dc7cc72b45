// Package logging builds the process-wide slog handler.
//
// Two formats are supported: "pretty" (tint, colourised when writing to a
// terminal) for local development and "json" for log shippers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Format names accepted by New.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Options configures the handler returned by New.
type Options struct {
	// Format is "pretty", "json", or empty to pick pretty on a TTY and json otherwise.
	Format string
	// Level is a slog level name ("debug", "info", "warn", "error"); empty means info.
	Level string
}

// ParseLevel converts a level name to a slog.Level. Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New returns a logger writing to out.
func New(out io.Writer, opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)
	tty := isTerminal(out)

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
		if tty {
			format = FormatPretty
		}
	}

	if format == FormatPretty {
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !tty,
		}))
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// Setup installs a logger on stderr as the slog default and returns it.
func Setup(opts Options) *slog.Logger {
	logger := New(os.Stderr, opts)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
