package log

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// Output formats accepted by Setup.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

// Setup installs a zerolog-backed provider as the package-level provider and
// routes errors.Warn through it.
func Setup(level, format string, w io.Writer) (*ZerologProvider, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return nil, errors.NewValidationError("log.format", "must be console or json", format)
	}

	p := NewZerologProvider(w, lvl)
	SetProvider(p)
	errors.SetZerologWarnFunc(p.warn)
	return p, nil
}
