// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a zerolog logger writing to w at the given level. JSON output
// is meant for Lambda; console output is for interactive CLI use.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q (want %q or %q)", format, FormatJSON, FormatConsole)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
