// Package sysutil holds process-level helpers shared by the CLI commands.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigureLogger sets the global level from lvl and installs the global
// logger: JSON lines on w, or a human-readable console writer when pretty.
// A nil w means stderr. The installed logger is also returned.
func ConfigureLogger(lvl string, pretty bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLogLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", "documind").Logger()
	return log.Logger
}

// SetLogLevel installs the global level named by lvl (any zerolog level name,
// case-insensitive, plus "warning") and returns it. Blank or unknown names
// select info.
func SetLogLevel(lvl string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

// IsTruthy reports whether v spells true: 1, true, yes, y or on in any case.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
