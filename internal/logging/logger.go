package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger.
// level is one of debug, info, warn, error (anything else means info).
// format "console" gives human-readable output for local runs; every other
// value keeps zerolog's JSON lines, which CloudWatch indexes.
func Init(level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var out io.Writer = os.Stderr
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// InitFromEnv is Init driven by MEDIA_LOG_LEVEL and MEDIA_LOG_FORMAT, for
// Lambda init() functions that log before configuration is parsed.
func InitFromEnv() {
	Init(os.Getenv("MEDIA_LOG_LEVEL"), os.Getenv("MEDIA_LOG_FORMAT"))
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
