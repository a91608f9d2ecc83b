// Package utils
package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	setupOnce sync.Once
	logFile   *os.File
)

// ParseLevel maps a config level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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

// SetupLogger configures the global logger once. Output goes to a console
// writer on stdout and, when path is set, to a JSON log file.
func SetupLogger(level, path string) error {
	var err error
	setupOnce.Do(func() {
		zerolog.SetGlobalLevel(ParseLevel(level))

		writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout}}
		if path != "" {
			logFile, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				err = fmt.Errorf("failed to open log file %s: %w", path, err)
				return
			}
			writers = append(writers, logFile)
		}
		log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	})
	return err
}

// CloseLogger closes the log file opened by SetupLogger, if any.
func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
	}
}

// Logger returns a child of the global logger tagged with a component name.
func Logger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
