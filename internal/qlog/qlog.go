// Package qlog provides the structured logger used throughout this module:
// a zerolog.Logger over a console-friendly writer, with a compact
// custom field-name convention (t/l/m) for queue diagnostics. A library
// must never call Fatal — that kills the host process — so this package
// only ever logs at Debug/Info/Warn/Error.
package qlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimestampFieldName = "t"
	zerolog.LevelFieldName = "l"
	zerolog.MessageFieldName = "m"
}

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// Logger returns the package-wide logger. Components pull from here rather
// than constructing their own, so a single InitFile/SetLevel call re-points
// every log line.
func Logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return &logger
}

// SetLevel adjusts the minimum level logged.
func SetLevel(lvl zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(lvl)
}

// InitFile opens (or creates) the log file <name>.log directly in the OS
// temp directory and routes logging there, for standalone tools — library code
// itself never calls this on its own, only cmd/ entry points.
func InitFile(name string) (*os.File, error) {
	fileName := filepath.Join(os.TempDir(), fmt.Sprintf("%s.log", name))
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logger = zerolog.New(zerolog.ConsoleWriter{Out: file}).With().Timestamp().Logger().Level(logger.GetLevel())
	mu.Unlock()
	return file, nil
}

// Thread returns a logger pre-tagged with a thread identity, the common case
// for every queue-component log line.
func Thread(id string) zerolog.Logger {
	return Logger().With().Str("thread", id).Logger()
}
