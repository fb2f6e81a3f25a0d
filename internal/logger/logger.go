package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu            sync.Mutex
	std           = zerolog.Nop()
	logFile       *os.File
	isInitialized bool
)

// DefaultPath is summary-mcp.log next to the running executable.
func DefaultPath() string {
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "summary-mcp.log")
	}
	return "./summary-mcp.log"
}

// Init opens path in append mode and logs JSON lines to it at level.
// Stdout is never used since it carries the MCP stdio transport.
func Init(path, level string) error {
	mu.Lock()
	defer mu.Unlock()
	if isInitialized {
		return nil
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	lvl, err := parseLevel(level)
	if err != nil {
		_ = f.Close()
		return err
	}
	logFile = f
	std = newLogger(f, lvl)
	isInitialized = true
	return nil
}

// InitWriter logs to w instead of a file. Used by tests and the store daemon.
func InitWriter(w io.Writer, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	std = newLogger(w, lvl)
	isInitialized = true
	return nil
}

// Get returns the process logger. Components take it in their constructors.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return std
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		std = zerolog.Nop()
		isInitialized = false
		return err
	}
	return nil
}

// Infof logs informational messages.
func Infof(format string, args ...any) { l := Get(); l.Info().Msg(fmt.Sprintf(format, args...)) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { l := Get(); l.Warn().Msg(fmt.Sprintf(format, args...)) }

// Errorf logs errors.
func Errorf(format string, args ...any) { l := Get(); l.Error().Msg(fmt.Sprintf(format, args...)) }

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
