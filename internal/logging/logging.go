package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// DevMode indicates if development logging is enabled
	DevMode = os.Getenv("DEV_MODE") == "1"
	// Logger is the shared logger instance
	Logger *log.Logger
)

func init() {
	Logger = log.Default()
}

// Rotation limits for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Setup points the shared logger at a size-rotated file and returns it
// together with the closer for the underlying writer.
func Setup(path string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
	Logger = log.New(w, "bugx ", log.LstdFlags|log.Lmicroseconds)
	return Logger, w, nil
}

// Discard silences the shared logger. Tests use it to keep output clean.
func Discard() {
	Logger = log.New(io.Discard, "", 0)
}

// DevLog logs only when DEV_MODE=1
func DevLog(format string, args ...interface{}) {
	if DevMode {
		Logger.Printf("[DEV] "+format, args...)
	}
}

// UserLog logs important user-facing information (always visible)
func UserLog(format string, args ...interface{}) {
	Logger.Printf("[USER] "+format, args...)
}

// ErrorLog logs errors (always visible)
func ErrorLog(format string, args ...interface{}) {
	Logger.Printf("[ERROR] "+format, args...)
}
