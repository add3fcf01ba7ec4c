package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Fields are key/value pairs attached to a structured entry.
type Fields map[string]any

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string `json:"ts"`
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Root      string `json:"root,omitempty"`
	Message   string `json:"msg"`
	Fields    Fields `json:"fields,omitempty"`
}

// StructuredLogger tags entries with the emitting component and the working
// root they concern.
type StructuredLogger struct {
	logger    *log.Logger
	component string
	root      string
	jsonMode  bool
}

// NewStructuredLogger creates a new structured logger. A nil logger falls
// back to the shared Logger at write time.
func NewStructuredLogger(logger *log.Logger, component string, jsonMode bool) *StructuredLogger {
	return &StructuredLogger{
		logger:    logger,
		component: component,
		jsonMode:  jsonMode,
	}
}

// WithRoot returns a logger tagged with the working root.
func (s *StructuredLogger) WithRoot(root string) *StructuredLogger {
	clone := *s
	clone.root = root
	return &clone
}

// WithComponent returns a logger with component context
func (s *StructuredLogger) WithComponent(component string) *StructuredLogger {
	clone := *s
	clone.component = component
	return &clone
}

func (s *StructuredLogger) out() *log.Logger {
	if s.logger != nil {
		return s.logger
	}
	return Logger
}

func (s *StructuredLogger) log(level string, msg string, fields Fields) {
	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Component: s.component,
		Root:      s.root,
		Message:   msg,
		Fields:    fields,
	}
	if s.jsonMode {
		data, _ := json.Marshal(entry)
		s.out().Println(string(data))
		return
	}
	s.out().Println(s.format(level, msg, fields))
}

// format renders a human-readable line with fields in key order.
func (s *StructuredLogger) format(level, msg string, fields Fields) string {
	var b strings.Builder
	b.WriteString("[" + level + "] ")
	if s.component != "" {
		fmt.Fprintf(&b, "[%s] ", s.component)
	}
	if s.root != "" {
		fmt.Fprintf(&b, "[root:%s] ", s.root)
	}
	b.WriteString(msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	return b.String()
}

// Info logs an info message
func (s *StructuredLogger) Info(msg string, fields ...Fields) {
	s.log("INFO", msg, mergeFields(fields...))
}

// Error logs an error message
func (s *StructuredLogger) Error(msg string, fields ...Fields) {
	s.log("ERROR", msg, mergeFields(fields...))
}

// Debug logs only in dev mode.
func (s *StructuredLogger) Debug(msg string, fields ...Fields) {
	if !DevMode {
		return
	}
	s.log("DEBUG", msg, mergeFields(fields...))
}

// Warn logs a warning message
func (s *StructuredLogger) Warn(msg string, fields ...Fields) {
	s.log("WARN", msg, mergeFields(fields...))
}

// Printf provides compatibility with standard logger interface
func (s *StructuredLogger) Printf(format string, args ...interface{}) {
	s.Info(fmt.Sprintf(format, args...))
}

// mergeFields combines multiple field maps; later maps win.
func mergeFields(fields ...Fields) Fields {
	result := make(Fields)
	for _, m := range fields {
		for k, v := range m {
			result[k] = v
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
