// Package logging adapts zerolog to the client's key/value Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger. It satisfies the Debug/Info/Warn/Error
// key/value interface the client accepts.
type Logger struct {
	zl zerolog.Logger
}

// NewZerolog adapts an existing zerolog logger
func NewZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// New builds a logger writing to w. level is a zerolog level name
// (debug, info, warn, error); format is "json" or "console".
func New(w io.Writer, level, format string) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
	case "console", "text":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{zl: zl}, nil
}

// Zerolog returns the underlying logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Debug(), msg, keysAndValues)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Info(), msg, keysAndValues)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Warn(), msg, keysAndValues)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(l.zl.Error(), msg, keysAndValues)
}

func (l *Logger) log(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	if event == nil {
		return
	}

	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 >= len(keysAndValues) {
			event = event.Str(key, "(MISSING)")
			break
		}

		switch v := keysAndValues[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		case time.Duration:
			event = event.Dur(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	event.Msg(msg)
}
