package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity.
type Level = logrus.Level

const (
	TraceLevel = logrus.TraceLevel
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
	PanicLevel = logrus.PanicLevel
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// ParseLevel converts a level name (trace, debug, info, warn, error, fatal, panic).
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return WarnLevel, nil
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return WarnLevel, fmt.Errorf("invalid log level %q: use trace, debug, info, warn, error, fatal or panic", name)
	}
	return lvl, nil
}

// SetLevel sets the minimum level that gets written.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// GetLevel returns the current level.
func GetLevel() Level {
	return std.GetLevel()
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Init applies the level and optional log file. PERPLEX_DEBUG=1 forces debug.
// The returned closer releases the log file, if one was opened.
func Init(level, file string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if os.Getenv("PERPLEX_DEBUG") == "1" && lvl < DebugLevel {
		lvl = DebugLevel
	}
	SetLevel(lvl)

	file = strings.TrimSpace(file)
	if file == "" {
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	SetOutput(f)
	return f, nil
}

func Trace(format string, args ...any) { std.Tracef(format, args...) }
func Debug(format string, args ...any) { std.Debugf(format, args...) }
func Info(format string, args ...any)  { std.Infof(format, args...) }
func Warn(format string, args ...any)  { std.Warnf(format, args...) }
func Error(format string, args ...any) { std.Errorf(format, args...) }
func Fatal(format string, args ...any) { std.Fatalf(format, args...) }

// WithField returns an entry carrying a structured field.
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}
