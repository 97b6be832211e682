// Package logger provides the levelled logger used across Strata.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Logger is the logging interface accepted by Strata components.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a Logger that writes through the same output with
	// prefix prepended to every line.
	WithPrefix(prefix string) Logger
}

const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func LevelPrefix(level int) string {
	return [...]string{"ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

// ParseLevel maps a config level name to a level. Unknown names are an error.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

var StderrLogger Logger = NewStandardLogger(os.Stderr)

// NopLogger discards everything.
var NopLogger Logger = &nopLogger{}

var _ Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...interface{}) {}
func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}
func (n *nopLogger) WithPrefix(prefix string) Logger        { return n }

// standardLogger is a Logger on top of log.Logger.
type standardLogger struct {
	logger    *log.Logger
	verbosity int
	prefix    string
	w         io.Writer
}

// formatLog writes in UTC with constant width and microsecond resolution.
type formatLog struct {
	w io.Writer
}

func (fl formatLog) Write(b []byte) (int, error) {
	return fmt.Fprintf(fl.w, "%v %v", time.Now().UTC().Format(RFC3339UsecTz0), string(b))
}

func newStandardLogger(w io.Writer, verbosity int, prefix string) *standardLogger {
	l := log.New(formatLog{w: w}, prefix, 0)
	return &standardLogger{
		logger:    l,
		verbosity: verbosity,
		prefix:    prefix,
		w:         w,
	}
}

// NewStandardLogger logs at LevelInfo and below.
func NewStandardLogger(w io.Writer) *standardLogger {
	return newStandardLogger(w, LevelInfo, "")
}

// NewLevelLogger logs at level and below.
func NewLevelLogger(w io.Writer, level int) *standardLogger {
	return newStandardLogger(w, level, "")
}

// New builds a logger from a config level name.
func New(w io.Writer, level string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLevelLogger(w, lvl), nil
}

func (s *standardLogger) printf(level int, format string, v ...interface{}) {
	if level > s.verbosity {
		return
	}
	s.logger.Printf(LevelPrefix(level)+format, v...)
}

func (s *standardLogger) Printf(format string, v ...interface{}) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Debugf(format string, v ...interface{}) {
	s.printf(LevelDebug, format, v...)
}

func (s *standardLogger) Infof(format string, v ...interface{}) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Warnf(format string, v ...interface{}) {
	s.printf(LevelWarn, format, v...)
}

func (s *standardLogger) Errorf(format string, v ...interface{}) {
	s.printf(LevelError, format, v...)
}

func (s *standardLogger) WithPrefix(prefix string) Logger {
	return newStandardLogger(s.w, s.verbosity, s.prefix+prefix)
}

// Logfer is anything with a Logf method, like testing.T.
type Logfer interface {
	Logf(format string, v ...interface{})
}

// LogfLogger routes every level to a Logfer. Tests use it to tie engine
// output to the test that produced it.
type LogfLogger struct {
	wrapped Logfer
	prefix  string
}

func NewLogfLogger(l Logfer) *LogfLogger {
	return &LogfLogger{wrapped: l}
}

func (ll *LogfLogger) Printf(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+format, v...)
}

func (ll *LogfLogger) Debugf(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+LevelPrefix(LevelDebug)+format, v...)
}

func (ll *LogfLogger) Infof(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+LevelPrefix(LevelInfo)+format, v...)
}

func (ll *LogfLogger) Warnf(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+LevelPrefix(LevelWarn)+format, v...)
}

func (ll *LogfLogger) Errorf(format string, v ...interface{}) {
	ll.wrapped.Logf(ll.prefix+LevelPrefix(LevelError)+format, v...)
}

func (ll *LogfLogger) WithPrefix(prefix string) Logger {
	return &LogfLogger{wrapped: ll.wrapped, prefix: ll.prefix + prefix}
}

// BufferLogger keeps every line in memory.
type BufferLogger struct {
	mu    sync.Mutex
	lines []string
}

func NewBufferLogger() *BufferLogger { return &BufferLogger{} }

func (b *BufferLogger) add(level int, format string, v ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, LevelPrefix(level)+fmt.Sprintf(format, v...))
}

func (b *BufferLogger) Printf(format string, v ...interface{}) { b.add(LevelInfo, format, v...) }
func (b *BufferLogger) Debugf(format string, v ...interface{}) { b.add(LevelDebug, format, v...) }
func (b *BufferLogger) Infof(format string, v ...interface{})  { b.add(LevelInfo, format, v...) }
func (b *BufferLogger) Warnf(format string, v ...interface{})  { b.add(LevelWarn, format, v...) }
func (b *BufferLogger) Errorf(format string, v ...interface{}) { b.add(LevelError, format, v...) }
func (b *BufferLogger) WithPrefix(prefix string) Logger        { return b }

// Lines returns a copy of everything logged so far.
func (b *BufferLogger) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}
