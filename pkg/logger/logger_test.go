package logger

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLevelLogger(&buf, LevelWarn)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARN:  warn 3")
	assert.Contains(t, out, "ERROR: error 4")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewStandardLogger(&buf).WithPrefix("[store] ")
	l.Infof("opened")
	assert.Contains(t, buf.String(), "[store] INFO:  opened")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]int{
		"":        LevelInfo,
		"info":    LevelInfo,
		"DEBUG":   LevelDebug,
		"warning": LevelWarn,
		" error ": LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}

func TestBufferLogger(t *testing.T) {
	b := NewBufferLogger()
	b.Infof("a=%d", 1)
	b.Errorf("b")
	assert.Equal(t, []string{"INFO:  a=1", "ERROR: b"}, b.Lines())
}

type recordingLogfer struct{ lines []string }

func (r *recordingLogfer) Logf(format string, v ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func TestLogfLogger(t *testing.T) {
	r := &recordingLogfer{}
	l := NewLogfLogger(r).WithPrefix("pebble: ")
	l.Warnf("slow %s", "flush")
	l.Printf("plain")
	assert.Equal(t, []string{"pebble: WARN:  slow flush", "pebble: plain"}, r.lines)
}
