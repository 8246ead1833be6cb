// Package testutil builds in-memory ELF images with DWARF line tables and
// provides loggers for tests.
package testutil

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that discards output.
// Use NewTestLoggerWithOutput to log to t.Log().
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(io.Discard).Level(zerolog.TraceLevel)
}

// NewTestLoggerWithOutput creates a test logger that logs to t.Log().
func NewTestLoggerWithOutput(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.ConsoleWriter{Out: &testLogWriter{t: t}, NoColor: true}).
		With().Timestamp().Logger()
}

// NewCaptureLogger returns a JSON logger at debug level and the buffer it
// writes to, for asserting on emitted events.
func NewCaptureLogger(t *testing.T) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return zerolog.New(&buf).Level(zerolog.DebugLevel), &buf
}

// testLogWriter wraps testing.T to implement io.Writer.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
