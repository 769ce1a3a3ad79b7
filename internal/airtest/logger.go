// Package airtest provides small test-support fixtures shared across
// package test files: discard and recording loggers, and an in-process
// harness that drives a transient Pair-Verify handshake, for integration
// tests that span more than one package.
package airtest

import (
	"fmt"

	"github.com/airtunes2/airplay2/internal/logger"
)

// NilLogger discards everything; satisfies logger.Writer.
type NilLogger struct{}

// Log implements logger.Writer.
func (NilLogger) Log(_ logger.Level, _ string, _ ...interface{}) {}

// RecordingLogger collects log lines instead of discarding them, for
// tests that assert on what was logged.
type RecordingLogger struct {
	Lines []string
}

// Log implements logger.Writer.
func (r *RecordingLogger) Log(level logger.Level, format string, args ...interface{}) {
	r.Lines = append(r.Lines, level.String()+": "+fmt.Sprintf(format, args...))
}
