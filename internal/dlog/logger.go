// Package dlog is a minimal leveled wrapper around an io.Writer, adapted
// from the teacher's log/logger.go.
package dlog

import (
	"fmt"
	"io"
)

// Logger writes plain and verbose diagnostic lines to an underlying
// io.Writer; verbose lines are written only when Verbose is set (the CLI's
// -v flag).
type Logger struct {
	io.Writer
	Verbose bool
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line unconditionally.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted line unconditionally.
func (l *Logger) Logf(format string, args ...interface{}) {
	fmt.Fprintf(l, format, args...)
}

// LogAuditvetfln logs a formatted line prefixed with "auditvet: ".
func (l *Logger) LogAuditvetfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "auditvet: "+format+"\n", args...)
}

// Verboseln logs a line only when Verbose is set.
func (l *Logger) Verboseln(args ...interface{}) {
	if l.Verbose {
		fmt.Fprintln(l, args...)
	}
}

// Verbosef logs a formatted line only when Verbose is set.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.Verbose {
		fmt.Fprintf(l, format, args...)
	}
}
