package renderer

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/df07/go-ward-shading/pkg/core"
)

// DefaultLogger implements core.Logger by writing to stdout
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// CountingLogger forwards to another logger and counts warnings.
// It is safe for concurrent use when the wrapped logger is.
type CountingLogger struct {
	next     core.Logger
	warnings int64
}

// NewCountingLogger wraps next; a nil next only counts
func NewCountingLogger(next core.Logger) *CountingLogger {
	return &CountingLogger{next: next}
}

func (cl *CountingLogger) Printf(format string, args ...interface{}) {
	if strings.HasPrefix(format, "Warning:") {
		atomic.AddInt64(&cl.warnings, 1)
	}
	if cl.next != nil {
		cl.next.Printf(format, args...)
	}
}

// Warnings returns the number of warnings seen so far
func (cl *CountingLogger) Warnings() int {
	return int(atomic.LoadInt64(&cl.warnings))
}
