package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/df07/go-ward-shading/pkg/core"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warning"
}

// WebLogger implements core.Logger by sending messages to a console channel
type WebLogger struct {
	previewID   string
	consoleChan chan<- ConsoleMessage
}

// NewWebLogger creates a new web logger for a specific preview
func NewWebLogger(previewID string, consoleChan chan<- ConsoleMessage) core.Logger {
	return &WebLogger{
		previewID:   previewID,
		consoleChan: consoleChan,
	}
}

// Printf implements core.Logger interface
func (wl *WebLogger) Printf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	// Also write to stdout for server logs
	fmt.Printf("[%s] %s", wl.previewID, message)

	level := "info"
	if strings.HasPrefix(message, "Warning:") {
		level = "warning"
	}

	// Send to web console if channel is available (non-blocking)
	if wl.consoleChan != nil {
		select {
		case wl.consoleChan <- ConsoleMessage{
			Message:   message,
			Timestamp: time.Now(),
			Level:     level,
		}:
		default:
			// Channel full, skip (don't block)
		}
	}
}
