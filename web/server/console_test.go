package server

import (
	"math"
	"strings"
	"testing"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
	"github.com/df07/go-ward-shading/pkg/renderer"
)

// renderWithConsole renders a tiny preview of m and returns the messages
// that reached a console of the given capacity
func renderWithConsole(t *testing.T, m material.Material, capacity int) ([]ConsoleMessage, renderer.PreviewStats) {
	t.Helper()
	params := core.DefaultRenderParams()
	config := renderer.DefaultPreviewConfig()
	config.Width = 8
	config.Height = 8
	config.SamplesPerPixel = 1

	consoleChan := make(chan ConsoleMessage, capacity)
	logger := NewWebLogger("preview-test", consoleChan)
	_, stats, err := renderer.RenderPreview(m, renderer.DefaultEnvironment(params), params, config, logger)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	close(consoleChan)

	var messages []ConsoleMessage
	for msg := range consoleChan {
		messages = append(messages, msg)
	}
	return messages, stats
}

func brushed(label string, uRoughness, vRoughness float64) material.Material {
	m := material.NewAnisotropic(core.NewRGB(0.6, 0.6, 0.6), 0.5, core.NewVec3(0, 1, 0), uRoughness, vRoughness, true)
	m.Label = label
	return m
}

func TestWebLogger_ShaderWarningsTagged(t *testing.T) {
	broken := material.NewBRTD(core.NewRGB(0.3, 0.3, 0.3), core.NewRGB(0.3, 0.3, 0.3), core.NewRGB(0, 0, 0))
	broken.Label = "film"
	nan := func(material.FuncEnv, ...float64) float64 { return math.NaN() }
	broken.Reflected = [3]material.BRDFFunc{nan, nan, nan}

	tests := []struct {
		name     string
		material material.Material
		prefix   string
		text     string
	}{
		{"both roughnesses zero", brushed("chrome", 0, 0), "Warning: chrome:", "roughness too small, shading as a mirror"},
		{"one roughness zero", brushed("satin", 0.1, 0), "Warning: satin:", "using average"},
		{"function compute error", broken, "Warning: film:", "compute error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, stats := renderWithConsole(t, tt.material, consoleBuffer)
			if stats.Warnings == 0 {
				t.Fatal("Expected the preview to report warnings")
			}
			if len(messages) != stats.Warnings {
				t.Errorf("Expected %d console messages, got %d", stats.Warnings, len(messages))
			}
			for _, msg := range messages {
				if msg.Level != "warning" {
					t.Errorf("Expected level 'warning' for %q, got '%s'", msg.Message, msg.Level)
				}
				if !strings.HasPrefix(msg.Message, tt.prefix) || !strings.Contains(msg.Message, tt.text) {
					t.Errorf("Expected %q ... %q, got %q", tt.prefix, tt.text, msg.Message)
				}
				if msg.Timestamp.IsZero() {
					t.Error("Console message has no timestamp")
				}
			}
		})
	}
}

func TestWebLogger_CleanPreview(t *testing.T) {
	m, err := renderer.NewPresetMaterial("plastic")
	if err != nil {
		t.Fatal(err)
	}
	messages, stats := renderWithConsole(t, m, consoleBuffer)
	if stats.Warnings != 0 || len(messages) != 0 {
		t.Errorf("Expected a silent preview, got %d warnings and %v", stats.Warnings, messages)
	}
}

func TestWebLogger_ConsoleOverflow(t *testing.T) {
	// every hit warns, far more than the console holds
	messages, stats := renderWithConsole(t, brushed("chrome", 0, 0), 4)
	if len(messages) != 4 {
		t.Errorf("Expected the console to keep 4 messages, got %d", len(messages))
	}
	if stats.Warnings <= 4 {
		t.Errorf("Dropped console messages should still be counted, got %d warnings", stats.Warnings)
	}
}

func TestWebLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		message string
		level   string
	}{
		{"progress", "Rendering plastic with 8 samples...\n", "info"},
		{"shader warning", "Warning: brushed: illegal orientation vector\n", "warning"},
		{"warning mentioned mid-line", "3 Warning: lines\n", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consoleChan := make(chan ConsoleMessage, 1)
			NewWebLogger("levels", consoleChan).Printf("%s", tt.message)
			msg := <-consoleChan
			if msg.Message != tt.message || msg.Level != tt.level {
				t.Errorf("Expected %q at level %s, got %q at %s", tt.message, tt.level, msg.Message, msg.Level)
			}
		})
	}

	// a logger without a console only writes to the server log
	NewWebLogger("levels", nil).Printf("Warning: film: compute error\n")
}
