package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/renderer"
)

// consoleBuffer bounds the console messages kept for one preview
const consoleBuffer = 256

// Server handles web requests for material previews
type Server struct {
	port int
}

// NewServer creates a new web server
func NewServer(port int) *Server {
	return &Server{port: port}
}

// PreviewRequest represents a preview request from the client
type PreviewRequest struct {
	Material          string  `json:"material"`          // Preset name (e.g., "plastic")
	Size              int     `json:"size"`              // Image width and height
	Samples           int     `json:"samples"`           // Camera samples per pixel
	SpecularJitter    float64 `json:"specularJitter"`    // Specular sampling jitter
	SpecularThreshold float64 `json:"specularThreshold"` // Threshold below which highlights are not sampled
	MinWeight         float64 `json:"minWeight"`         // Minimum ray weight
}

// PreviewUpdate is the rendered preview sent via SSE
type PreviewUpdate struct {
	Material  string `json:"material"`
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Stats     Stats  `json:"stats"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Stats represents preview statistics
type Stats struct {
	Pixels           int     `json:"pixels"`
	Samples          int     `json:"samples"`
	Hits             int     `json:"hits"`
	SpecularTargets  int     `json:"specularTargets"`
	SpecularTraced   int     `json:"specularTraced"`
	RejectionRate    float64 `json:"rejectionRate"`
	Warnings         int     `json:"warnings"`
	AverageLuminance float64 `json:"averageLuminance"`
}

// Start starts the web server
func (s *Server) Start() error {
	http.HandleFunc("/api/preview", s.handlePreview)
	http.HandleFunc("/api/health", s.handleHealth)
	http.HandleFunc("/api/materials", s.handleMaterials)

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, nil)
}

// CheckPresets renders every preset once at the given size so that broken
// materials show up before the first request. It returns the number of
// shading warnings per preset.
func (s *Server) CheckPresets(size int, logger core.Logger) (map[string]int, error) {
	params := core.DefaultRenderParams()
	env := renderer.DefaultEnvironment(params)
	config := renderer.DefaultPreviewConfig()
	config.Width = size
	config.Height = size
	config.SamplesPerPixel = 1

	warnings := make(map[string]int)
	for _, name := range renderer.PresetNames() {
		m, err := renderer.NewPresetMaterial(name)
		if err != nil {
			return nil, err
		}
		_, stats, err := renderer.RenderPreview(m, env, params, config, logger)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
		warnings[name] = stats.Warnings
	}
	return warnings, nil
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handlePreview renders a material preview and streams it with SSE
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	req, err := s.parsePreviewRequest(r)
	if err != nil {
		s.sendSSEError(w, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	m, err := renderer.NewPresetMaterial(req.Material)
	if err != nil {
		s.sendSSEError(w, "Unknown material: "+req.Material)
		return
	}

	params := core.DefaultRenderParams()
	params.SpecularJitter = req.SpecularJitter
	params.SpecularThreshold = req.SpecularThreshold
	params.MinWeight = req.MinWeight

	config := renderer.DefaultPreviewConfig()
	config.Width = req.Size
	config.Height = req.Size
	config.SamplesPerPixel = req.Samples

	consoleChan := make(chan ConsoleMessage, consoleBuffer)
	previewID := fmt.Sprintf("%s-%d", req.Material, time.Now().UnixNano())
	logger := NewWebLogger(previewID, consoleChan)

	startTime := time.Now()
	img, stats, err := renderer.RenderPreview(m, renderer.DefaultEnvironment(params), params, config, logger)
	if err != nil {
		s.sendSSEError(w, fmt.Sprintf("Render error: %v", err))
		return
	}
	close(consoleChan)

	for msg := range consoleChan {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		s.sendSSEEvent(w, "console", string(data))
	}

	imageData, err := s.imageToBase64PNG(img)
	if err != nil {
		s.sendSSEError(w, fmt.Sprintf("failed to encode image: %v", err))
		return
	}

	update := PreviewUpdate{
		Material:  req.Material,
		ImageData: imageData,
		Stats: Stats{
			Pixels:           stats.Pixels,
			Samples:          stats.Samples,
			Hits:             stats.Hits,
			SpecularTargets:  stats.Specular.Targets,
			SpecularTraced:   stats.Specular.Traced,
			RejectionRate:    stats.RejectionRate(),
			Warnings:         stats.Warnings,
			AverageLuminance: renderer.CalculateAverageLuminance(img),
		},
		ElapsedMs: time.Since(startTime).Milliseconds(),
	}
	if err := s.sendSSEUpdate(w, update); err != nil {
		log.Printf("Preview %s: %v", previewID, err)
		return
	}

	// Send completion event
	s.sendSSEEvent(w, "complete", "Preview completed")
}

// parsePreviewRequest parses request parameters
func (s *Server) parsePreviewRequest(r *http.Request) (*PreviewRequest, error) {
	req := &PreviewRequest{}
	defaults := core.DefaultRenderParams()

	if name := r.URL.Query().Get("material"); name != "" {
		req.Material = name
	} else {
		req.Material = "plastic" // Default material
	}

	var err error
	if req.Size, err = parseIntParam(r.URL.Query(), "size", 200, 16, 1024); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(r.URL.Query(), "samples", 4, 1, 256); err != nil {
		return nil, err
	}
	if req.SpecularJitter, err = parseFloatParam(r.URL.Query(), "ss", defaults.SpecularJitter, 0, 64); err != nil {
		return nil, err
	}
	if req.SpecularThreshold, err = parseFloatParam(r.URL.Query(), "st", defaults.SpecularThreshold, 0, 1); err != nil {
		return nil, err
	}
	if req.MinWeight, err = parseFloatParam(r.URL.Query(), "lw", defaults.MinWeight, 1e-6, 0.5); err != nil {
		return nil, err
	}

	// Performance warning
	if req.Size*req.Size > 512*512 && req.Samples > 16 {
		log.Printf("Preview warning: Large image with high samples may render slowly")
	}

	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// sendSSEUpdate sends the preview via SSE
func (s *Server) sendSSEUpdate(w http.ResponseWriter, update PreviewUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return s.sendSSEEvent(w, "preview", string(data))
}

// sendSSEError sends an error via SSE
func (s *Server) sendSSEError(w http.ResponseWriter, message string) error {
	return s.sendSSEEvent(w, "error", message)
}

// sendSSEEvent sends a generic SSE event
func (s *Server) sendSSEEvent(w http.ResponseWriter, event, data string) error {
	if flusher, ok := w.(http.Flusher); ok {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
		return nil
	}
	return fmt.Errorf("streaming not supported")
}

// handleMaterials returns the available materials with default settings
func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	params := core.DefaultRenderParams()
	config := renderer.DefaultPreviewConfig()
	response := map[string]interface{}{
		"materials": renderer.PresetNames(),
		"defaults": map[string]interface{}{
			"size":              config.Width,
			"samples":           config.SamplesPerPixel,
			"specularJitter":    params.SpecularJitter,
			"specularThreshold": params.SpecularThreshold,
			"minWeight":         params.MinWeight,
		},
		"limits": map[string]interface{}{
			"size":              map[string]int{"min": 16, "max": 1024},
			"samples":           map[string]int{"min": 1, "max": 256},
			"specularJitter":    map[string]float64{"min": 0, "max": 64},
			"specularThreshold": map[string]float64{"min": 0, "max": 1},
			"minWeight":         map[string]float64{"min": 1e-6, "max": 0.5},
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
