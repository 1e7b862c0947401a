package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
	"github.com/df07/go-ward-shading/pkg/renderer"
)

// createMaterial returns a preview material by name
func createMaterial(name string) (material.Material, error) {
	return renderer.NewPresetMaterial(name)
}

func main() {
	// Parse command line flags
	materialName := flag.String("material", "plastic", "Material to preview: "+strings.Join(renderer.PresetNames(), ", "))
	jitter := flag.Float64("ss", 1.0, "Specular sampling jitter; above 1.5 also sets the sample count")
	threshold := flag.Float64("st", 0.15, "Specular threshold below which highlights are not sampled")
	minWeight := flag.Float64("lw", 2e-3, "Minimum ray weight")
	maxDepth := flag.Int("lr", 8, "Maximum reflection depth")
	sourceJitter := flag.Float64("dj", 0, "Source jitter, narrows highlights of distant sources on flat surfaces")
	backFaces := flag.Bool("bv", true, "Shade back faces instead of passing through them")
	uncorrelated := flag.Bool("u", false, "Use uncorrelated random sample frames")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = auto-detect CPU count)")
	size := flag.Int("size", 256, "Image width and height in pixels")
	samples := flag.Int("samples", 8, "Camera samples per pixel")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	// Show help if requested
	if *help {
		fmt.Println("Ward Material Preview")
		fmt.Println("Usage: ward-preview [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Available materials:")
		for _, name := range renderer.PresetNames() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println()
		fmt.Println("Output will be saved to output/<material>/preview_<timestamp>.png")
		return
	}

	m, err := createMaterial(*materialName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	params := core.DefaultRenderParams()
	params.SpecularJitter = *jitter
	params.SpecularThreshold = *threshold
	params.MinWeight = *minWeight
	params = params.Merge(core.RenderParams{
		MaxDepth:             *maxDepth,
		SourceJitter:         *sourceJitter,
		BackFaceVisible:      *backFaces,
		UncorrelatedSampling: *uncorrelated,
	}, true)
	if err := params.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	config := renderer.DefaultPreviewConfig()
	config.Width = *size
	config.Height = *size
	config.SamplesPerPixel = *samples
	config.NumWorkers = *workers

	fmt.Printf("Rendering %s preview (%dx%d, %d samples)...\n", m.Name(), config.Width, config.Height, config.SamplesPerPixel)

	logger := renderer.NewDefaultLogger()
	env := renderer.DefaultEnvironment(params)

	startTime := time.Now()
	img, stats, err := renderer.RenderPreview(m, env, params, config, logger)
	if err != nil {
		fmt.Printf("Error rendering preview: %v\n", err)
		os.Exit(1)
	}
	renderTime := time.Since(startTime)

	fmt.Printf("Render completed in %v\n", renderTime)
	fmt.Printf("Shaded %d hits, traced %d specular rays (%.1f%% of candidates rejected), %d warnings\n",
		stats.Hits, stats.Specular.Traced, 100*stats.RejectionRate(), stats.Warnings)

	// Create output directory for this material
	outputDir := filepath.Join("output", *materialName)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	// Create timestamped filename
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("preview_%s.png", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		fmt.Printf("Error saving PNG: %v\n", err)
		return
	}

	fmt.Printf("Preview saved as %s\n", filename)
}
