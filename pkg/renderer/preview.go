package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

// previewObjectID identifies the preview sphere in sampling contexts
const previewObjectID = 1

// PreviewConfig contains settings for material preview renders
type PreviewConfig struct {
	Width, Height   int
	TileSize        int     // Size of each tile
	SamplesPerPixel int     // Jittered camera samples per pixel
	NumWorkers      int     // Number of parallel workers (0 = auto-detect CPU count)
	CameraDistance  float64 // Distance from the camera to the sphere center
	Seed            int64
}

// DefaultPreviewConfig returns sensible default preview settings
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:           200,
		Height:          200,
		TileSize:        32,
		SamplesPerPixel: 4,
		NumWorkers:      0,
		CameraDistance:  3,
		Seed:            42,
	}
}

// Validate checks that the preview can be rendered
func (c PreviewConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("preview size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.TileSize <= 0 || c.SamplesPerPixel <= 0 {
		return fmt.Errorf("tile size and samples per pixel must be positive")
	}
	if c.CameraDistance <= 1 {
		return fmt.Errorf("camera must be outside the unit sphere, got distance %g", c.CameraDistance)
	}
	return nil
}

// PreviewStats summarizes a preview render
type PreviewStats struct {
	ShadingStats
	Pixels   int
	Samples  int
	Warnings int
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	Random *rand.Rand      // Tile-specific random generator for deterministic results
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Random: rand.New(rand.NewSource(int64(id + 42))), // +42 to avoid seed 0
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}

	return tiles
}

// hitSphere intersects a ray with the unit sphere at the origin
func hitSphere(origin, direction core.Vec3) (float64, bool) {
	halfB := origin.Dot(direction)
	c := origin.Dot(origin) - 1
	discriminant := halfB*halfB - c
	if discriminant < 0 {
		return 0, false
	}
	sqrtD := math.Sqrt(discriminant)
	root := -halfB - sqrtD
	if root <= core.Epsilon {
		root = -halfB + sqrtD
		if root <= core.Epsilon {
			return 0, false
		}
	}
	return root, true
}

// tileWork records where each hit of a tile lands in the image
type tileWork struct {
	pixels []image.Point
}

// RenderPreview shades a unit sphere made of m under env and returns the image
func RenderPreview(m material.Material, env *Environment, params core.RenderParams, config PreviewConfig, logger core.Logger) (*image.RGBA, PreviewStats, error) {
	if err := config.Validate(); err != nil {
		return nil, PreviewStats{}, err
	}
	if m == nil {
		return nil, PreviewStats{}, fmt.Errorf("%w: nil material", material.ErrBadArgument)
	}
	if err := m.Validate(); err != nil {
		return nil, PreviewStats{}, err
	}

	counting := NewCountingLogger(logger)
	shader, err := material.NewShader(params, env.Collaborators(), nil, counting)
	if err != nil {
		return nil, PreviewStats{}, err
	}

	width, height := config.Width, config.Height
	camera := NewCamera(float64(width)/float64(height), config.CameraDistance)

	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	tiles := NewTileGrid(width, height, config.TileSize)
	tasks := make([]ShadeTask, 0, len(tiles))
	work := make([]tileWork, len(tiles))

	for _, tile := range tiles {
		task := ShadeTask{TaskID: tile.ID, Material: m, Seed: config.Seed + int64(tile.ID)}
		for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
			for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
				for sample := 0; sample < config.SamplesPerPixel; sample++ {
					s := (float64(x) + tile.Random.Float64()) / float64(width)
					t := (float64(height-1-y) + tile.Random.Float64()) / float64(height)
					dir := camera.GetRay(s, t)

					dist, ok := hitSphere(camera.Origin(), dir)
					if !ok {
						pixelStats[y][x].AddSample(env.Sky.Background(dir))
						continue
					}
					point := camera.Origin().AddScaled(dir, dist)
					task.Hits = append(task.Hits, material.Hit{
						Point:    point,
						Incident: dir,
						Normal:   point.Normalize(),
						Distance: dist,
						ObjectID: previewObjectID,
						Kind:     material.RayPrimary,
						Ray:      env.Sky.Root(dir),
						Sampling: core.NewSamplingContext((y*width+x)*config.SamplesPerPixel + sample),
					})
					work[tile.ID].pixels = append(work[tile.ID].pixels, image.Pt(x, y))
				}
			}
		}
		tasks = append(tasks, task)
	}

	results, shading := ShadeAll(shader, tasks, config.NumWorkers)
	for _, result := range results {
		if result.Error != nil {
			return nil, PreviewStats{}, fmt.Errorf("tile %d: %w", result.TaskID, result.Error)
		}
		for i, res := range result.Results {
			p := work[result.TaskID].pixels[i]
			pixelStats[p.Y][p.X].AddSample(res.Color)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, spectralToRGBA(pixelStats[y][x].GetColor()))
		}
	}

	stats := PreviewStats{
		ShadingStats: shading,
		Pixels:       width * height,
		Samples:      width * height * config.SamplesPerPixel,
		Warnings:     counting.Warnings(),
	}
	return img, stats, nil
}

// spectralToRGBA converts a color to RGBA with clamping and gamma correction
func spectralToRGBA(c core.SpectralColor) color.RGBA {
	r, g, b := c.RGB()
	return color.RGBA{
		R: toByte(r),
		G: toByte(g),
		B: toByte(b),
		A: 255,
	}
}

// toByte applies gamma 2.0 and clamps to [0,1]
func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Sqrt(max(0, v))
	return uint8(255 * min(1.0, v))
}
