package renderer

import (
	"errors"
	"image"
	"testing"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

func TestNewTileGrid(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		tileSize      int
		expectedTiles int
	}{
		{"exact fit", 64, 64, 32, 4},
		{"partial edge", 70, 40, 32, 6},
		{"single tile", 10, 10, 32, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles := NewTileGrid(tt.width, tt.height, tt.tileSize)
			if len(tiles) != tt.expectedTiles {
				t.Fatalf("Expected %d tiles, got %d", tt.expectedTiles, len(tiles))
			}
			covered := 0
			for i, tile := range tiles {
				if tile.ID != i {
					t.Errorf("Expected tile id %d, got %d", i, tile.ID)
				}
				if !tile.Bounds.In(image.Rect(0, 0, tt.width, tt.height)) {
					t.Errorf("Tile %d exceeds the image: %v", i, tile.Bounds)
				}
				covered += tile.Bounds.Dx() * tile.Bounds.Dy()
			}
			if covered != tt.width*tt.height {
				t.Errorf("Tiles cover %d pixels, expected %d", covered, tt.width*tt.height)
			}
		})
	}
}

func TestHitSphere(t *testing.T) {
	origin := core.NewVec3(0, 0, 3)
	if d, ok := hitSphere(origin, core.NewVec3(0, 0, -1)); !ok || d != 2 {
		t.Errorf("Expected hit at distance 2, got %f %v", d, ok)
	}
	if _, ok := hitSphere(origin, core.NewVec3(0, 1, 0)); ok {
		t.Error("Ray pointing away should miss")
	}
	if d, ok := hitSphere(core.Vec3{}, core.NewVec3(1, 0, 0)); !ok || d != 1 {
		t.Errorf("Ray from inside should hit the far side at 1, got %f %v", d, ok)
	}
}

func TestCamera_CenterRay(t *testing.T) {
	camera := NewCamera(1, 3)
	dir := camera.GetRay(0.5, 0.5)
	if dir.Subtract(core.NewVec3(0, 0, -1)).Length() > 1e-12 {
		t.Errorf("Center ray should look down -z, got %v", dir)
	}
}

func smallPreview() PreviewConfig {
	config := DefaultPreviewConfig()
	config.Width = 24
	config.Height = 16
	config.TileSize = 8
	config.SamplesPerPixel = 1
	return config
}

func TestRenderPreview(t *testing.T) {
	materials := []struct {
		name     string
		material material.Material
	}{
		{"plastic", material.NewPlastic(core.NewRGB(0.7, 0.2, 0.2), 0.05, 0.1)},
		{"metal", material.NewMetal(core.NewRGB(0.8, 0.8, 0.9), 0.9, 0)},
		{"brushed", material.NewAnisotropic(core.NewRGB(0.6, 0.6, 0.6), 0.5, core.NewVec3(0, 1, 0), 0.05, 0.2, true)},
		{"tinted", mustPreset(t, "tinted")},
	}
	params := core.DefaultRenderParams()
	env := DefaultEnvironment(params)

	for _, tt := range materials {
		t.Run(tt.name, func(t *testing.T) {
			config := smallPreview()
			img, stats, err := RenderPreview(tt.material, env, params, config, nil)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds().Dx() != config.Width || img.Bounds().Dy() != config.Height {
				t.Errorf("Unexpected image size %v", img.Bounds())
			}
			if stats.Hits == 0 {
				t.Error("The sphere should cover part of the image")
			}
			if stats.Hits >= stats.Samples {
				t.Error("The background should cover part of the image")
			}
			if lum := CalculateAverageLuminance(img); lum <= 0 {
				t.Errorf("Expected a visible image, got luminance %f", lum)
			}
			center := img.RGBAAt(config.Width/2, config.Height/2)
			if center.R == 0 && center.G == 0 && center.B == 0 {
				t.Error("The sphere center should be lit")
			}
		})
	}
}

func TestRenderPreview_Deterministic(t *testing.T) {
	params := core.DefaultRenderParams()
	env := DefaultEnvironment(params)
	m := material.NewPlastic(core.NewRGB(0.3, 0.5, 0.7), 0.3, 0.15)

	config := smallPreview()
	config.NumWorkers = 1
	a, _, err := RenderPreview(m, env, params, config, nil)
	if err != nil {
		t.Fatal(err)
	}
	config.NumWorkers = 4
	b, _, err := RenderPreview(m, env, params, config, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("Images differ at byte %d", i)
		}
	}
}

func TestRenderPreview_Warnings(t *testing.T) {
	params := core.DefaultRenderParams()
	env := DefaultEnvironment(params)
	// both roughnesses zero is reported and shaded as a mirror
	m := material.NewAnisotropic(core.NewRGB(0.6, 0.6, 0.6), 0.5, core.NewVec3(0, 1, 0), 0, 0, true)
	_, stats, err := RenderPreview(m, env, params, smallPreview(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Warnings == 0 {
		t.Error("Expected roughness warnings to be counted")
	}
}

func TestRenderPreview_Errors(t *testing.T) {
	params := core.DefaultRenderParams()
	env := DefaultEnvironment(params)
	good := material.NewPlastic(core.NewRGB(0.5, 0.5, 0.5), 0, 0)

	if _, _, err := RenderPreview(nil, env, params, smallPreview(), nil); !errors.Is(err, material.ErrBadArgument) {
		t.Errorf("Expected ErrBadArgument for nil material, got %v", err)
	}

	config := smallPreview()
	config.Width = 0
	if _, _, err := RenderPreview(good, env, params, config, nil); err == nil {
		t.Error("Expected error for empty image")
	}

	config = smallPreview()
	config.CameraDistance = 0.5
	if _, _, err := RenderPreview(good, env, params, config, nil); err == nil {
		t.Error("Expected error for camera inside the sphere")
	}

	bad := params
	bad.MinWeight = -1
	if _, _, err := RenderPreview(good, env, bad, smallPreview(), nil); err == nil {
		t.Error("Expected error for invalid render params")
	}
}

func TestSpectralToRGBA(t *testing.T) {
	tests := []struct {
		name     string
		color    core.SpectralColor
		expected uint8
	}{
		{"black", core.NewRGB(0, 0, 0), 0},
		{"quarter is half after gamma", core.NewRGB(0.25, 0.25, 0.25), 127},
		{"clamped", core.NewRGB(4, 4, 4), 255},
		{"negative", core.NewRGB(-1, -1, -1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := spectralToRGBA(tt.color)
			if c.R != tt.expected || c.A != 255 {
				t.Errorf("Expected %d, got %v", tt.expected, c)
			}
		})
	}
}

func mustPreset(t *testing.T, name string) material.Material {
	t.Helper()
	m, err := NewPresetMaterial(name)
	if err != nil {
		t.Fatal(err)
	}
	return m
}
