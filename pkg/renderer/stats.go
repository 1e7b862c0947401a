package renderer

import (
	"image"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

// ShadingStats contains statistics about a batch of shading calls
type ShadingStats struct {
	Tasks    int                  // Number of tasks completed
	Hits     int                  // Number of hits shaded
	Errors   int                  // Number of hits that failed to shade
	Specular material.SampleStats // Specular sampling counters
}

// Add returns the sum of two stats
func (s ShadingStats) Add(other ShadingStats) ShadingStats {
	return ShadingStats{
		Tasks:    s.Tasks + other.Tasks,
		Hits:     s.Hits + other.Hits,
		Errors:   s.Errors + other.Errors,
		Specular: s.Specular.Add(other.Specular),
	}
}

// RejectionRate returns the fraction of specular candidates that were rejected
func (s ShadingStats) RejectionRate() float64 {
	if s.Specular.Trials == 0 {
		return 0
	}
	return float64(s.Specular.Rejected()) / float64(s.Specular.Trials)
}

// PixelStats tracks sampling statistics for a single pixel
type PixelStats struct {
	ColorAccum  core.SpectralColor // accumulator for final result
	SampleCount int                // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.SpectralColor) {
	ps.ColorAccum = ps.ColorAccum.Add(color)
	ps.SampleCount++
}

// GetColor returns the current average color for this pixel
func (ps *PixelStats) GetColor() core.SpectralColor {
	if ps.SampleCount == 0 {
		return ps.ColorAccum.Scale(0)
	}
	return ps.ColorAccum.Scale(1.0 / float64(ps.SampleCount))
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of img in [0,1]
func CalculateAverageLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}
	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			total += (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
		}
	}
	return total / float64(pixels)
}
