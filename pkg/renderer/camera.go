package renderer

import (
	"github.com/df07/go-ward-shading/pkg/core"
)

// Camera generates primary ray directions for previews
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
}

// NewCamera creates a pinhole camera at distance along +z looking at the origin
func NewCamera(aspectRatio, distance float64) *Camera {
	viewportHeight := 2.0
	viewportWidth := aspectRatio * viewportHeight
	focalLength := distance - 1.0 // the viewport spans the unit sphere's silhouette plane

	origin := core.NewVec3(0, 0, distance)
	horizontal := core.NewVec3(viewportWidth, 0, 0)
	vertical := core.NewVec3(0, viewportHeight, 0)
	lowerLeftCorner := origin.Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(core.NewVec3(0, 0, focalLength))

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
	}
}

// Origin returns the camera position
func (c *Camera) Origin() core.Vec3 {
	return c.origin
}

// GetRay returns the unit direction for screen coordinates (s, t) where
// 0 <= s,t <= 1
func (c *Camera) GetRay(s, t float64) core.Vec3 {
	return c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin).
		Normalize()
}
