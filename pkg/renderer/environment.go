package renderer

import (
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

// skyDistance is reported for rays that leave the scene
const skyDistance = 1e10

// skyRay is a ray handed out by Sky
type skyRay struct {
	direction core.Vec3
	weight    float64
	depth     int
}

func (r *skyRay) Weight() float64 { return r.weight }
func (r *skyRay) Depth() int      { return r.depth }

// Sky is a RayEngine for an empty scene under a vertical gradient.
// Every ray escapes; rays are culled by weight and depth like a real engine.
type Sky struct {
	Top, Bottom core.SpectralColor
	MinWeight   float64
	MaxDepth    int
}

// NewSky creates a gradient sky using the culling limits from params
func NewSky(top, bottom core.SpectralColor, params core.RenderParams) *Sky {
	return &Sky{
		Top:       top,
		Bottom:    bottom,
		MinWeight: params.MinWeight,
		MaxDepth:  params.MaxDepth,
	}
}

// Root returns the handle of a camera ray
func (s *Sky) Root(direction core.Vec3) material.RayHandle {
	return &skyRay{direction: direction, weight: 1}
}

// Spawn creates a child ray unless its weight or depth is out of range
func (s *Sky) Spawn(req material.RayRequest) (material.RayHandle, bool) {
	weight, depth := 1.0, 0
	if req.Parent != nil {
		weight, depth = req.Parent.Weight(), req.Parent.Depth()
	}
	weight *= req.Coefficient.Brightness()
	depth++
	if weight < s.MinWeight || (s.MaxDepth > 0 && depth > s.MaxDepth) {
		return nil, false
	}
	return &skyRay{direction: req.Direction, weight: weight, depth: depth}, true
}

// Trace returns the sky radiance along the ray
func (s *Sky) Trace(h material.RayHandle) core.SpectralColor {
	r, ok := h.(*skyRay)
	if !ok {
		return core.Black(s.Top.Channels())
	}
	return s.Background(r.direction)
}

// Distance reports that every ray escapes
func (s *Sky) Distance(h material.RayHandle) float64 {
	return skyDistance
}

// Background blends the gradient by the height of direction
func (s *Sky) Background(direction core.Vec3) core.SpectralColor {
	t := 0.5 * (direction.Normalize().Y + 1.0)
	return s.Bottom.Scale(1.0 - t).Add(s.Top.Scale(t))
}

// SkyAmbient is an AmbientCache that averages the sky over the hemisphere
// around the normal with a fixed cosine-weighted grid of directions
type SkyAmbient struct {
	Sky   *Sky
	Scale float64 // fraction of the sky that reaches the surface indirectly
	Grid  int     // directions per axis
}

func (a SkyAmbient) Estimate(point, normal core.Vec3) core.SpectralColor {
	grid := max(a.Grid, 1)
	total := core.Black(a.Sky.Top.Channels())
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			u := core.NewVec2((float64(i)+0.5)/float64(grid), (float64(j)+0.5)/float64(grid))
			total = total.Add(a.Sky.Background(core.SampleCosineHemisphere(normal, u)))
		}
	}
	return total.Scale(a.Scale / float64(grid*grid))
}

// Source is a distant light
type Source struct {
	Direction  core.Vec3 // unit direction toward the light
	SolidAngle float64   // steradians subtended at the scene
	Radiance   core.SpectralColor
}

// NewSource creates a distant light from an angular diameter in degrees
func NewSource(direction core.Vec3, diameterDegrees float64, radiance core.SpectralColor) Source {
	half := diameterDegrees * math.Pi / 360
	return Source{
		Direction:  direction.Normalize(),
		SolidAngle: 2 * math.Pi * (1 - math.Cos(half)),
		Radiance:   radiance,
	}
}

// DistantLights is a DirectLightIntegrator for a set of unoccluded distant
// sources
type DistantLights struct {
	Sources []Source
}

// ForEachVisibleSource weights each source above or below the surface by fn
func (d DistantLights) ForEachVisibleSource(point, normal core.Vec3, fn material.SourceFunc) core.SpectralColor {
	var total core.SpectralColor
	for _, s := range d.Sources {
		if math.Abs(s.Direction.Dot(normal)) <= core.Epsilon {
			continue
		}
		total = total.Add(fn(s.Direction, s.SolidAngle).Multiply(s.Radiance))
	}
	return total
}

// IdentityTexture leaves surfaces unperturbed
type IdentityTexture struct{}

func (IdentityTexture) Perturb(hit *material.Hit) material.Perturbation {
	return material.Perturbation{}
}

// Environment bundles the reference collaborators used by previews
type Environment struct {
	Sky     *Sky
	Ambient material.AmbientCache
	Lights  DistantLights
	Texture material.TextureSystem
}

// DefaultEnvironment returns a blue sky with a sun and a fill light
func DefaultEnvironment(params core.RenderParams) *Environment {
	sky := NewSky(core.NewRGB(0.5, 0.7, 1.0), core.NewRGB(1.0, 1.0, 1.0), params)
	return &Environment{
		Sky:     sky,
		Ambient: SkyAmbient{Sky: sky, Scale: 0.25, Grid: 4},
		Lights: DistantLights{Sources: []Source{
			NewSource(core.NewVec3(-1, 1, 1), 0.5, core.NewRGB(3e4, 2.9e4, 2.7e4)),
			NewSource(core.NewVec3(1, 0.3, 0.8), 10, core.NewRGB(40, 40, 45)),
		}},
		Texture: IdentityTexture{},
	}
}

// Collaborators returns the environment as shader collaborators
func (e *Environment) Collaborators() material.Collaborators {
	return material.Collaborators{
		Engine:  e.Sky,
		Ambient: e.Ambient,
		Direct:  e.Lights,
		Texture: e.Texture,
	}
}
