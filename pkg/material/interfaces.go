package material

import (
	"github.com/df07/go-ward-shading/pkg/core"
)

// RayKind classifies rays spawned or received by the shader
type RayKind int

const (
	RayPrimary             RayKind = iota
	RayShadow                      // source visibility test
	RayAmbient                     // indirect diffuse estimate
	RayReflected                   // pure mirror reflection
	RayTransmitted                 // straight-through transmission
	RaySpecularReflected           // sampled rough reflection
	RaySpecularTransmitted         // sampled rough transmission
)

func (k RayKind) String() string {
	switch k {
	case RayPrimary:
		return "primary"
	case RayShadow:
		return "shadow"
	case RayAmbient:
		return "ambient"
	case RayReflected:
		return "reflected"
	case RayTransmitted:
		return "transmitted"
	case RaySpecularReflected:
		return "specular-reflected"
	case RaySpecularTransmitted:
		return "specular-transmitted"
	}
	return "unknown"
}

// RayHandle is an opaque reference to a ray owned by the RayEngine
type RayHandle interface {
	Weight() float64 // accumulated importance of the ray
	Depth() int      // reflection depth of the ray
}

// RayRequest describes a child ray the shader wants traced
type RayRequest struct {
	Parent      RayHandle
	Kind        RayKind
	Origin      core.Vec3
	Direction   core.Vec3
	Coefficient core.SpectralColor
	Sampling    core.SamplingContext
}

// RayEngine spawns and traces secondary rays.
// Spawn returns false when the engine culls the ray (weight, depth or roulette).
type RayEngine interface {
	Spawn(req RayRequest) (RayHandle, bool)
	Trace(h RayHandle) core.SpectralColor
	Distance(h RayHandle) float64
}

// AmbientCache provides the indirect irradiance estimate at a point
type AmbientCache interface {
	Estimate(point, normal core.Vec3) core.SpectralColor
}

// SourceFunc returns the reflectance coefficient toward one light sample of
// solid angle omega in direction lightDir
type SourceFunc func(lightDir core.Vec3, omega float64) core.SpectralColor

// DirectLightIntegrator visits the light samples visible from a point,
// weights each source's radiance by fn and returns the sum
type DirectLightIntegrator interface {
	ForEachVisibleSource(point, normal core.Vec3, fn SourceFunc) core.SpectralColor
}

// Perturbation is the result of texture and pattern evaluation at a hit
type Perturbation struct {
	Normal core.Vec3          // perturbed shading normal; zero means derive it from Offset
	Offset core.Vec3          // perturbation added to the surface normal
	Color  core.SpectralColor // pattern color; zero channels means unmodified
}

// TextureSystem evaluates the texture and pattern modifiers of a hit
type TextureSystem interface {
	Perturb(hit *Hit) Perturbation
}

// Hit is a ray-surface intersection handed to the shader by the ray engine
type Hit struct {
	Point    core.Vec3 // intersection point
	Incident core.Vec3 // unit direction of the incoming ray
	Normal   core.Vec3 // unit geometric normal, as modeled (not yet oriented toward the ray)
	Distance float64   // distance from the ray origin to Point
	ObjectID int       // identity of the intersected object
	Flat     bool      // the surface is planar

	Kind     RayKind
	Ray      RayHandle // the incoming ray, parent of any spawned rays
	Sampling core.SamplingContext

	// SpecularAccounted is set when the specular part of source contributions
	// is already carried by another mechanism and must not be added again
	SpecularAccounted bool
}

// Dot returns the cosine between the reversed ray direction and the normal.
// A negative value means the back face was hit.
func (h *Hit) Dot() float64 {
	return -h.Incident.Dot(h.Normal)
}

// weight returns the incoming ray weight, 1 for untracked rays
func (h *Hit) weight() float64 {
	if h.Ray == nil {
		return 1
	}
	return h.Ray.Weight()
}
