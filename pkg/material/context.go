package material

import (
	"strings"

	"github.com/df07/go-ward-shading/pkg/core"
)

// minPDot keeps the perturbed dot product away from zero for the
// transmission terms that divide by it
const minPDot = 0.001

// SurfaceContext is the per-hit geometry seen by the reflectance models.
// Vectors are oriented toward the incoming ray.
type SurfaceContext struct {
	Point    core.Vec3
	Incident core.Vec3 // rdir
	Normal   core.Vec3 // geometric normal facing the ray
	RayDot   float64   // -Incident·Normal

	ShadingNormal core.Vec3          // perturbed normal
	Offset        core.Vec3          // texture perturbation vector
	PDot          float64            // -Incident·ShadingNormal, at least minPDot
	RawPDot       float64            // PDot before clamping, negative when the perturbation faces away
	PatternColor  core.SpectralColor // pattern modulation

	BackFace   bool // the hit was on the back face and has been flipped
	HasTexture bool // Offset is non-negligible
	Flat       bool // planar and unperturbed

	Kind              RayKind
	Distance          float64
	ObjectID          int
	Ray               RayHandle
	Weight            float64
	Sampling          core.SamplingContext
	SpecularAccounted bool
}

// NewSurfaceContext orients hit toward the ray and applies the perturbation
func NewSurfaceContext(hit *Hit, pert Perturbation) SurfaceContext {
	surf := SurfaceContext{
		Point:             hit.Point,
		Incident:          hit.Incident,
		Normal:            hit.Normal,
		RayDot:            hit.Dot(),
		Offset:            pert.Offset,
		PatternColor:      pert.Color,
		Kind:              hit.Kind,
		Distance:          hit.Distance,
		ObjectID:          hit.ObjectID,
		Ray:               hit.Ray,
		Weight:            hit.weight(),
		Sampling:          hit.Sampling,
		SpecularAccounted: hit.SpecularAccounted,
	}

	if surf.RayDot < 0 {
		surf.BackFace = true
		surf.Normal = surf.Normal.Negate()
		surf.RayDot = -surf.RayDot
		surf.Offset = surf.Offset.Negate()
		if pert.Normal != (core.Vec3{}) {
			pert.Normal = pert.Normal.Negate()
		}
	}

	surf.HasTexture = surf.Offset.LengthSquared() > core.Epsilon*core.Epsilon
	switch {
	case pert.Normal != (core.Vec3{}):
		surf.ShadingNormal = pert.Normal.Normalize()
		surf.PDot = -surf.Incident.Dot(surf.ShadingNormal)
	case surf.HasTexture:
		surf.ShadingNormal = surf.Normal.Add(surf.Offset).Normalize()
		surf.PDot = -surf.Incident.Dot(surf.ShadingNormal)
	default:
		surf.ShadingNormal = surf.Normal
		surf.PDot = surf.RayDot
	}
	surf.RawPDot = surf.PDot
	if surf.PDot < minPDot {
		surf.PDot = minPDot
	}

	surf.Flat = hit.Flat && !surf.HasTexture
	return surf
}

// modulate applies the pattern color to c
func (s *SurfaceContext) modulate(c core.SpectralColor) core.SpectralColor {
	if s.PatternColor.Channels() == 0 {
		return c
	}
	return c.Multiply(s.PatternColor)
}

// SpecularState summarizes the specular lobes of one hit. It is computed once
// when the hit is prepared and never modified.
type SpecularState struct {
	HasReflection              bool
	HasTransmission            bool
	IsPureSpecular             bool
	IsFlat                     bool
	ReflectionBelowThreshold   bool
	TransmissionBelowThreshold bool
}

// SampleReflection reports whether the reflected lobe needs stochastic sampling
func (s SpecularState) SampleReflection() bool {
	return s.HasReflection && !s.IsPureSpecular && !s.ReflectionBelowThreshold
}

// SampleTransmission reports whether the transmitted lobe needs stochastic sampling
func (s SpecularState) SampleTransmission() bool {
	return s.HasTransmission && !s.IsPureSpecular && !s.TransmissionBelowThreshold
}

func (s SpecularState) String() string {
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{s.HasReflection, "refl"},
		{s.HasTransmission, "tran"},
		{s.IsPureSpecular, "pure"},
		{s.IsFlat, "flat"},
		{s.ReflectionBelowThreshold, "rblt"},
		{s.TransmissionBelowThreshold, "tblt"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	return "{" + strings.Join(flags, ",") + "}"
}
