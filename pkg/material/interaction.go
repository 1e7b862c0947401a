package material

import (
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
)

// Interaction is everything derived from a material at one hit: the energy
// split between diffuse, specular and transmitted lobes, the specular color
// and the lobe distribution. It is built by Prepare and read-only afterward.
type Interaction struct {
	Material Material
	Surface  SurfaceContext
	State    SpecularState

	params core.RenderParams
	logger core.Logger

	mcolor core.SpectralColor // material color times pattern
	scolor core.SpectralColor // specular reflection color
	rdiff  float64
	rspec  float64
	trans  float64
	tdiff  float64
	tspec  float64

	crdiff core.SpectralColor // colored diffuse reflectance, BRTD only
	ctdiff core.SpectralColor // colored diffuse transmittance, BRTD only

	fresnel float64   // Fresnel estimate at the view angle, 0 when unused
	prdir   core.Vec3 // straight-through transmitted direction

	dist  distribution // nil for pure specular and generic materials
	frame frame        // u and v are only set for anisotropic materials
}

// Prepare derives the per-hit shading state of m. A nil logger drops warnings.
func Prepare(m Material, surf SurfaceContext, params core.RenderParams, logger core.Logger) *Interaction {
	it := &Interaction{
		Material: m,
		Surface:  surf,
		params:   params,
		logger:   logger,
		frame:    frame{n: surf.ShadingNormal},
	}
	it.mcolor = surf.modulate(m.base().Color)

	switch mat := m.(type) {
	case *Isotropic:
		it.prepareIsotropic(mat, mat.Roughness*mat.Roughness)
	case *Anisotropic:
		it.prepareAnisotropic(mat)
	case *Generic:
		it.prepareGeneric(mat)
	case *BRTD:
		it.prepareBRTD(mat)
	}
	return it
}

// Diffuse returns the diffuse reflected and diffuse transmitted fractions
func (it *Interaction) Diffuse() (rdiff, tdiff float64) {
	return it.rdiff, it.tdiff
}

// Specular returns the specular reflected, total transmitted and specular
// transmitted fractions
func (it *Interaction) Specular() (rspec, trans, tspec float64) {
	return it.rspec, it.trans, it.tspec
}

// SpecularColor returns the color of the specular reflection
func (it *Interaction) SpecularColor() core.SpectralColor {
	return it.scolor
}

// Color returns the pattern-modulated material color
func (it *Interaction) Color() core.SpectralColor {
	return it.mcolor
}

func (it *Interaction) warn(format string, args ...interface{}) {
	if it.logger == nil {
		return
	}
	prefix := []interface{}{it.Material.Name()}
	it.logger.Printf("Warning: %s: "+format+"\n", append(prefix, args...)...)
}

// belowThreshold reports whether a specular fraction is small enough to be
// folded into the ambient estimate instead of being sampled
func (it *Interaction) belowThreshold(fraction float64) bool {
	return it.params.SpecularThreshold >= fraction-core.Epsilon
}

// transmission splits the transmitted energy after the specular reflectance
// is known
func (it *Interaction) transmission(b *Base) {
	if b.Transmission <= 0 {
		return
	}
	it.trans = b.Transmission * (1 - it.rspec)
	it.tspec = it.trans * b.TransmittedSpecular
	it.tdiff = it.trans - it.tspec
	if it.tspec > core.Epsilon {
		it.State.HasTransmission = true
		it.prdir = it.straightThrough()
	}
}

// straightThrough returns the transmitted direction bent by the texture
// perturbation when there is one
func (it *Interaction) straightThrough() core.Vec3 {
	s := &it.Surface
	if !s.HasTexture || s.Kind == RayShadow || s.Kind == RayAmbient {
		return s.Incident
	}
	prdir := s.Incident.Subtract(s.Offset)
	if prdir.Dot(s.Normal) < -core.Epsilon {
		return prdir.Normalize()
	}
	return s.Incident
}

func (it *Interaction) prepareIsotropic(m *Isotropic, alpha2 float64) {
	pure := alpha2 <= core.Epsilon
	it.State.IsPureSpecular = pure
	it.State.IsFlat = it.Surface.Flat

	it.rspec = m.Specularity
	if pure && it.rspec >= FresnelThreshold {
		it.fresnel = ApproxFresnel(it.Surface.PDot)
		it.rspec += it.fresnel * (1 - it.rspec)
	}

	it.transmission(&m.Base)
	if it.State.HasTransmission && !pure && it.belowThreshold(it.tspec) {
		it.State.TransmissionBelowThreshold = true
	}
	it.rdiff = 1 - it.trans - it.rspec

	if it.rspec > core.Epsilon {
		it.State.HasReflection = true
		n := it.mcolor.Channels()
		switch {
		case !m.Metal:
			it.scolor = core.NewGray(n, it.rspec)
		case it.fresnel > core.Epsilon:
			// metal highlights whiten toward grazing
			d := m.Specularity * (1 - it.fresnel)
			it.scolor = core.NewGray(n, it.fresnel).Add(it.mcolor.Scale(d))
		default:
			it.scolor = it.mcolor.Scale(it.rspec)
		}
		if !pure && it.belowThreshold(it.rspec) {
			it.State.ReflectionBelowThreshold = true
		}
	}

	if !pure {
		it.dist = isoGaussian{alpha2: alpha2}
	}
}

func (it *Interaction) prepareAnisotropic(m *Anisotropic) {
	ua, va := m.URoughness, m.VRoughness
	if ua <= core.Epsilon || va <= core.Epsilon {
		if ua <= core.Epsilon && va <= core.Epsilon {
			it.warn("roughness too small, shading as a mirror")
			it.prepareIsotropic(&Isotropic{Base: m.Base}, 0)
			return
		}
		it.warn("roughness too small (%g, %g), using average", ua, va)
		ua = math.Sqrt(0.5 * (ua*ua + va*va))
		va = ua
	}

	it.State.IsFlat = it.Surface.Flat
	it.rspec = m.Specularity
	if it.rspec > core.Epsilon {
		it.State.HasReflection = true
		if m.Metal {
			it.scolor = it.mcolor.Scale(it.rspec)
		} else {
			it.scolor = core.NewGray(it.mcolor.Channels(), it.rspec)
		}
		if it.belowThreshold(it.rspec) {
			it.State.ReflectionBelowThreshold = true
		}
	}

	it.transmission(&m.Base)
	if it.State.HasTransmission && it.belowThreshold(it.tspec) {
		it.State.TransmissionBelowThreshold = true
	}
	it.rdiff = 1 - it.trans - it.rspec

	ua, va = it.orient(m, ua, va)
	it.dist = anisoGaussian{uAlpha: ua, vAlpha: va}
}

// orient sets up the anisotropy frame. An orientation collinear with the
// shading normal has no projection; an arbitrary tangent is chosen and the
// roughness is averaged.
func (it *Interaction) orient(m *Anisotropic, ua, va float64) (float64, float64) {
	n := it.Surface.ShadingNormal
	u := m.orientation(&it.Surface)
	v, length := n.Cross(u).NormalizeLength()
	if length == 0 {
		if math.Abs(ua-va) > 0.001 {
			it.warn("illegal orientation vector")
		}
		u = core.Perpendicular(n, nil)
		v = n.Cross(u)
		avg := math.Sqrt(0.5 * (ua*ua + va*va))
		ua, va = avg, avg
	} else {
		u = v.Cross(n)
	}
	it.frame = frame{n: n, u: u, v: v}
	return ua, va
}

func (it *Interaction) prepareGeneric(m *Generic) {
	it.rspec = m.Specularity
	it.State.HasReflection = it.rspec > core.Epsilon
	if m.Transmission > 0 {
		it.trans = m.Transmission * (1 - it.rspec)
		it.tspec = it.trans * m.TransmittedSpecular
		it.tdiff = it.trans - it.tspec
		it.State.HasTransmission = it.tspec > core.Epsilon
	}
	it.rdiff = 1 - it.trans - it.rspec
	it.State.IsFlat = it.Surface.Flat
}
