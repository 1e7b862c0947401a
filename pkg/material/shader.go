package material

import (
	"fmt"

	"github.com/df07/go-ward-shading/pkg/core"
)

// Collaborators are the external systems a Shader consults
type Collaborators struct {
	Engine  RayEngine
	Ambient AmbientCache          // optional
	Direct  DirectLightIntegrator // optional
	Texture TextureSystem         // optional
}

// Result is the outcome of shading one hit
type Result struct {
	Color core.SpectralColor // total radiance toward the incoming ray

	Mirror           core.SpectralColor // pure mirror contribution, included in Color
	MirrorDistance   float64            // distance to the object seen in the mirror
	TransmitDistance float64            // distance to the object seen straight through

	// Distance is the effective distance of the hit: the transmitted
	// distance when the surface is mostly seen through, otherwise the hit
	// distance
	Distance float64

	Specular SampleStats
}

// ShadeFunc shades one hit with one material
type ShadeFunc func(m Material, hit *Hit, sampler core.Sampler) (Result, error)

// DispatchTable maps material kinds to their shading functions
type DispatchTable map[Kind]ShadeFunc

// Shader composes direct, ambient and specular contributions for a hit.
// It holds no per-hit state and is safe for concurrent use as long as each
// goroutine passes its own sampler.
type Shader struct {
	params   core.RenderParams
	engine   RayEngine
	ambient  AmbientCache
	direct   DirectLightIntegrator
	texture  TextureSystem
	sequence *core.SampleSequence
	logger   core.Logger
}

// NewShader creates a shader. A nil sequence uses a default 11-bit one.
func NewShader(params core.RenderParams, c Collaborators, sequence *core.SampleSequence, logger core.Logger) (*Shader, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if c.Engine == nil {
		return nil, fmt.Errorf("%w: shader needs a ray engine", ErrBadArgument)
	}
	if sequence == nil {
		sequence = core.NewSampleSequence(11, 0)
	}
	return &Shader{
		params:   params,
		engine:   c.Engine,
		ambient:  c.Ambient,
		direct:   c.Direct,
		texture:  c.Texture,
		sequence: sequence,
		logger:   logger,
	}, nil
}

// Params returns the render parameters the shader was built with
func (s *Shader) Params() core.RenderParams {
	return s.params
}

// Register installs the shader as the handler for every material kind
func (s *Shader) Register(table DispatchTable) {
	for _, k := range []Kind{KindIsotropic, KindAnisotropic, KindGeneric, KindBRTD} {
		table[k] = s.Shade
	}
}

// Shade computes the radiance leaving hit toward its incoming ray
func (s *Shader) Shade(m Material, hit *Hit, sampler core.Sampler) (Result, error) {
	if m == nil || hit == nil {
		return Result{}, fmt.Errorf("%w: nil material or hit", ErrBadArgument)
	}
	n := m.base().Color.Channels()
	res := Result{Color: core.Black(n), Mirror: core.Black(n), Distance: hit.Distance}

	if hit.Kind == RayShadow {
		return s.shadeShadow(m, hit, res), nil
	}

	if hit.Dot() < 0 && !s.params.BackFaceVisible {
		return s.passThrough(hit, res), nil
	}

	it := s.prepare(m, hit)
	if b, ok := m.(*BRTD); ok {
		return s.shadeBRTD(b, hit, it, res), nil
	}

	if _, generic := m.(*Generic); !generic {
		if it.State.IsPureSpecular && it.State.HasTransmission {
			if c, dist, ok := s.transmit(it); ok {
				res.Color = res.Color.Add(c)
				res.TransmitDistance = dist
				if it.tspec >= 1-core.Epsilon || it.tspec > it.tdiff+it.rdiff {
					// mostly seen through
					res.Distance = dist
				}
			}
		}
		if it.State.IsPureSpecular && it.State.HasReflection {
			if c, dist, ok := s.mirror(it); ok {
				res.Color = res.Color.Add(c)
				res.Mirror = c
				res.MirrorDistance = dist
			}
		}

		if it.State.IsPureSpecular && it.rdiff <= core.Epsilon && it.tdiff <= core.Epsilon {
			return res, nil
		}

		var c core.SpectralColor
		c, res.Specular = it.SampleSpecular(s.engine, s.sequence, sampler)
		res.Color = res.Color.Add(c)
	}

	res.Color = res.Color.Add(s.ambientTerm(it))

	if s.direct != nil {
		surf := &it.Surface
		res.Color = res.Color.Add(s.direct.ForEachVisibleSource(surf.Point, surf.ShadingNormal, it.Evaluate))
	}
	return res, nil
}

// prepare applies the texture to hit and derives the shading state of m
func (s *Shader) prepare(m Material, hit *Hit) *Interaction {
	var pert Perturbation
	if s.texture != nil {
		pert = s.texture.Perturb(hit)
	}
	return Prepare(m, NewSurfaceContext(hit, pert), s.params, s.logger)
}

// shadeShadow lets the straight-through transmitted part of a material
// through and blocks everything else
func (s *Shader) shadeShadow(m Material, hit *Hit, res Result) Result {
	switch mat := m.(type) {
	case *Isotropic:
		if mat.Transmission <= 0 {
			return res
		}
	case *BRTD:
	default:
		return res
	}
	if hit.Dot() < 0 && !s.params.BackFaceVisible {
		return s.passThrough(hit, res)
	}
	it := s.prepare(m, hit)
	if b, ok := m.(*BRTD); ok {
		return s.transmitBRTD(b, it, res)
	}
	if !it.State.IsPureSpecular || !it.State.HasTransmission {
		return res
	}
	if c, dist, ok := s.transmit(it); ok {
		res.Color = c
		res.TransmitDistance = dist
		res.Distance = dist
	}
	return res
}

// passThrough continues an invisible back face hit along the incoming ray
func (s *Shader) passThrough(hit *Hit, res Result) Result {
	h, ok := s.engine.Spawn(RayRequest{
		Parent:      hit.Ray,
		Kind:        RayTransmitted,
		Origin:      hit.Point,
		Direction:   hit.Incident,
		Coefficient: core.NewGray(res.Color.Channels(), 1),
		Sampling:    hit.Sampling,
	})
	if !ok {
		return res
	}
	res.Color = s.engine.Trace(h)
	res.TransmitDistance = hit.Distance + s.engine.Distance(h)
	res.Distance = res.TransmitDistance
	return res
}

// transmit traces the straight-through ray of a pure-specular transmitter
func (s *Shader) transmit(it *Interaction) (core.SpectralColor, float64, bool) {
	coef := it.mcolor.Scale(it.tspec)
	h, ok := s.engine.Spawn(RayRequest{
		Parent:      it.Surface.Ray,
		Kind:        RayTransmitted,
		Origin:      it.Surface.Point,
		Direction:   it.prdir,
		Coefficient: coef,
		Sampling:    it.Surface.Sampling,
	})
	if !ok {
		return core.SpectralColor{}, 0, false
	}
	c := s.engine.Trace(h).Multiply(coef)
	return c, it.Surface.Distance + s.engine.Distance(h), true
}

// mirror traces the reflected ray of a pure-specular surface
func (s *Shader) mirror(it *Interaction) (core.SpectralColor, float64, bool) {
	surf := &it.Surface
	dir := surf.Incident.AddScaled(surf.ShadingNormal, 2*surf.PDot)
	if surf.HasTexture && dir.Dot(surf.Normal) <= core.Epsilon {
		// perturbation sent the ray into the surface
		dir = surf.Incident.AddScaled(surf.Normal, 2*surf.RayDot)
	}
	h, ok := s.engine.Spawn(RayRequest{
		Parent:      surf.Ray,
		Kind:        RayReflected,
		Origin:      surf.Point,
		Direction:   dir.Normalize(),
		Coefficient: it.scolor,
		Sampling:    surf.Sampling,
	})
	if !ok {
		return core.SpectralColor{}, 0, false
	}
	c := s.engine.Trace(h).Multiply(it.scolor)
	return c, s.mirrorDistance(surf, h), true
}

// mirrorDistance is the distance to the object seen in a mirror ray. Only
// flat surfaces seen by ambient rays look through to the reflected object.
func (s *Shader) mirrorDistance(surf *SurfaceContext, h RayHandle) float64 {
	if surf.Flat && surf.Kind == RayAmbient {
		return surf.Distance + s.engine.Distance(h)
	}
	return surf.Distance
}

// ambientTerm returns the indirect contribution of the diffuse lobes and of
// any specular lobe too weak to sample
func (s *Shader) ambientTerm(it *Interaction) core.SpectralColor {
	total := core.Black(it.mcolor.Channels())
	if s.ambient == nil {
		return total
	}
	surf := &it.Surface

	var front, back core.SpectralColor
	if _, generic := it.Material.(*Generic); generic {
		if it.trans < 1-core.Epsilon {
			front = it.mcolor.Scale(1 - it.trans)
		}
		if it.trans > core.Epsilon {
			back = it.mcolor.Scale(it.trans)
		}
	} else {
		if it.rdiff > core.Epsilon {
			front = it.mcolor.Scale(it.rdiff)
		}
		if it.State.ReflectionBelowThreshold {
			if front.Channels() == 0 {
				front = it.scolor
			} else {
				front = front.Add(it.scolor)
			}
		}
		if it.State.TransmissionBelowThreshold {
			back = it.mcolor.Scale(it.trans)
		} else if it.tdiff > core.Epsilon {
			back = it.mcolor.Scale(it.tdiff)
		}
	}

	if front.Channels() > 0 {
		total = total.Add(s.ambient.Estimate(surf.Point, surf.ShadingNormal).Multiply(front))
	}
	if back.Channels() > 0 {
		total = total.Add(s.ambient.Estimate(surf.Point, surf.ShadingNormal.Negate()).Multiply(back))
	}
	return total
}
