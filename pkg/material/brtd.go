package material

import (
	"fmt"
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
)

// BRTD is a colored reflectance-transmittance material. Its diffuse terms
// are fixed colors. Its non-diffuse part is one function per color band,
// and the pure mirror and straight-through rays carry colors computed by
// functions.
type BRTD struct {
	Base // Color modulates both diffuse terms; the specular fractions are unused

	FrontDiffuse    core.SpectralColor // diffuse reflectance seen from the front
	BackDiffuse     core.SpectralColor // diffuse reflectance seen from the back
	DiffuseTransmit core.SpectralColor

	// Reflected and Transmitted give the red, green and blue coefficients of
	// the mirror and straight-through rays. They are called without
	// arguments. Nil entries are zero.
	Reflected   [3]BRDFFunc
	Transmitted [3]BRDFFunc

	// Directional is the red, green and blue non-diffuse BRTD toward a
	// light, called with (lx, ly, lz, omega). Nil entries are zero.
	Directional [3]BRDFFunc

	Transform Transform // world to function frame; zero value is identity
}

// NewBRTD creates a material with the given diffuse colors and no
// non-diffuse part
func NewBRTD(front, back, transmit core.SpectralColor) *BRTD {
	return &BRTD{
		Base:            Base{Color: core.NewGray(front.Channels(), 1)},
		FrontDiffuse:    front,
		BackDiffuse:     back,
		DiffuseTransmit: transmit,
		Transform:       IdentityTransform(),
	}
}

func (m *BRTD) Kind() Kind { return KindBRTD }

// Validate checks the material parameters
func (m *BRTD) Validate() error {
	if err := m.Base.validate(); err != nil {
		return err
	}
	n := m.Color.Channels()
	for _, d := range []struct {
		name  string
		color core.SpectralColor
	}{
		{"front diffuse", m.FrontDiffuse},
		{"back diffuse", m.BackDiffuse},
		{"diffuse transmittance", m.DiffuseTransmit},
	} {
		if c := d.color.Channels(); c != 0 && c != n {
			return fmt.Errorf("%s: %w: %s has %d channels, color has %d", m.Name(), ErrBadArgument, d.name, c, n)
		}
		for i := 0; i < d.color.Channels(); i++ {
			if d.color.Channel(i) < 0 {
				return fmt.Errorf("%s: %w: negative %s channel %d", m.Name(), ErrBadArgument, d.name, i)
			}
		}
	}
	return nil
}

// bands evaluates one function per color band and expands the result to n
// channels. It also returns the brightness of the three bands.
func bands(fns [3]BRDFFunc, n int, env FuncEnv, args ...float64) (core.SpectralColor, float64, error) {
	var v [3]float64
	for i, fn := range fns {
		x, err := call(fn, env, args...)
		if err != nil {
			return core.SpectralColor{}, 0, err
		}
		v[i] = x
	}
	return core.FromRGB(n, v[0], v[1], v[2]), core.NewRGB(v[0], v[1], v[2]).Brightness(), nil
}

func orBlack(c core.SpectralColor, n int) core.SpectralColor {
	if c.Channels() == 0 {
		return core.Black(n)
	}
	return c
}

func (it *Interaction) prepareBRTD(m *BRTD) {
	// light is accepted from both sides and the function values are used
	// as they are
	it.rspec, it.tspec, it.trans = 1, 1, 0.5

	n := it.mcolor.Channels()
	front := m.FrontDiffuse
	if it.Surface.BackFace {
		front = m.BackDiffuse
	}
	it.crdiff = orBlack(front, n).Multiply(it.mcolor)
	it.ctdiff = orBlack(m.DiffuseTransmit, n).Multiply(it.mcolor)
	it.rdiff = it.crdiff.Brightness()
	it.tdiff = it.ctdiff.Brightness()

	it.State.HasReflection = true
	it.State.HasTransmission = true
	it.State.IsFlat = it.Surface.Flat
	it.prdir = it.straightThrough()
}

// evaluateBRTD is the source contribution for colored function materials
func (it *Interaction) evaluateBRTD(m *BRTD, ldir core.Vec3, omega float64) core.SpectralColor {
	n := it.mcolor.Channels()
	result := core.Black(n)

	ldot := it.Surface.ShadingNormal.Dot(ldir)
	if ldot <= core.Epsilon && ldot >= -core.Epsilon {
		return result // too close to grazing
	}
	cos := math.Abs(ldot)
	if ldot > 0 {
		result = result.Add(it.crdiff.Scale(cos * omega / math.Pi))
	} else {
		result = result.Add(it.ctdiff.Scale(cos * omega / math.Pi))
	}
	if it.Surface.SpecularAccounted {
		return result
	}

	l := m.Transform.Direction(ldir)
	c, bright, err := bands(m.Directional, n, it.funcEnv(m.Transform), l.X, l.Y, l.Z, omega)
	if err != nil {
		it.warn("%v", err)
		return result
	}
	if bright <= core.Epsilon {
		return result
	}
	return result.Add(c.Scale(cos * omega))
}

// hasDirectional reports whether any band has a non-diffuse function
func (m *BRTD) hasDirectional() bool {
	for _, fn := range m.Directional {
		if fn != nil {
			return true
		}
	}
	return false
}

// shadeBRTD traces the function-weighted straight-through and mirror rays,
// then adds the diffuse ambient and direct terms
func (s *Shader) shadeBRTD(m *BRTD, hit *Hit, it *Interaction, res Result) Result {
	res = s.transmitBRTD(m, it, res)

	surf := &it.Surface
	n := it.mcolor.Channels()
	coef, _, err := bands(m.Reflected, n, it.funcEnv(m.Transform))
	if err != nil {
		it.warn("%v", err)
	} else if !coef.IsBlack(0) {
		h, ok := s.engine.Spawn(RayRequest{
			Parent:      surf.Ray,
			Kind:        RayReflected,
			Origin:      surf.Point,
			Direction:   surf.Incident.AddScaled(surf.ShadingNormal, 2*surf.RawPDot).Normalize(),
			Coefficient: coef,
			Sampling:    surf.Sampling,
		})
		if ok {
			c := s.engine.Trace(h).Multiply(coef)
			res.Color = res.Color.Add(c)
			res.Mirror = c
			res.MirrorDistance = surf.Distance
			if hit.Flat && (!surf.HasTexture || surf.Kind == RayAmbient) {
				res.MirrorDistance += s.engine.Distance(h)
			}
		}
	}

	hasRefl := it.rdiff > core.Epsilon
	hasTrans := it.tdiff > core.Epsilon
	if s.ambient != nil {
		if hasRefl {
			res.Color = res.Color.Add(s.ambient.Estimate(surf.Point, surf.ShadingNormal).Multiply(it.crdiff))
		}
		if hasTrans {
			res.Color = res.Color.Add(s.ambient.Estimate(surf.Point, surf.ShadingNormal.Negate()).Multiply(it.ctdiff))
		}
	}
	if s.direct != nil && (hasRefl || hasTrans || m.hasDirectional()) {
		res.Color = res.Color.Add(s.direct.ForEachVisibleSource(surf.Point, surf.ShadingNormal, it.Evaluate))
	}
	return res
}

// transmitBRTD traces the straight-through ray weighted by the transmitted
// color functions. It is the only part of the material seen by shadow rays.
func (s *Shader) transmitBRTD(m *BRTD, it *Interaction, res Result) Result {
	surf := &it.Surface
	coef, _, err := bands(m.Transmitted, it.mcolor.Channels(), it.funcEnv(m.Transform))
	if err != nil {
		it.warn("%v", err)
		return res
	}
	if coef.IsBlack(0) {
		return res
	}
	h, ok := s.engine.Spawn(RayRequest{
		Parent:      surf.Ray,
		Kind:        RayTransmitted,
		Origin:      surf.Point,
		Direction:   it.prdir,
		Coefficient: coef,
		Sampling:    surf.Sampling,
	})
	if !ok {
		return res
	}
	res.Color = res.Color.Add(s.engine.Trace(h).Multiply(coef))
	res.TransmitDistance = surf.Distance + s.engine.Distance(h)
	unbent := !surf.HasTexture || surf.Kind == RayShadow || surf.Kind == RayAmbient
	if unbent && 1 > it.rdiff+it.tdiff {
		res.Distance = res.TransmitDistance
	}
	return res
}
