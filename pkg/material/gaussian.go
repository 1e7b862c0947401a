package material

import (
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
)

// frame is the shading normal with two tangents spanning the surface
type frame struct {
	n, u, v core.Vec3
}

// distribution is a Gaussian facet slope distribution. Evaluate and the
// specular sampler are written once against this interface.
type distribution interface {
	// reflectDensity returns the normalized reflection density for the
	// unnormalized half-vector h; broaden is added to the squared roughness
	reflectDensity(f frame, h core.Vec3, broaden float64) float64

	// transmitDensity returns the transmission density for h = ldir - prdir,
	// before the sqrt(-ldot/pdot) projection factor
	transmitDensity(f frame, h core.Vec3, broaden float64) float64

	// offset maps the sample angle and radius variate to a tangent-plane
	// half-vector offset d*(cosp*u + sinp*v)
	offset(phi, rv float64) (cosp, sinp, d float64)
}

// isoGaussian is the isotropic distribution with squared roughness alpha2
type isoGaussian struct {
	alpha2 float64
}

func (g isoGaussian) reflectDensity(f frame, h core.Vec3, broaden float64) float64 {
	eff := g.alpha2 + broaden
	d2 := h.Dot(f.n)
	d2 *= d2
	if d2 <= core.Epsilon*core.Epsilon || eff <= 0 {
		return 0
	}
	d3 := h.Dot(h)
	d4 := (d3 - d2) / d2
	return math.Exp(-d4/eff) * d3 / (math.Pi * d2 * d2 * eff)
}

func (g isoGaussian) transmitDensity(f frame, h core.Vec3, broaden float64) float64 {
	eff := g.alpha2 + broaden
	if eff <= 0 {
		return 0
	}
	// |ldir - prdir|^2 = 2 - 2*(ldir·prdir) for unit vectors
	return math.Exp(-h.Dot(h)/eff) / (math.Pi * eff)
}

func (g isoGaussian) offset(phi, rv float64) (cosp, sinp, d float64) {
	cosp, sinp = math.Cos(phi), math.Sin(phi)
	if rv <= core.Epsilon {
		return cosp, sinp, 1
	}
	return cosp, sinp, math.Sqrt(g.alpha2 * -math.Log(rv))
}

// anisoGaussian is the elliptical distribution with roughness along u and v
type anisoGaussian struct {
	uAlpha, vAlpha float64
}

func (g anisoGaussian) reflectDensity(f frame, h core.Vec3, broaden float64) float64 {
	au2 := g.uAlpha*g.uAlpha + broaden
	av2 := g.vAlpha*g.vAlpha + broaden
	dn := h.Dot(f.n)
	dn *= dn
	if dn <= core.Epsilon*core.Epsilon || au2 <= 0 || av2 <= 0 {
		return 0
	}
	pu := h.Dot(f.u)
	pv := h.Dot(f.v)
	ratio := (pu*pu/au2 + pv*pv/av2) / dn
	return math.Exp(-ratio) * h.Dot(h) / (math.Pi * dn * dn * math.Sqrt(au2*av2))
}

func (g anisoGaussian) transmitDensity(f frame, h core.Vec3, broaden float64) float64 {
	au2 := g.uAlpha*g.uAlpha + broaden
	av2 := g.vAlpha*g.vAlpha + broaden
	if au2 <= 0 || av2 <= 0 {
		return 0
	}
	gauss := 1.0
	hh := h.Dot(h)
	if hh > core.Epsilon*core.Epsilon {
		hn := h.Dot(f.n)
		tangential := 1 - hn*hn/hh
		if tangential > core.Epsilon*core.Epsilon {
			pu := h.Dot(f.u)
			pv := h.Dot(f.v)
			gauss = math.Exp(-(pu*pu/au2 + pv*pv/av2) / tangential)
		}
	}
	return gauss / (math.Pi * math.Sqrt(au2*av2))
}

func (g anisoGaussian) offset(phi, rv float64) (cosp, sinp, d float64) {
	cosp = math.Cos(phi) * g.uAlpha
	sinp = math.Sin(phi) * g.vAlpha
	norm := 1 / math.Sqrt(cosp*cosp+sinp*sinp)
	cosp *= norm
	sinp *= norm
	if rv <= core.Epsilon {
		return cosp, sinp, 1
	}
	d = math.Sqrt(-math.Log(rv) /
		(cosp*cosp/(g.uAlpha*g.uAlpha) + sinp*sinp/(g.vAlpha*g.vAlpha)))
	return cosp, sinp, d
}
