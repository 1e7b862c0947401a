package material

import (
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
)

// Evaluate prepares m at surf and returns its contribution coefficient for
// one light sample. It has no side effects beyond warnings, which are dropped.
func Evaluate(m Material, surf SurfaceContext, params core.RenderParams, lightDir core.Vec3, omega float64) core.SpectralColor {
	return Prepare(m, surf, params, nil).Evaluate(lightDir, omega)
}

// correctSide rejects light from a side the material cannot scatter toward
func (it *Interaction) correctSide(ldot float64) bool {
	if ldot < 0 {
		return it.trans > core.Epsilon
	}
	return it.trans < 1-core.Epsilon
}

// Evaluate returns the reflectance coefficient toward a light sample in
// direction lightDir subtending omega steradians. It is used as the
// DirectLightIntegrator callback.
func (it *Interaction) Evaluate(lightDir core.Vec3, omega float64) core.SpectralColor {
	switch m := it.Material.(type) {
	case *Generic:
		return it.evaluateGeneric(m, lightDir, omega)
	case *BRTD:
		return it.evaluateBRTD(m, lightDir, omega)
	}

	result := core.Black(it.mcolor.Channels())
	ldot := it.Surface.ShadingNormal.Dot(lightDir)
	if !it.correctSide(ldot) {
		return result
	}

	lrdiff, ltdiff := it.rdiff, it.tdiff
	if it.State.IsPureSpecular && it.rspec >= FresnelThreshold &&
		(lrdiff > core.Epsilon || ltdiff > core.Epsilon) {
		f := 1 - ApproxFresnel(math.Abs(ldot))
		lrdiff *= f
		ltdiff *= f
	}

	if ldot > core.Epsilon && lrdiff > core.Epsilon {
		result = result.Add(it.mcolor.Scale(ldot * omega * lrdiff / math.Pi))
	}
	if ldot < -core.Epsilon && ltdiff > core.Epsilon {
		result = result.Add(it.mcolor.Scale(-ldot * omega * ltdiff / math.Pi))
	}

	if it.Surface.SpecularAccounted || it.dist == nil {
		return result
	}

	if ldot > core.Epsilon && it.State.HasReflection {
		broaden := 0.0
		if it.State.IsFlat {
			broaden = (1 - it.params.SourceJitter) * omega * (0.25 / math.Pi)
		}
		h := lightDir.Subtract(it.Surface.Incident)
		density := it.dist.reflectDensity(it.frame, h, broaden)
		if density > core.Epsilon {
			result = result.Add(it.scolor.Scale(density * ldot * omega))
		}
	}

	if ldot < -core.Epsilon && it.State.HasTransmission {
		h := lightDir.Subtract(it.prdir)
		density := it.dist.transmitDensity(it.frame, h, omega/math.Pi)
		projected := density * math.Sqrt(-ldot/it.Surface.PDot)
		// the isotropic cutoff is taken before projection
		cutoff := projected
		if _, iso := it.dist.(isoGaussian); iso {
			cutoff = density
		}
		if cutoff > core.Epsilon {
			result = result.Add(it.mcolor.Scale(projected * it.tspec * omega))
		}
	}

	return result
}
