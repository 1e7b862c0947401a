package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-ward-shading/pkg/core"
)

// ErrComputeDomain reports a NaN, infinity or panic from a user function
var ErrComputeDomain = errors.New("compute error")

// FuncEnv is the per-call environment handed to user reflectance functions.
// It lives only for the duration of one evaluation.
type FuncEnv struct {
	NxP, NyP, NzP float64 // perturbed normal in the function frame
	RdotP         float64 // perturbed ray dot product
	CrP, CgP, CbP float64 // pattern-modulated material color
}

// BRDFFunc computes a reflectance value. Without a data table the arguments
// are the light direction in the function frame and the source solid angle
// (lx, ly, lz, omega); with a table the interpolated value is prepended.
type BRDFFunc func(env FuncEnv, args ...float64) float64

// Transform maps world directions into a function frame with a uniform scale
type Transform struct {
	m     mgl64.Mat4
	scale float64
}

// IdentityTransform returns the transform that leaves directions unchanged
func IdentityTransform() Transform {
	return Transform{m: mgl64.Ident4(), scale: 1}
}

// NewTransform builds a uniform scale followed by a rotation of angle
// radians about axis
func NewTransform(axis core.Vec3, angle, scale float64) (Transform, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Transform{}, fmt.Errorf("%w: transform scale must be positive, got %g", ErrBadArgument, scale)
	}
	m := mgl64.Scale3D(scale, scale, scale)
	if angle != 0 {
		if axis.LengthSquared() == 0 {
			return Transform{}, fmt.Errorf("%w: rotation axis is zero", ErrBadArgument)
		}
		a := mgl64.Vec3{axis.X, axis.Y, axis.Z}.Normalize()
		m = mgl64.HomogRotate3D(angle, a).Mul4(m)
	}
	return Transform{m: m, scale: scale}, nil
}

// Then returns the transform applying t and then next
func (t Transform) Then(next Transform) Transform {
	t = t.resolved()
	next = next.resolved()
	return Transform{m: next.m.Mul4(t.m), scale: t.scale * next.scale}
}

// Scale returns the uniform scale factor
func (t Transform) Scale() float64 {
	return t.resolved().scale
}

// Direction maps a world direction into the function frame with the scale
// divided out
func (t Transform) Direction(v core.Vec3) core.Vec3 {
	t = t.resolved()
	r := t.m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 0})
	return core.NewVec3(r[0], r[1], r[2]).Multiply(1 / t.scale)
}

func (t Transform) resolved() Transform {
	if t.scale == 0 {
		return IdentityTransform()
	}
	return t
}

// rgb reduces a spectral color to three bands by averaging channel groups
func rgb(c core.SpectralColor) (r, g, b float64) {
	if c.Channels() == 0 {
		return 1, 1, 1
	}
	return c.RGB()
}

// funcEnv builds the environment for one function evaluation at it, with
// the normal mapped through t
func (it *Interaction) funcEnv(t Transform) FuncEnv {
	n := t.Direction(it.Surface.ShadingNormal)
	r, g, b := rgb(it.mcolor)
	return FuncEnv{
		NxP: n.X, NyP: n.Y, NzP: n.Z,
		RdotP: it.Surface.RawPDot,
		CrP:   r, CgP: g, CbP: b,
	}
}

// call evaluates fn, turning a panic or a non-finite result into
// ErrComputeDomain. A nil fn is zero.
func call(fn BRDFFunc, env FuncEnv, args ...float64) (value float64, err error) {
	if fn == nil {
		return 0, nil
	}
	defer func() {
		if r := recover(); r != nil {
			value = 0
			err = fmt.Errorf("%w: %v", ErrComputeDomain, r)
		}
	}()
	value = fn(env, args...)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: function returned %g", ErrComputeDomain, value)
	}
	return value, nil
}

// reflectance evaluates the material function for one light direction
func (m *Generic) reflectance(env FuncEnv, args []float64) (float64, error) {
	if m.Data == nil {
		return call(m.Function, env, args...)
	}
	pt := make([]float64, len(m.Coordinates))
	for i, coord := range m.Coordinates {
		v, err := call(coord, env, args...)
		if err != nil {
			return 0, fmt.Errorf("data coordinate %d: %w", i, err)
		}
		pt[i] = v
	}
	withData := make([]float64, 0, len(args)+1)
	withData = append(withData, m.Data.Value(pt))
	return call(m.Function, env, append(withData, args...)...)
}

// evaluateGeneric is the source contribution for function-driven materials
func (it *Interaction) evaluateGeneric(m *Generic, ldir core.Vec3, omega float64) core.SpectralColor {
	result := core.Black(it.mcolor.Channels())

	ldot := it.Surface.ShadingNormal.Dot(ldir)
	if ldot <= core.Epsilon && ldot >= -core.Epsilon {
		return result // too close to grazing
	}
	if !it.correctSide(ldot) {
		return result
	}

	if ldot > 0 {
		result = result.Add(it.mcolor.Scale(it.rdiff * ldot * omega / math.Pi))
	} else {
		result = result.Add(it.mcolor.Scale(it.tdiff * -ldot * omega / math.Pi))
	}

	if ldot > 0 && it.rspec <= core.Epsilon || ldot < 0 && it.tspec <= core.Epsilon {
		return result
	}
	if it.Surface.SpecularAccounted {
		return result
	}

	l := m.Transform.Direction(ldir)
	value, err := m.reflectance(it.funcEnv(m.Transform), []float64{l.X, l.Y, l.Z, omega})
	if err != nil {
		it.warn("%v", err)
		return result
	}
	if value <= core.Epsilon {
		return result
	}

	spec := core.NewGray(it.mcolor.Channels(), value)
	if ldot > 0 {
		if m.Metal {
			spec = spec.Multiply(it.mcolor)
		}
		return result.Add(spec.Scale(ldot * omega * it.rspec))
	}
	// transmitted non-diffuse light always takes the material color
	spec = spec.Multiply(it.mcolor)
	return result.Add(spec.Scale(-ldot * omega * it.tspec))
}
