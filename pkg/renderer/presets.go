package renderer

import (
	"fmt"
	"math"
	"strings"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

// presetNames lists the preview materials in display order
var presetNames = []string{"plastic", "metal", "mirror", "brushed", "glass", "generic", "tinted"}

// PresetNames returns the names accepted by NewPresetMaterial
func PresetNames() []string {
	return append([]string(nil), presetNames...)
}

// NewPresetMaterial returns a labeled preview material by name
func NewPresetMaterial(name string) (material.Material, error) {
	switch name {
	case "plastic":
		m := material.NewPlastic(core.NewRGB(0.7, 0.15, 0.1), 0.05, 0.08)
		m.Label = name
		return m, nil
	case "metal":
		m := material.NewMetal(core.NewRGB(0.85, 0.65, 0.3), 0.9, 0.15)
		m.Label = name
		return m, nil
	case "mirror":
		m := material.NewMetal(core.NewRGB(0.9, 0.9, 0.9), 0.95, 0)
		m.Label = name
		return m, nil
	case "brushed":
		m := material.NewAnisotropic(core.NewRGB(0.7, 0.7, 0.75), 0.8, core.NewVec3(0, 1, 0), 0.04, 0.25, true)
		m.Label = name
		return m, nil
	case "glass":
		m := material.NewTrans(core.NewRGB(0.6, 0.8, 0.9), 0.05, 0.02, 0.9, 0.8)
		m.Label = name
		return m, nil
	case "generic":
		// a soft lobe that peaks for light arriving along the normal
		m := material.NewGeneric(core.NewRGB(0.2, 0.4, 0.8), 0.3, func(env material.FuncEnv, args ...float64) float64 {
			cos := env.NxP*args[0] + env.NyP*args[1] + env.NzP*args[2]
			if cos <= 0 {
				return 0
			}
			return 9 * math.Pow(cos, 8) / (2 * math.Pi)
		})
		m.Label = name
		return m, nil
	case "tinted":
		// a tinted film with a grazing-angle sheen and a green forward lobe
		m := material.NewBRTD(core.NewRGB(0.1, 0.05, 0.02), core.NewRGB(0.05, 0.05, 0.05), core.NewRGB(0.1, 0.15, 0.1))
		sheen := func(env material.FuncEnv, args ...float64) float64 {
			return 0.04 + 0.96*math.Pow(1-math.Abs(env.RdotP), 5)
		}
		m.Reflected = [3]material.BRDFFunc{sheen, sheen, sheen}
		m.Transmitted = [3]material.BRDFFunc{constant(0.2), constant(0.45), constant(0.3)}
		m.Directional = [3]material.BRDFFunc{lobe(0.1), lobe(0.3), lobe(0.2)}
		m.Label = name
		return m, nil
	}
	return nil, fmt.Errorf("unknown material %q (available: %s)", name, strings.Join(presetNames, ", "))
}

// constant returns a function of fixed value
func constant(v float64) material.BRDFFunc {
	return func(material.FuncEnv, ...float64) float64 { return v }
}

// lobe returns a soft lobe around the normal on both sides of the surface
func lobe(peak float64) material.BRDFFunc {
	return func(env material.FuncEnv, args ...float64) float64 {
		cos := math.Abs(env.NxP*args[0] + env.NyP*args[1] + env.NzP*args[2])
		return peak * math.Pow(cos, 4) / math.Pi
	}
}
