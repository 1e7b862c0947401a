package material

import "math"

// FresnelThreshold is the smallest specularity that gets the Fresnel
// correction; below it the correction is negligible
const FresnelThreshold = 0.017999

// ApproxFresnel estimates the angle-dependent rise in dielectric reflectance
// for the cosine of the incident angle. It decreases monotonically on [0,1].
func ApproxFresnel(cosTheta float64) float64 {
	return math.Exp(-5.85*cosTheta) - 0.00202943064
}
