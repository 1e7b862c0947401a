package material

import (
	"math"

	"github.com/df07/go-ward-shading/pkg/core"
)

const (
	// maxTrialsPerSample caps the attempts per wanted sample
	maxTrialsPerSample = 10
	// transmissionHashOffset keeps the transmitted lobe on its own strata
	transmissionHashOffset = 1823
)

// SampleResult is one accepted specular sample
type SampleResult struct {
	Direction   core.Vec3
	Coefficient core.SpectralColor // per-sample ray coefficient
	Weight      float64            // W-G-M-D correction, 1 when not applied
	Valid       bool
}

// SampleStats counts what a specular sampler did for one hit
type SampleStats struct {
	Targets  int // samples wanted
	Trials   int // candidate directions drawn
	Accepted int // candidates above (or below, for transmission) the surface
	Traced   int // accepted samples the ray engine agreed to trace
}

// Add returns the sum of two stats
func (s SampleStats) Add(other SampleStats) SampleStats {
	return SampleStats{
		Targets:  s.Targets + other.Targets,
		Trials:   s.Trials + other.Trials,
		Accepted: s.Accepted + other.Accepted,
		Traced:   s.Traced + other.Traced,
	}
}

// Rejected returns the number of candidates thrown away
func (s SampleStats) Rejected() int {
	return s.Trials - s.Accepted
}

type lobe int

const (
	lobeReflection lobe = iota
	lobeTransmission
)

func (l lobe) rayKind() RayKind {
	if l == lobeTransmission {
		return RaySpecularTransmitted
	}
	return RaySpecularReflected
}

// lobeSampler draws directions for one specular lobe. It is a finite,
// non-restartable sequence: each call to Next consumes trials, and the
// caller traces a sample before asking for the next one.
type lobeSampler struct {
	it       *Interaction
	lobe     lobe
	frame    frame
	coef     core.SpectralColor
	target   int
	maxTrial int
	trials   int
	accepted int

	sampling core.SamplingContext
	sequence *core.SampleSequence
	sampler  core.Sampler
}

// newLobeSampler sets up sampling of l, or returns false when the lobe is
// absent, pure specular or below threshold
func (it *Interaction) newLobeSampler(l lobe, sequence *core.SampleSequence, sampler core.Sampler) (*lobeSampler, bool) {
	if it.dist == nil {
		return nil, false
	}
	var coef core.SpectralColor
	switch l {
	case lobeReflection:
		if !it.State.SampleReflection() {
			return nil, false
		}
		coef = it.scolor
	case lobeTransmission:
		if !it.State.SampleTransmission() {
			return nil, false
		}
		coef = it.mcolor.Scale(it.tspec)
	}

	target := 1
	if it.params.MultiSampling() {
		target = int(it.params.SpecularJitter*it.Surface.Weight + 0.5)
		childWeight := it.Surface.Weight * coef.Brightness()
		if childWeight <= it.params.MinWeight*float64(target) {
			target = int(childWeight / it.params.MinWeight)
		}
		if target > 1 {
			coef = coef.Scale(1 / float64(target))
		} else {
			target = 1
		}
	}

	f := it.frame
	if f.u == (core.Vec3{}) {
		var random core.Sampler
		if it.params.UncorrelatedSampling {
			random = sampler
		}
		f.u = core.Perpendicular(f.n, random)
		f.v = f.n.Cross(f.u)
	}

	return &lobeSampler{
		it:       it,
		lobe:     l,
		frame:    f,
		coef:     coef,
		target:   target,
		maxTrial: maxTrialsPerSample * target,
		sampling: it.Surface.Sampling.Push(it.Surface.ObjectID),
		sequence: sequence,
		sampler:  sampler,
	}, true
}

// Next returns the next accepted sample, or false once the target is met or
// the trial budget is spent
func (ls *lobeSampler) Next() (SampleResult, bool) {
	for ls.accepted < ls.target && ls.trials < ls.maxTrial {
		var r float64
		if ls.trials == 0 {
			offset := 0
			if ls.lobe == lobeTransmission {
				offset = transmissionHashOffset
			}
			r = ls.sequence.Stratified(ls.sampling.Hash(offset), ls.sampler)
		} else {
			r = ls.sampler.Get1D()
		}
		ls.trials++

		rv := core.MultiSample(2, r, ls.sampler)
		if res, ok := ls.candidate(rv[0], rv[1]); ok {
			ls.accepted++
			return res, true
		}
	}
	return SampleResult{}, false
}

// candidate maps a 2D variate to a direction and applies the rejection test
func (ls *lobeSampler) candidate(u0, u1 float64) (SampleResult, bool) {
	it := ls.it
	surf := &it.Surface

	jitter := it.params.SpecularJitter
	if jitter >= 0 && jitter < 1 {
		u1 = 1 - jitter*u1
	}
	cosp, sinp, d := it.dist.offset(2*math.Pi*u0, u1)
	tangent := ls.frame.u.Multiply(cosp).Add(ls.frame.v.Multiply(sinp))

	if ls.lobe == lobeTransmission {
		dir := it.prdir.AddScaled(tangent, d)
		if dir.Dot(surf.Normal) >= -core.Epsilon {
			return SampleResult{}, false
		}
		return SampleResult{Direction: dir.Normalize(), Coefficient: ls.coef, Weight: 1, Valid: true}, true
	}

	h := ls.frame.n.AddScaled(tangent, d)
	s := -2 * h.Dot(surf.Incident) / (1 + d*d)
	dir := surf.Incident.AddScaled(h, s)
	cosOut := dir.Dot(surf.Normal)
	if cosOut <= core.Epsilon {
		return SampleResult{}, false
	}
	weight := 1.0
	if ls.target > 1 {
		weight = 2 / (1 + surf.RayDot/cosOut)
	}
	return SampleResult{Direction: dir.Normalize(), Coefficient: ls.coef, Weight: weight, Valid: true}, true
}

// stats reports the sampler's counters
func (ls *lobeSampler) stats() SampleStats {
	return SampleStats{Targets: ls.target, Trials: ls.trials, Accepted: ls.accepted}
}

// SampleSpecular traces the rough reflected and transmitted lobes and returns
// their summed radiance. Lobes that are below threshold or pure specular are
// skipped; finding no acceptable direction is a normal zero result.
func (it *Interaction) SampleSpecular(engine RayEngine, sequence *core.SampleSequence, sampler core.Sampler) (core.SpectralColor, SampleStats) {
	total := core.Black(it.mcolor.Channels())
	var stats SampleStats
	for _, l := range []lobe{lobeReflection, lobeTransmission} {
		c, s := it.sampleLobe(l, engine, sequence, sampler)
		total = total.Add(c)
		stats = stats.Add(s)
	}
	return total, stats
}

func (it *Interaction) sampleLobe(l lobe, engine RayEngine, sequence *core.SampleSequence, sampler core.Sampler) (core.SpectralColor, SampleStats) {
	result := core.Black(it.mcolor.Channels())
	ls, ok := it.newLobeSampler(l, sequence, sampler)
	if !ok {
		return result, SampleStats{}
	}

	corrected := l == lobeReflection && ls.target > 1
	traced := 0
	for {
		sample, ok := ls.Next()
		if !ok {
			break
		}
		h, spawned := engine.Spawn(RayRequest{
			Parent:      it.Surface.Ray,
			Kind:        l.rayKind(),
			Origin:      it.Surface.Point,
			Direction:   sample.Direction,
			Coefficient: sample.Coefficient,
			Sampling:    ls.sampling,
		})
		if !spawned {
			continue
		}
		traced++
		radiance := engine.Trace(h)
		if corrected {
			result = result.Add(radiance.Scale(sample.Weight))
		} else {
			result = result.Add(radiance.Multiply(sample.Coefficient))
		}
	}

	stats := ls.stats()
	stats.Traced = traced
	if corrected && ls.trials > 0 {
		result = result.Multiply(ls.coef).Scale(float64(ls.target) / float64(ls.trials))
	}
	return result, stats
}
