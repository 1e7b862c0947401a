package core

import (
	"fmt"
)

// RenderParams holds the process-wide render settings the shading core reads.
// A RenderParams value is never modified once rendering starts.
type RenderParams struct {
	SpecularJitter       float64 // 0 = mirror-like, 1 = full jitter, >1.5 = multi-sample target multiplier
	SpecularThreshold    float64 // specular fractions at or below this go to the ambient estimate
	MinWeight            float64 // minimum ray weight
	MaxDepth             int     // maximum reflection depth (enforced by the ray engine)
	BackFaceVisible      bool    // shade back faces instead of passing through them
	SourceJitter         float64 // source distribution jitter, reduces flat-surface specular broadening
	UncorrelatedSampling bool    // pick random sample frames instead of deterministic ones
}

// DefaultRenderParams returns sensible default values
func DefaultRenderParams() RenderParams {
	return RenderParams{
		SpecularJitter:    1.0,
		SpecularThreshold: 0.15,
		MinWeight:         2e-3,
		MaxDepth:          8,
		BackFaceVisible:   true,
		SourceJitter:      0.0,
	}
}

// Validate checks the settings for values the shading core cannot work with
func (p RenderParams) Validate() error {
	if p.SpecularJitter < 0 {
		return fmt.Errorf("specular jitter must be non-negative, got %g", p.SpecularJitter)
	}
	if p.SpecularThreshold < 0 || p.SpecularThreshold > 1 {
		return fmt.Errorf("specular threshold must be in [0,1], got %g", p.SpecularThreshold)
	}
	if p.MinWeight <= 0 || p.MinWeight >= 1 {
		return fmt.Errorf("minimum ray weight must be in (0,1), got %g", p.MinWeight)
	}
	if p.SourceJitter < 0 || p.SourceJitter > 1 {
		return fmt.Errorf("source jitter must be in [0,1], got %g", p.SourceJitter)
	}
	return nil
}

// Merge returns p with every non-zero numeric field of override applied.
// Boolean fields are taken from override only when mergeFlags is set.
func (p RenderParams) Merge(override RenderParams, mergeFlags bool) RenderParams {
	if override.SpecularJitter != 0 {
		p.SpecularJitter = override.SpecularJitter
	}
	if override.SpecularThreshold != 0 {
		p.SpecularThreshold = override.SpecularThreshold
	}
	if override.MinWeight != 0 {
		p.MinWeight = override.MinWeight
	}
	if override.MaxDepth != 0 {
		p.MaxDepth = override.MaxDepth
	}
	if override.SourceJitter != 0 {
		p.SourceJitter = override.SourceJitter
	}
	if mergeFlags {
		p.BackFaceVisible = override.BackFaceVisible
		p.UncorrelatedSampling = override.UncorrelatedSampling
	}
	return p
}

// MultiSampling reports whether specular lobes may take several samples per hit
func (p RenderParams) MultiSampling() bool {
	return p.SpecularJitter > 1.5
}
