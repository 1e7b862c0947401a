package material

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-ward-shading/pkg/core"
)

func newTestShader(t *testing.T, params core.RenderParams, c Collaborators, logger core.Logger) *Shader {
	t.Helper()
	s, err := NewShader(params, c, core.NewSampleSequence(11, 0), logger)
	if err != nil {
		t.Fatalf("NewShader failed: %v", err)
	}
	return s
}

func TestNewShader_Errors(t *testing.T) {
	if _, err := NewShader(core.DefaultRenderParams(), Collaborators{}, nil, nil); !errors.Is(err, ErrBadArgument) {
		t.Errorf("Expected ErrBadArgument without an engine, got %v", err)
	}

	params := core.DefaultRenderParams()
	params.MinWeight = 0
	if _, err := NewShader(params, Collaborators{Engine: newTestEngine(gray(1))}, nil, nil); err == nil {
		t.Error("Expected invalid params to be rejected")
	}

	s, err := NewShader(core.DefaultRenderParams(), Collaborators{Engine: newTestEngine(gray(1))}, nil, nil)
	if err != nil || s.sequence == nil {
		t.Errorf("Expected a default sample sequence, got %v (err %v)", s, err)
	}
}

func TestShader_Register(t *testing.T) {
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: newTestEngine(gray(1))}, nil)
	table := DispatchTable{}
	s.Register(table)

	for _, k := range []Kind{KindIsotropic, KindAnisotropic, KindGeneric, KindBRTD} {
		if table[k] == nil {
			t.Errorf("No shading function registered for %v", k)
		}
	}

	res, err := table[KindIsotropic](NewPlastic(gray(0.5), 0, 0.1), frontHit(core.NewVec3(0, 0, -1)), newSampler(1))
	if err != nil || res.Color.Channels() != 3 {
		t.Errorf("Dispatched shading failed: %v %v", res, err)
	}
}

func TestShader_NilArguments(t *testing.T) {
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: newTestEngine(gray(1))}, nil)
	if _, err := s.Shade(nil, frontHit(core.NewVec3(0, 0, -1)), newSampler(1)); !errors.Is(err, ErrBadArgument) {
		t.Errorf("Expected ErrBadArgument for nil material, got %v", err)
	}
	if _, err := s.Shade(NewPlastic(gray(0.5), 0, 0), nil, newSampler(1)); !errors.Is(err, ErrBadArgument) {
		t.Errorf("Expected ErrBadArgument for nil hit, got %v", err)
	}
}

func TestShader_ShadowRays(t *testing.T) {
	light := core.NewRGB(3, 2, 1)
	tests := []struct {
		name     string
		material Material
		expected core.SpectralColor
		spawns   int
	}{
		{"opaque plastic blocks", NewPlastic(gray(0.5), 0.05, 0), core.Black(3), 0},
		{"rough glass blocks", NewTrans(gray(1), 0, 0.1, 1, 1), core.Black(3), 0},
		{"anisotropic blocks", NewAnisotropic(gray(1), 0.5, core.NewVec3(1, 0, 0), 0.1, 0.1, true), core.Black(3), 0},
		{"clear glass passes", NewTrans(gray(1), 0, 0, 1, 1), light, 1},
		{"tinted glass filters", NewTrans(core.NewRGB(1, 0.5, 0), 0, 0, 1, 1), core.NewRGB(3, 1, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(light)
			s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine}, nil)
			hit := frontHit(core.NewVec3(0, 0, -1))
			hit.Kind = RayShadow

			res, err := s.Shade(tt.material, hit, newSampler(1))
			if err != nil {
				t.Fatal(err)
			}
			if !res.Color.Equals(tt.expected, 1e-12) {
				t.Errorf("Expected %v, got %v", tt.expected, res.Color)
			}
			reqs := engine.requests()
			if len(reqs) != tt.spawns {
				t.Fatalf("Expected %d spawned rays, got %d", tt.spawns, len(reqs))
			}
			for _, r := range reqs {
				if r.Kind != RayTransmitted || r.Direction != hit.Incident {
					t.Errorf("Shadow should continue straight through, got %v along %v", r.Kind, r.Direction)
				}
			}
		})
	}
}

func TestShader_PureMirror(t *testing.T) {
	m := NewPlastic(gray(0.5), 0.05, 0)
	radiance := gray(2)

	var first core.SpectralColor
	for seed := int64(1); seed <= 5; seed++ {
		engine := newTestEngine(radiance)
		s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine}, nil)

		res, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(seed))
		if err != nil {
			t.Fatal(err)
		}

		reqs := engine.requests()
		if len(reqs) != 1 || reqs[0].Kind != RayReflected {
			t.Fatalf("Expected a single mirror ray, got %+v", reqs)
		}
		if reqs[0].Direction.Subtract(core.NewVec3(0, 0, 1)).Length() > 1e-12 {
			t.Errorf("Expected mirror direction (0,0,1), got %v", reqs[0].Direction)
		}

		rspec := 0.05 + ApproxFresnel(1)*0.95
		if !approxEqual(res.Mirror.Channel(0), 2*rspec, 1e-12) {
			t.Errorf("Expected mirror contribution %f, got %f", 2*rspec, res.Mirror.Channel(0))
		}
		if res.MirrorDistance != 1 || res.Distance != 1 {
			t.Errorf("Expected the hit distance 1 for a curved mirror, got %f/%f", res.MirrorDistance, res.Distance)
		}

		if seed == 1 {
			first = res.Mirror
		} else if !res.Mirror.Equals(first, 0) {
			t.Errorf("Mirror reflection should not vary with the sampler: %v vs %v", res.Mirror, first)
		}
	}
}

func TestShader_EffectiveDistance(t *testing.T) {
	tests := []struct {
		name     string
		material *Isotropic
		flat     bool
		kind     RayKind
		distance float64 // effective distance
		mirror   float64 // mirror distance
	}{
		// tspec 1
		{"clear", NewTrans(gray(1), 0, 0, 1, 1), false, RayPrimary, 6, 0},
		// tspec 0.72 outweighs tdiff 0.18 plus rdiff 0.1
		{"mostly transparent", NewTrans(gray(1), 0, 0, 0.9, 0.8), false, RayPrimary, 6, 0},
		// tspec 0.25 against tdiff 0.25 plus rdiff 0.5
		{"mostly diffuse", NewTrans(gray(1), 0, 0, 0.5, 0.5), false, RayPrimary, 1, 0},
		{"curved mirror", NewMetal(gray(0.9), 0.9, 0), false, RayAmbient, 1, 1},
		{"flat mirror seen directly", NewMetal(gray(0.9), 0.9, 0), true, RayPrimary, 1, 1},
		{"flat mirror seen by ambient", NewMetal(gray(0.9), 0.9, 0), true, RayAmbient, 1, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(gray(1))
			s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine}, nil)
			hit := frontHit(core.NewVec3(0, 0, -1))
			hit.Flat = tt.flat
			hit.Kind = tt.kind

			res, err := s.Shade(tt.material, hit, newSampler(1))
			if err != nil {
				t.Fatal(err)
			}
			if res.Distance != tt.distance {
				t.Errorf("Expected effective distance %f, got %f", tt.distance, res.Distance)
			}
			if res.MirrorDistance != tt.mirror {
				t.Errorf("Expected mirror distance %f, got %f", tt.mirror, res.MirrorDistance)
			}
		})
	}
}

func TestShader_PerturbedMirrorStaysAbove(t *testing.T) {
	// the texture tilts the normal so far that the mirrored ray would enter
	// the surface at grazing incidence
	engine := newTestEngine(gray(1))
	texture := fixedTexture{pert: Perturbation{Offset: core.NewVec3(2, 0, 0)}}
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine, Texture: texture}, nil)

	_, err := s.Shade(NewMetal(gray(0.9), 0.9, 0), frontHit(core.NewVec3(1, 0, -0.2)), newSampler(1))
	if err != nil {
		t.Fatal(err)
	}
	reqs := engine.requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected one mirror ray, got %d", len(reqs))
	}
	if reqs[0].Direction.Z <= 0 {
		t.Errorf("Mirror ray %v should fall back to the geometric reflection", reqs[0].Direction)
	}
}

func TestShader_ThresholdGating(t *testing.T) {
	m := NewPlastic(gray(0.8), 0.05, 0.1)
	engine := newTestEngine(gray(1))
	ambient := &constAmbient{value: gray(1)}
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine, Ambient: ambient}, nil)

	res, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(1))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(engine.requests()); n != 0 {
		t.Errorf("Below-threshold specular should not spawn rays, got %d", n)
	}

	// diffuse plus the folded-in specular lobe
	expected := 0.8*0.95 + 0.05
	if !approxEqual(res.Color.Channel(0), expected, 1e-12) {
		t.Errorf("Expected ambient %f, got %f", expected, res.Color.Channel(0))
	}

	it := Prepare(m, frontSurface(core.NewVec3(0, 0, -1)), core.DefaultRenderParams(), nil)
	if !it.State.ReflectionBelowThreshold || it.State.SampleReflection() {
		t.Errorf("Expected reflection below threshold, got %v", it.State)
	}
}

func TestShader_TranslucentAmbient(t *testing.T) {
	m := NewTrans(gray(1), 0.02, 0.1, 0.8, 0.1)
	engine := newTestEngine(gray(1))
	ambient := &constAmbient{value: gray(1)}
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine, Ambient: ambient}, nil)

	res, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(1))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(engine.requests()); n != 0 {
		t.Errorf("Both lobes are below threshold, expected no rays, got %d", n)
	}
	// every lobe ends up in the ambient estimate
	if !approxEqual(res.Color.Channel(2), 1, 1e-12) {
		t.Errorf("Expected unit ambient response, got %f", res.Color.Channel(2))
	}
	if len(ambient.normals) != 2 {
		t.Fatalf("Expected front and back ambient lookups, got %d", len(ambient.normals))
	}
	if ambient.normals[0].Z != 1 || ambient.normals[1].Z != -1 {
		t.Errorf("Expected lookups along +n and -n, got %v", ambient.normals)
	}
}

func TestShader_BackFace(t *testing.T) {
	backHit := func() *Hit {
		hit := frontHit(core.NewVec3(0, 0, -1))
		hit.Normal = core.NewVec3(0, 0, -1)
		return hit
	}
	m := NewPlastic(gray(0.5), 0.05, 0.1)

	t.Run("invisible", func(t *testing.T) {
		params := core.DefaultRenderParams()
		params.BackFaceVisible = false
		engine := newTestEngine(core.NewRGB(1, 2, 3))
		s := newTestShader(t, params, Collaborators{Engine: engine}, nil)

		res, err := s.Shade(m, backHit(), newSampler(1))
		if err != nil {
			t.Fatal(err)
		}
		reqs := engine.requests()
		if len(reqs) != 1 || reqs[0].Kind != RayTransmitted {
			t.Fatalf("Expected a pass-through ray, got %+v", reqs)
		}
		if !reqs[0].Coefficient.Equals(gray(1), 0) {
			t.Errorf("Pass-through coefficient should be 1, got %v", reqs[0].Coefficient)
		}
		if !res.Color.Equals(core.NewRGB(1, 2, 3), 0) || res.Distance != 6 {
			t.Errorf("Expected the color and distance behind the surface, got %v at %f", res.Color, res.Distance)
		}
	})

	t.Run("visible", func(t *testing.T) {
		engine := newTestEngine(gray(1))
		ambient := &constAmbient{value: gray(1)}
		s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine, Ambient: ambient}, nil)

		if _, err := s.Shade(m, backHit(), newSampler(1)); err != nil {
			t.Fatal(err)
		}
		if len(ambient.normals) != 1 || ambient.normals[0].Z != 1 {
			t.Errorf("Back face should be shaded with the flipped normal, got %v", ambient.normals)
		}
	})
}

func TestShader_DirectMatchesEvaluate(t *testing.T) {
	m := NewPlastic(core.NewRGB(0.8, 0.6, 0.4), 0.05, 0.1)
	params := core.DefaultRenderParams()
	sources := sourceList{
		{dir: core.NewVec3(0, 0, 1), omega: 0.001, radiance: gray(100)},
		{dir: core.NewVec3(0.6, 0, 0.8), omega: 0.01, radiance: core.NewRGB(10, 20, 30)},
		{dir: core.NewVec3(0, 0.6, -0.8), omega: 0.01, radiance: gray(50)}, // behind
	}
	s := newTestShader(t, params, Collaborators{Engine: newTestEngine(gray(1)), Direct: sources}, nil)

	hit := frontHit(core.NewVec3(0.1, 0, -1))
	res, err := s.Shade(m, hit, newSampler(1))
	if err != nil {
		t.Fatal(err)
	}

	surf := NewSurfaceContext(hit, Perturbation{})
	var expected core.SpectralColor
	for _, src := range sources {
		expected = expected.Add(Evaluate(m, surf, params, src.dir, src.omega).Multiply(src.radiance))
	}
	if !res.Color.Equals(expected, 1e-12) {
		t.Errorf("Expected direct %v, got %v", expected, res.Color)
	}
}

func TestShader_RoughSampling(t *testing.T) {
	m := NewMetal(gray(0.9), 0.9, 0.2)
	params := core.DefaultRenderParams()
	params.SpecularJitter = 4
	engine := newTestEngine(gray(1))
	s := newTestShader(t, params, Collaborators{Engine: engine}, nil)

	res, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(3))
	if err != nil {
		t.Fatal(err)
	}
	if res.Specular.Targets != 4 || res.Specular.Traced == 0 {
		t.Errorf("Expected 4 target samples to be traced, got %+v", res.Specular)
	}
	if res.Color.Channel(0) <= 0 || res.Color.Channel(0) > 0.81+1e-9 {
		t.Errorf("Sampled reflection %f outside (0, 0.81]", res.Color.Channel(0))
	}
	if !res.Mirror.IsBlack(0) {
		t.Errorf("Rough surfaces have no mirror component, got %v", res.Mirror)
	}
}

func TestShader_AnisotropicMirrorFallback(t *testing.T) {
	logger := &recordingLogger{}
	engine := newTestEngine(gray(1))
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{Engine: engine}, logger)

	m := NewAnisotropic(gray(0.8), 0.5, core.NewVec3(1, 0, 0), 0, 0, true)
	m.Label = "brushed"
	if _, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(1)); err != nil {
		t.Fatal(err)
	}

	reqs := engine.requests()
	if len(reqs) != 1 || reqs[0].Kind != RayReflected {
		t.Errorf("Expected a single mirror ray, got %+v", reqs)
	}
	if logger.count("brushed: roughness too small") != 1 {
		t.Errorf("Expected one roughness warning, got %v", logger.messages)
	}
}

func TestShader_GenericComputeError(t *testing.T) {
	logger := &recordingLogger{}
	ambient := &constAmbient{value: gray(1)}
	sources := sourceList{{dir: core.NewVec3(0, 0, 1), omega: 0.01, radiance: gray(1)}}
	s := newTestShader(t, core.DefaultRenderParams(), Collaborators{
		Engine:  newTestEngine(gray(1)),
		Ambient: ambient,
		Direct:  sources,
	}, logger)

	m := NewGeneric(gray(0.5), 0.2, func(env FuncEnv, args ...float64) float64 {
		return math.Log(-1)
	})
	res, err := s.Shade(m, frontHit(core.NewVec3(0, 0, -1)), newSampler(1))
	if err != nil {
		t.Fatal(err)
	}

	diffuse := 0.5 * 0.8 * 0.01 / math.Pi
	expected := 0.5 + diffuse // ambient uses the whole reflected share
	if !approxEqual(res.Color.Channel(0), expected, 1e-12) {
		t.Errorf("Expected diffuse only %f, got %f", expected, res.Color.Channel(0))
	}
	if logger.count("compute error") != 1 {
		t.Errorf("Expected one compute warning, got %v", logger.messages)
	}
}
