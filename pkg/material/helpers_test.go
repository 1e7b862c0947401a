package material

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/df07/go-ward-shading/pkg/core"
)

type testRay struct {
	req   RayRequest
	depth int
}

func (r *testRay) Weight() float64 {
	if r.req.Parent == nil {
		return r.req.Coefficient.Brightness()
	}
	return r.req.Parent.Weight() * r.req.Coefficient.Brightness()
}

func (r *testRay) Depth() int { return r.depth }

// testEngine returns a radiance that depends only on the ray direction
type testEngine struct {
	mu       sync.Mutex
	radiance func(dir core.Vec3) core.SpectralColor
	cull     bool
	distance float64
	spawned  []RayRequest
}

func newTestEngine(radiance core.SpectralColor) *testEngine {
	return &testEngine{
		radiance: func(core.Vec3) core.SpectralColor { return radiance },
		distance: 5,
	}
}

func (e *testEngine) Spawn(req RayRequest) (RayHandle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spawned = append(e.spawned, req)
	if e.cull {
		return nil, false
	}
	return &testRay{req: req, depth: req.Sampling.Depth()}, true
}

func (e *testEngine) Trace(h RayHandle) core.SpectralColor {
	return e.radiance(h.(*testRay).req.Direction)
}

func (e *testEngine) Distance(h RayHandle) float64 {
	return e.distance
}

func (e *testEngine) requests() []RayRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RayRequest(nil), e.spawned...)
}

type constAmbient struct {
	value   core.SpectralColor
	normals []core.Vec3
}

func (a *constAmbient) Estimate(point, normal core.Vec3) core.SpectralColor {
	a.normals = append(a.normals, normal)
	return a.value
}

// testSource is a distant light of the given radiance
type testSource struct {
	dir      core.Vec3
	omega    float64
	radiance core.SpectralColor
}

type sourceList []testSource

func (l sourceList) ForEachVisibleSource(point, normal core.Vec3, fn SourceFunc) core.SpectralColor {
	var total core.SpectralColor
	for _, s := range l {
		total = total.Add(fn(s.dir, s.omega).Multiply(s.radiance))
	}
	return total
}

type fixedTexture struct {
	pert Perturbation
}

func (t fixedTexture) Perturb(hit *Hit) Perturbation {
	return t.pert
}

// recordingLogger keeps every formatted message
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) count(substr string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func newSampler(seed int64) core.Sampler {
	return core.NewRandomSampler(rand.New(rand.NewSource(seed)))
}

// frontHit is a hit on the z=0 plane seen along incident
func frontHit(incident core.Vec3) *Hit {
	return &Hit{
		Point:    core.NewVec3(0, 0, 0),
		Incident: incident.Normalize(),
		Normal:   core.NewVec3(0, 0, 1),
		Distance: 1,
		ObjectID: 7,
		Kind:     RayPrimary,
		Sampling: core.NewSamplingContext(0),
	}
}

func frontSurface(incident core.Vec3) SurfaceContext {
	return NewSurfaceContext(frontHit(incident), Perturbation{})
}

func gray(v float64) core.SpectralColor {
	return core.NewRGB(v, v, v)
}

func approxEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
