package core

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
)

// Epsilon is the tolerance used for near-zero comparisons in shading
const Epsilon = 1e-6

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Reseed restarts the underlying generator
func (r *RandomSampler) Reseed(seed int64) {
	r.random.Seed(seed)
}

// SamplingContext identifies where in the nested sampling hierarchy a shading
// call sits. It is a value: Push returns a new context and never touches the
// receiver, so contexts can be handed to concurrent calls freely.
type SamplingContext struct {
	Dims        []int // object ids of the enclosing specular sampling levels
	SampleIndex int   // global sample number for the current pixel/path
}

// NewSamplingContext creates a root context for the given sample index
func NewSamplingContext(sampleIndex int) SamplingContext {
	return SamplingContext{SampleIndex: sampleIndex}
}

// Push returns a context one sampling dimension deeper
func (sc SamplingContext) Push(objectID int) SamplingContext {
	dims := make([]int, len(sc.Dims)+1)
	copy(dims, sc.Dims)
	dims[len(sc.Dims)] = objectID
	return SamplingContext{Dims: dims, SampleIndex: sc.SampleIndex}
}

// Depth returns the number of nested sampling dimensions
func (sc SamplingContext) Depth() int {
	return len(sc.Dims)
}

// Hash returns a stratum index that depends only on the dimension list, the
// sample index and the offset
func (sc SamplingContext) Hash(offset int) int {
	h := fnv.New64a()
	var buf [8]byte
	for _, d := range sc.Dims {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(d)))
		h.Write(buf[:])
	}
	sum := int(h.Sum64() & 0x7fffffff)
	return sum + offset + sc.SampleIndex
}

// SampleSequence hands out stratified values from a shuffled permutation table.
// The table is filled once and only read afterwards.
type SampleSequence struct {
	perm []uint16
	mask int
}

// NewSampleSequence builds a sequence with 2^bits strata (bits in [1,16])
func NewSampleSequence(bits int, seed int64) *SampleSequence {
	if bits < 1 {
		bits = 1
	}
	if bits > 16 {
		bits = 16
	}
	size := 1 << bits
	perm := make([]uint16, size)
	for i := range perm {
		perm[i] = uint16(i)
	}
	random := rand.New(rand.NewSource(seed))
	random.Shuffle(size, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return &SampleSequence{perm: perm, mask: size - 1}
}

// Stratified returns a value in [0,1) from the stratum selected by index,
// jittered within the stratum by sampler
func (s *SampleSequence) Stratified(index int, sampler Sampler) float64 {
	if s == nil || s.mask == 0 {
		return sampler.Get1D()
	}
	return (float64(s.perm[index&s.mask]) + sampler.Get1D()) / float64(s.mask+1)
}

// MultiSample spreads one stratified value r in [0,1) over n dimensions.
// Bits of r are de-interleaved into each coordinate (8 bits per dimension)
// and the remaining sub-stratum is jittered.
func MultiSample(n int, r float64, sampler Sampler) []float64 {
	const bitsPerDim = 8
	ti := make([]int, n)
	scale := float64(int(1) << n)
	for j := 0; j < bitsPerDim; j++ {
		s := r * scale
		k := int(s)
		r = s - float64(k)
		for i := 0; i < n; i++ {
			ti[i] = ti[i]<<1 | (k>>i)&1
		}
	}
	t := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = (float64(ti[i]) + sampler.Get1D()) / float64(int(1)<<bitsPerDim)
	}
	return t
}

// Perpendicular returns a unit vector perpendicular to unit vector v.
// With a nil sampler the result is deterministic.
func Perpendicular(v Vec3, sampler Sampler) Vec3 {
	if sampler != nil {
		for i := 0; i < 16; i++ {
			trial := NewVec3(2*sampler.Get1D()-1, 2*sampler.Get1D()-1, 2*sampler.Get1D()-1)
			if p, l := v.Cross(trial).NormalizeLength(); l > 0.1 {
				return p
			}
		}
	}
	// cross with the axis least aligned with v
	var axis Vec3
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		axis = NewVec3(1, 0, 0)
	case ay <= az:
		axis = NewVec3(0, 1, 0)
	default:
		axis = NewVec3(0, 0, 1)
	}
	return v.Cross(axis).Normalize()
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	tangent := Perpendicular(normal, nil)
	bitangent := normal.Cross(tangent)

	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord))
}
