package material

import (
	"fmt"
	"math"
)

// Axis is one regularly spaced dimension of a data table
type Axis struct {
	Min, Max float64
	Count    int
}

// DataTable is an n-dimensional regular grid of samples with multilinear
// interpolation. Values are stored row-major, last axis fastest.
// Lookups outside the grid clamp to the nearest edge.
type DataTable struct {
	axes    []Axis
	strides []int
	values  []float64
}

// NewDataTable validates the grid layout and copies the values
func NewDataTable(axes []Axis, values []float64) (*DataTable, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: data table needs at least one axis", ErrBadArgument)
	}
	strides := make([]int, len(axes))
	size := 1
	for i := len(axes) - 1; i >= 0; i-- {
		a := axes[i]
		if a.Count < 1 {
			return nil, fmt.Errorf("%w: axis %d has %d samples", ErrBadArgument, i, a.Count)
		}
		if a.Count > 1 && !(a.Max > a.Min) {
			return nil, fmt.Errorf("%w: axis %d range [%g,%g] is empty", ErrBadArgument, i, a.Min, a.Max)
		}
		strides[i] = size
		size *= a.Count
	}
	if len(values) != size {
		return nil, fmt.Errorf("%w: data table expects %d values, got %d", ErrBadArgument, size, len(values))
	}
	d := &DataTable{
		axes:    append([]Axis(nil), axes...),
		strides: strides,
		values:  append([]float64(nil), values...),
	}
	return d, nil
}

// Dims returns the number of table dimensions
func (d *DataTable) Dims() int {
	return len(d.axes)
}

// Value interpolates the table at pt, which must have Dims coordinates
func (d *DataTable) Value(pt []float64) float64 {
	if len(pt) != len(d.axes) {
		panic(fmt.Sprintf("data table: %d coordinates for %d dimensions", len(pt), len(d.axes)))
	}
	return d.interpolate(pt, 0, 0)
}

func (d *DataTable) interpolate(pt []float64, dim, base int) float64 {
	if dim == len(d.axes) {
		return d.values[base]
	}
	a := d.axes[dim]
	if a.Count == 1 {
		return d.interpolate(pt, dim+1, base)
	}

	x := (pt[dim] - a.Min) / (a.Max - a.Min) * float64(a.Count-1)
	x = math.Max(0, math.Min(x, float64(a.Count-1)))
	i := int(x)
	if i >= a.Count-1 {
		i = a.Count - 2
	}
	t := x - float64(i)

	lo := d.interpolate(pt, dim+1, base+i*d.strides[dim])
	if t == 0 {
		return lo
	}
	hi := d.interpolate(pt, dim+1, base+(i+1)*d.strides[dim])
	return lo*(1-t) + hi*t
}
