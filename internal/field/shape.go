package field

import (
	"math"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a field grid.
//
// Fields are stored flattened in row-major order, so a (nx, ny, nz) grid
// places cell (i, j, k) at i*ny*nz + j*nz + k.
type Shape []int

// NumElements returns the total number of cells in the grid.
// The result is only meaningful for shapes that pass Validate.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (at least one dimension, all > 0,
// cell count fits in an int).
func (s Shape) Validate() error {
	if len(s) == 0 {
		return errors.New("shape has no dimensions")
	}
	n := 1
	for i, dim := range s {
		if dim <= 0 {
			return errors.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
		if n > math.MaxInt/dim {
			return errors.Errorf("shape %v overflows the cell count", []int(s))
		}
		n *= dim
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Index converts grid coordinates into a flat offset.
//
// Panics if the number of coordinates does not match the rank or a
// coordinate is out of range.
func (s Shape) Index(coords ...int) int {
	if len(coords) != len(s) {
		panic(errors.Errorf("field: %d coordinates for rank-%d shape %v", len(coords), len(s), s))
	}
	strides := s.ComputeStrides()
	idx := 0
	for i, c := range coords {
		if c < 0 || c >= s[i] {
			panic(errors.Errorf("field: coordinate %d out of range [0, %d) on axis %d", c, s[i], i))
		}
		idx += c * strides[i]
	}
	return idx
}
