// Package field implements the bounded, masked parameter grid that
// optimizers update in place.
//
// A Field owns three things:
//   - values: one float64 coefficient per grid cell, flattened row-major
//   - mask: which cells are active (eligible for masked updates)
//   - bounds: the physical validity range [0, Upper] and the Reset value
//     substituted for any cell that blows past Upper
//
// Optimizers only read the mask and bounds and read-write the values.
package field

import (
	"math"

	"github.com/pkg/errors"
)

// LowerBound is the physical lower bound of every field value.
const LowerBound = 0.0

// Common errors.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrInvalidBounds = errors.New("invalid bounds")
)

// Bounds holds the validity range of a field.
//
// Values below LowerBound are clamped to it. Values strictly greater than
// Upper are replaced by Reset, not clipped to Upper.
type Bounds struct {
	Upper float64 `yaml:"upper" json:"upper"` // Upper bound (must be > LowerBound)
	Reset float64 `yaml:"reset" json:"reset"` // Value substituted for cells exceeding Upper
}

// Validate checks Upper > LowerBound and Reset in [LowerBound, Upper].
func (b Bounds) Validate() error {
	if math.IsNaN(b.Upper) || b.Upper <= LowerBound {
		return errors.Wrapf(ErrInvalidBounds, "upper bound %g must be > %g", b.Upper, LowerBound)
	}
	if math.IsNaN(b.Reset) || b.Reset < LowerBound || b.Reset > b.Upper {
		return errors.Wrapf(ErrInvalidBounds, "reset value %g outside [%g, %g]", b.Reset, LowerBound, b.Upper)
	}
	return nil
}

// Field is a mutable parameter grid with an active mask and bounds.
//
// Field is not safe for concurrent use. Exactly one optimizer is expected
// to mutate a field within an iteration.
type Field struct {
	shape  Shape
	values []float64
	mask   []bool
	bounds Bounds
}

// New creates a field.
//
// A nil values slice allocates zeros; a nil mask marks every cell active.
// Non-nil slices must have shape.NumElements() entries. Values are used
// in place (not copied), the mask is copied.
func New(shape Shape, values []float64, mask []bool, bounds Bounds) (*Field, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	n := shape.NumElements()
	if values == nil {
		values = make([]float64, n)
	}
	if err := CheckLen("values", len(values), n); err != nil {
		return nil, err
	}

	m := make([]bool, n)
	if mask == nil {
		for i := range m {
			m[i] = true
		}
	} else {
		if err := CheckLen("mask", len(mask), n); err != nil {
			return nil, err
		}
		copy(m, mask)
	}

	return &Field{
		shape:  shape.Clone(),
		values: values,
		mask:   m,
		bounds: bounds,
	}, nil
}

// Full creates a fully active field with every cell set to v.
func Full(shape Shape, v float64, bounds Bounds) (*Field, error) {
	f, err := New(shape, nil, nil, bounds)
	if err != nil {
		return nil, err
	}
	for i := range f.values {
		f.values[i] = v
	}
	return f, nil
}

// Shape returns a copy of the field's shape.
func (f *Field) Shape() Shape {
	return f.shape.Clone()
}

// Len returns the number of cells.
func (f *Field) Len() int {
	return len(f.values)
}

// Values returns the live values slice.
//
// Writes through the returned slice mutate the field.
func (f *Field) Values() []float64 {
	return f.values
}

// Mask returns a copy of the active mask.
func (f *Field) Mask() []bool {
	m := make([]bool, len(f.mask))
	copy(m, f.mask)
	return m
}

// Active reports whether cell i is active.
func (f *Field) Active(i int) bool {
	return f.mask[i]
}

// SetMask replaces the active mask.
//
// Optimizers snapshot the active indices at construction, so changing the
// mask mid-run only affects optimizers built afterwards.
func (f *Field) SetMask(mask []bool) error {
	if err := CheckLen("mask", len(mask), len(f.mask)); err != nil {
		return err
	}
	copy(f.mask, mask)
	return nil
}

// ActiveIndices returns the flat indices of all active cells in ascending order.
func (f *Field) ActiveIndices() []int {
	idx := make([]int, 0, f.ActiveCount())
	for i, on := range f.mask {
		if on {
			idx = append(idx, i)
		}
	}
	return idx
}

// ActiveCount returns the number of active cells.
func (f *Field) ActiveCount() int {
	n := 0
	for _, on := range f.mask {
		if on {
			n++
		}
	}
	return n
}

// Bounds returns the field's bounds.
func (f *Field) Bounds() Bounds {
	return f.bounds
}

// CheckLen returns an error wrapping ErrShapeMismatch when got != want.
func CheckLen(name string, got, want int) error {
	if got != want {
		return errors.Wrapf(ErrShapeMismatch, "%s has %d elements, field has %d", name, got, want)
	}
	return nil
}

// Gather copies src[idx[k]] into dst[k].
func Gather(dst, src []float64, idx []int) {
	for k, i := range idx {
		dst[k] = src[i]
	}
}

// AddAt adds delta[k] to values[idx[k]].
func AddAt(values, delta []float64, idx []int) {
	for k, i := range idx {
		values[i] += delta[k]
	}
}

// ClampLower sets every value below LowerBound to LowerBound.
func ClampLower(values []float64) {
	for i, v := range values {
		if v < LowerBound {
			values[i] = LowerBound
		}
	}
}

// Project clamps values below LowerBound, then resets any value strictly
// greater than b.Upper to b.Reset.
//
// NaN values are left untouched so they can be reported by CountNonFinite.
func Project(values []float64, b Bounds) {
	for i, v := range values {
		if v < LowerBound {
			values[i] = LowerBound
		} else if v > b.Upper {
			values[i] = b.Reset
		}
	}
}

// CountNonFinite returns the number of NaN or ±Inf entries.
func CountNonFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
