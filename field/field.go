// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package field provides the bounded, masked parameter grid that optimizers
// update in place.
//
// Example:
//
//	f, err := field.New(
//	    field.Shape{64, 64, 32},
//	    extinction,         // []float64, row-major, updated in place
//	    cloudMask,          // []bool, active cells
//	    field.Bounds{Upper: 300, Reset: 10},
//	)
package field

import (
	"github.com/born-ml/tomo/internal/field"
)

// LowerBound is the physical lower bound of every field value.
const LowerBound = field.LowerBound

// Shape represents the dimensions of a field grid.
type Shape = field.Shape

// Bounds holds the upper bound and reset value of a field.
type Bounds = field.Bounds

// Field is a mutable parameter grid with an active mask and bounds.
type Field = field.Field

// Errors returned by field construction and shape checks.
var (
	ErrShapeMismatch = field.ErrShapeMismatch
	ErrInvalidBounds = field.ErrInvalidBounds
)

// New creates a field over values (used in place) with a copy of mask.
//
// A nil values slice allocates zeros; a nil mask marks every cell active.
func New(shape Shape, values []float64, mask []bool, bounds Bounds) (*Field, error) {
	return field.New(shape, values, mask, bounds)
}

// Full creates a fully active field with every cell set to v.
func Full(shape Shape, v float64, bounds Bounds) (*Field, error) {
	return field.Full(shape, v, bounds)
}
