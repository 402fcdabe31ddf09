// Package optim implements first-order optimizers for bounded, masked fields.
//
// This package provides:
//   - Optimizer interface: common update contract for all variants
//   - SGD: plain gradient step over the whole field
//   - Momentum: decayed velocity over the active mask
//   - AdaGrad: cumulative squared-gradient scaling
//   - RMSProp: moving-average squared-gradient scaling
//   - Adam: bias-corrected adaptive moments over the active mask
//   - AdaptiveStd: Adam-like step scaled by an external uncertainty field
//
// Every Step consumes a full-field gradient, masks internally where the
// variant is masked, updates the field in place and then projects the field
// back into its validity range.
//
// Example usage:
//
//	f, _ := field.Full(field.Shape{32, 32, 32}, 1, field.Bounds{Upper: 10, Reset: 1})
//	opt, _ := optim.NewAdam(f, optim.AdamConfig{
//	    LR:    0.1,
//	    Betas: [2]float64{0.9, 0.999},
//	})
//
//	for range iterations {
//	    grad := renderer.Gradient(f)
//	    if err := opt.Step(grad); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/tomo/internal/field"
)

// Common errors.
var (
	ErrShapeMismatch         = field.ErrShapeMismatch
	ErrNumericDegeneracy     = errors.New("numeric degeneracy")
	ErrInvalidHyperparameter = errors.New("invalid hyperparameter")
	ErrUnknownOptimizer      = errors.New("unknown optimizer")
	ErrStateMismatch         = errors.New("optimizer state mismatch")
)

// Optimizer is the common interface for all optimization algorithms.
//
// Optimizers are not safe for concurrent use. One optimizer instance
// drives one field for one run.
type Optimizer interface {
	// Step applies one update to the field.
	//
	// grad must have one entry per field cell (full field, not pre-masked).
	// On a length mismatch Step returns an error wrapping ErrShapeMismatch
	// and mutates nothing. Otherwise the update always completes and the
	// iteration counter advances; a *DegeneracyError is returned if the
	// field ends up holding NaN or Inf values.
	Step(grad []float64) error

	// Iteration returns the number of completed steps.
	Iteration() int

	// GetLR returns the current step size.
	GetLR() float64

	// SetLR updates the step size.
	//
	// Useful for step size schedules driven by the caller. Values rejected
	// by the constructors are rejected here too, leaving the step size
	// unchanged.
	SetLR(lr float64) error

	// State exports the optimizer state for checkpointing.
	State() State

	// LoadState restores state exported by State.
	LoadState(s State) error

	// String returns a human-readable identifier with key hyperparameters.
	String() string
}

// Restarter is implemented by optimizers whose moment state can be reset
// without reconstructing the optimizer or touching the field.
type Restarter interface {
	Restart()
}

// DegeneracyError reports NaN or Inf values produced by a step.
//
// The step that produced it has completed. Callers decide whether to
// abort or keep iterating.
type DegeneracyError struct {
	Optimizer      string // Optimizer identifier
	Iteration      int    // Iteration index of the offending step
	FieldNonFinite int    // Non-finite cells in the field after projection
	ScaleNonFinite int    // Non-finite scale factors (AdaptiveStd only)
}

// Error implements the error interface.
func (e *DegeneracyError) Error() string {
	msg := fmt.Sprintf("%v: %s at iteration %d: %d non-finite field cells",
		ErrNumericDegeneracy, e.Optimizer, e.Iteration, e.FieldNonFinite)
	if e.ScaleNonFinite > 0 {
		msg += fmt.Sprintf(", %d non-finite scale factors", e.ScaleNonFinite)
	}
	return msg
}

// Unwrap returns ErrNumericDegeneracy.
func (e *DegeneracyError) Unwrap() error {
	return ErrNumericDegeneracy
}

// checkDegeneracy scans the field values after projection.
func checkDegeneracy(opt fmt.Stringer, iter int, values []float64, scaleNonFinite int) error {
	n := field.CountNonFinite(values)
	if n == 0 && scaleNonFinite == 0 {
		return nil
	}
	return &DegeneracyError{
		Optimizer:      opt.String(),
		Iteration:      iter,
		FieldNonFinite: n,
		ScaleNonFinite: scaleNonFinite,
	}
}

func validateLR(lr float64) error {
	if !(lr > 0) || math.IsInf(lr, 0) {
		return errors.Wrapf(ErrInvalidHyperparameter, "step size %g must be positive and finite", lr)
	}
	return nil
}

func validateDecay(name string, d float64) error {
	if !(d >= 0 && d < 1) {
		return errors.Wrapf(ErrInvalidHyperparameter, "%s %g must be in [0, 1)", name, d)
	}
	return nil
}

func validateEps(eps float64) error {
	if !(eps >= 0) || math.IsInf(eps, 0) {
		return errors.Wrapf(ErrInvalidHyperparameter, "eps %g must be non-negative and finite", eps)
	}
	return nil
}

func validateStartIter(startIter int) error {
	if startIter < 0 {
		return errors.Wrapf(ErrInvalidHyperparameter, "start iteration %d must be >= 0", startIter)
	}
	return nil
}

// resolveBounds returns override if set, else the field's bounds.
func resolveBounds(f *field.Field, override *field.Bounds) (field.Bounds, error) {
	if override == nil {
		return f.Bounds(), nil
	}
	if err := override.Validate(); err != nil {
		return field.Bounds{}, errors.Wrap(ErrInvalidHyperparameter, err.Error())
	}
	return *override, nil
}

func checkField(f *field.Field) error {
	if f == nil {
		return errors.Wrap(ErrInvalidHyperparameter, "nil field")
	}
	return nil
}
