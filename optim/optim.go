// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"io"

	"github.com/born-ml/tomo/internal/field"
	"github.com/born-ml/tomo/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Restarter is implemented by Adam and AdaptiveStd.
type Restarter = optim.Restarter

// State is a snapshot of an optimizer's mutable state.
type State = optim.State

// DegeneracyError reports NaN or Inf values produced by a step.
type DegeneracyError = optim.DegeneracyError

// Errors returned by constructors and Step.
var (
	ErrShapeMismatch         = optim.ErrShapeMismatch
	ErrNumericDegeneracy     = optim.ErrNumericDegeneracy
	ErrInvalidHyperparameter = optim.ErrInvalidHyperparameter
	ErrUnknownOptimizer      = optim.ErrUnknownOptimizer
	ErrStateMismatch         = optim.ErrStateMismatch
)

// Optimizer kinds accepted by Spec.Kind.
const (
	KindSGD         = optim.KindSGD
	KindMomentum    = optim.KindMomentum
	KindAdaGrad     = optim.KindAdaGrad
	KindRMSProp     = optim.KindRMSProp
	KindAdam        = optim.KindAdam
	KindAdaptiveStd = optim.KindAdaptiveStd
)

// SGD (plain gradient step)

// SGD represents the plain gradient step optimizer.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer, err := optim.NewSGD(f, optim.SGDConfig{LR: 0.01})
func NewSGD(f *field.Field, config SGDConfig) (*SGD, error) {
	return optim.NewSGD(f, config)
}

// Momentum

// Momentum represents the masked momentum optimizer.
type Momentum = optim.Momentum

// MomentumConfig contains configuration for Momentum optimizer.
type MomentumConfig = optim.MomentumConfig

// NewMomentum creates a new Momentum optimizer.
func NewMomentum(f *field.Field, config MomentumConfig) (*Momentum, error) {
	return optim.NewMomentum(f, config)
}

// AdaGrad

// AdaGrad represents the accumulated-squared-gradient optimizer.
type AdaGrad = optim.AdaGrad

// AdaGradConfig contains configuration for AdaGrad optimizer.
type AdaGradConfig = optim.AdaGradConfig

// NewAdaGrad creates a new AdaGrad optimizer.
func NewAdaGrad(f *field.Field, config AdaGradConfig) (*AdaGrad, error) {
	return optim.NewAdaGrad(f, config)
}

// RMSProp

// RMSProp represents the moving-average squared-gradient optimizer.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(f *field.Field, config RMSPropConfig) (*RMSProp, error) {
	return optim.NewRMSProp(f, config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the masked, bias-corrected Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer, err := optim.NewAdam(f, optim.AdamConfig{
//	    LR:        0.1,
//	    Betas:     [2]float64{0.9, 0.999},
//	    StartIter: 3,
//	})
func NewAdam(f *field.Field, config AdamConfig) (*Adam, error) {
	return optim.NewAdam(f, config)
}

// AdaptiveStd

// AdaptiveStd represents the uncertainty-scaled optimizer.
type AdaptiveStd = optim.AdaptiveStd

// AdaptiveStdConfig contains configuration for AdaptiveStd optimizer.
type AdaptiveStdConfig = optim.AdaptiveStdConfig

// ScaleStats summarizes the scale factors of one AdaptiveStd step.
type ScaleStats = optim.ScaleStats

// NewAdaptiveStd creates a new AdaptiveStd optimizer.
func NewAdaptiveStd(f *field.Field, config AdaptiveStdConfig) (*AdaptiveStd, error) {
	return optim.NewAdaptiveStd(f, config)
}

// Configuration

// Spec selects an optimizer variant and its configuration.
type Spec = optim.Spec

// New creates the optimizer described by spec.
func New(f *field.Field, spec Spec) (Optimizer, error) {
	return optim.New(f, spec)
}

// ParseSpec decodes a Spec from YAML or JSON.
func ParseSpec(r io.Reader) (Spec, error) {
	return optim.ParseSpec(r)
}

// LoadSpec reads a Spec from a YAML or JSON file.
func LoadSpec(path string) (Spec, error) {
	return optim.LoadSpec(path)
}
