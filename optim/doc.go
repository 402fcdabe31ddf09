// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides first-order optimizers for bounded, masked fields.
//
// # Overview
//
// This package contains:
//   - SGD: plain gradient step over the whole field
//   - Momentum: decayed velocity over the active mask
//   - AdaGrad: cumulative squared-gradient scaling
//   - RMSProp: moving-average squared-gradient scaling
//   - Adam: bias-corrected adaptive moments with a warm-up gate
//   - AdaptiveStd: Adam-like step scaled by an external std field
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/tomo/field"
//	    "github.com/born-ml/tomo/optim"
//	)
//
//	func reconstruct(beta []float64, mask []bool, grad func() []float64) error {
//	    f, err := field.New(field.Shape{64, 64, 32}, beta, mask, field.Bounds{Upper: 300, Reset: 10})
//	    if err != nil {
//	        return err
//	    }
//
//	    optimizer, err := optim.NewAdam(f, optim.AdamConfig{
//	        LR:        1,
//	        Betas:     [2]float64{0.9, 0.999},
//	        StartIter: 5,
//	    })
//	    if err != nil {
//	        return err
//	    }
//
//	    for range 200 {
//	        if err := optimizer.Step(grad()); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	}
//
// # Bounds
//
// After every step the field is projected: values below 0 are clamped to 0
// and values above Bounds.Upper are replaced by Bounds.Reset. AdaGrad and
// RMSProp only clamp at 0.
//
// # Configuration Files
//
// Spec picks a variant at configuration time:
//
//	kind: momentum
//	momentum:
//	  lr: 0.5
//	  alpha: 0.9
//
//	spec, err := optim.LoadSpec("optimizer.yaml")
//	optimizer, err := optim.New(f, spec)
package optim
