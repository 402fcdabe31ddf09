// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores fields and optimizer state in
// SafeTensors format.
//
// Example:
//
//	if err := checkpoint.SaveField("beta.safetensors", f); err != nil {
//	    return err
//	}
//	if err := checkpoint.SaveOptimizer("adam.safetensors", opt); err != nil {
//	    return err
//	}
//
//	// Later
//	f, err := checkpoint.LoadField("beta.safetensors")
//	opt, err := optim.NewAdam(f, config)
//	err = checkpoint.LoadOptimizer("adam.safetensors", opt)
package checkpoint

import (
	"github.com/born-ml/tomo/internal/checkpoint"
	"github.com/born-ml/tomo/internal/field"
	"github.com/born-ml/tomo/internal/optim"
)

// Tensor is one named array in a checkpoint file.
type Tensor = checkpoint.Tensor

// ValidationError describes a malformed checkpoint file.
type ValidationError = checkpoint.ValidationError

// SaveField writes a field's values, mask and bounds to path.
func SaveField(path string, f *field.Field) error {
	return checkpoint.SaveField(path, f)
}

// LoadField reads a field written by SaveField.
func LoadField(path string) (*field.Field, error) {
	return checkpoint.LoadField(path)
}

// SaveOptimizer writes an optimizer's state to path.
func SaveOptimizer(path string, o optim.Optimizer) error {
	return optim.SaveCheckpoint(path, o)
}

// LoadOptimizer restores an optimizer from a file written by SaveOptimizer.
func LoadOptimizer(path string, o optim.Optimizer) error {
	return optim.LoadCheckpoint(path, o)
}

// ReadOptimizerState reads optimizer state without applying it.
func ReadOptimizerState(path string) (optim.State, error) {
	return optim.ReadCheckpoint(path)
}
