package optim

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tomo/internal/field"
)

// SGD implements the plain gradient step.
//
// Update rule:
//
//	values = values - lr * gradient
//
// The update covers the whole field, active mask or not, and is followed
// by projection onto [0, Upper] with reset-on-exceed.
//
// Example:
//
//	optimizer, err := optim.NewSGD(f, optim.SGDConfig{LR: 0.01})
//	if err != nil {
//	    return err
//	}
//	err = optimizer.Step(grad)
type SGD struct {
	field  *field.Field
	lr     float64
	bounds field.Bounds
	iter   int
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR     float64       `yaml:"lr" json:"lr"`         // Step size (required, > 0)
	Bounds *field.Bounds `yaml:"bounds" json:"bounds"` // Overrides the field's bounds when set
}

// NewSGD creates a new SGD optimizer.
func NewSGD(f *field.Field, config SGDConfig) (*SGD, error) {
	if err := checkField(f); err != nil {
		return nil, err
	}
	if err := validateLR(config.LR); err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(f, config.Bounds)
	if err != nil {
		return nil, err
	}

	return &SGD{
		field:  f,
		lr:     config.LR,
		bounds: bounds,
	}, nil
}

// Step performs a single plain gradient step.
func (s *SGD) Step(grad []float64) error {
	values := s.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	floats.AddScaled(values, -s.lr, grad)
	field.Project(values, s.bounds)

	err := checkDegeneracy(s, s.iter, values, 0)
	s.iter++
	return err
}

// Iteration returns the number of completed steps.
func (s *SGD) Iteration() int {
	return s.iter
}

// GetLR returns the current step size.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (s *SGD) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	s.lr = lr
	return nil
}

// State returns the optimizer state. SGD carries no buffers.
func (s *SGD) State() State {
	return State{
		Kind:      KindSGD,
		Iteration: s.iter,
		LR:        s.lr,
		Buffers:   map[string][]float64{},
	}
}

// LoadState restores the iteration counter and step size.
func (s *SGD) LoadState(st State) error {
	if err := loadState(st, KindSGD); err != nil {
		return err
	}
	s.iter = st.Iteration
	s.lr = st.LR
	return nil
}

func (s *SGD) String() string {
	return fmt.Sprintf("SGD_lr=%.0e", s.lr)
}
