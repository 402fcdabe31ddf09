package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/tomo/internal/field"
)

// DefaultAdaGradEps is the AdaGrad stability term used when AdaGradConfig.Eps is 0.
const DefaultAdaGradEps = 1e-2

// AdaGrad implements the accumulated-squared-gradient step.
//
// Update rule (whole field):
//
//	G      = G + gradient²
//	values = values - lr / sqrt(G + eps) * gradient   if iteration >  startIter
//	values = values - lr * gradient                   otherwise
//
// Only the lower bound is enforced afterwards; Upper and Reset are not
// applied by this variant.
type AdaGrad struct {
	field     *field.Field
	lr        float64
	eps       float64
	startIter int
	g         []float64 // One entry per field cell
	iter      int
}

// AdaGradConfig holds configuration for AdaGrad optimizer.
type AdaGradConfig struct {
	LR        float64 `yaml:"lr" json:"lr"`                 // Step size (required, > 0)
	StartIter int     `yaml:"start_iter" json:"start_iter"` // Flat steps run while iteration <= StartIter
	Eps       float64 `yaml:"eps" json:"eps"`               // Stability term (default: 1e-2)
}

// NewAdaGrad creates a new AdaGrad optimizer with a zero accumulator.
func NewAdaGrad(f *field.Field, config AdaGradConfig) (*AdaGrad, error) {
	if err := checkField(f); err != nil {
		return nil, err
	}
	if config.Eps == 0 {
		config.Eps = DefaultAdaGradEps
	}
	if err := validateLR(config.LR); err != nil {
		return nil, err
	}
	if err := validateEps(config.Eps); err != nil {
		return nil, err
	}
	if err := validateStartIter(config.StartIter); err != nil {
		return nil, err
	}

	return &AdaGrad{
		field:     f,
		lr:        config.LR,
		eps:       config.Eps,
		startIter: config.StartIter,
		g:         make([]float64, f.Len()),
	}, nil
}

// Step performs a single AdaGrad step.
func (o *AdaGrad) Step(grad []float64) error {
	values := o.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	scaled := o.iter > o.startIter
	for i, g := range grad {
		o.g[i] += g * g
		if scaled {
			values[i] -= o.lr / math.Sqrt(o.g[i]+o.eps) * g
		} else {
			values[i] -= o.lr * g
		}
	}
	field.ClampLower(values)

	err := checkDegeneracy(o, o.iter, values, 0)
	o.iter++
	return err
}

// Accumulator returns a copy of the squared-gradient accumulator G.
func (o *AdaGrad) Accumulator() []float64 {
	return cloneBuf(o.g)
}

// Iteration returns the number of completed steps.
func (o *AdaGrad) Iteration() int {
	return o.iter
}

// GetLR returns the current step size.
func (o *AdaGrad) GetLR() float64 {
	return o.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (o *AdaGrad) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	o.lr = lr
	return nil
}

// State exports the accumulator.
func (o *AdaGrad) State() State {
	return State{
		Kind:      KindAdaGrad,
		Iteration: o.iter,
		LR:        o.lr,
		Buffers:   map[string][]float64{BufG: cloneBuf(o.g)},
	}
}

// LoadState restores the accumulator.
func (o *AdaGrad) LoadState(s State) error {
	if err := loadState(s, KindAdaGrad, bufSpec{BufG, o.g}); err != nil {
		return err
	}
	o.iter = s.Iteration
	o.lr = s.LR
	return nil
}

func (o *AdaGrad) String() string {
	return fmt.Sprintf("AGRAD_lr=%.0e", o.lr)
}
