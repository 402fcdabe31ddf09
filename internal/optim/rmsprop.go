package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/tomo/internal/field"
)

// DefaultRMSPropEps is the RMSProp stability term used when RMSPropConfig.Eps is 0.
const DefaultRMSPropEps = 1e-5

// RMSProp implements the moving-average squared-gradient step.
//
// Update rule (whole field):
//
//	G      = alpha * G + (1-alpha) * gradient²
//	values = values - lr / sqrt(G + eps) * gradient   if iteration >= startIter
//	values = values - lr * gradient                   otherwise
//
// Note the warm-up gate is inclusive here and strict in AdaGrad.
// Only the lower bound is enforced afterwards.
type RMSProp struct {
	field     *field.Field
	lr        float64
	alpha     float64
	eps       float64
	startIter int
	g         []float64 // One entry per field cell
	iter      int
}

// RMSPropConfig holds configuration for RMSProp optimizer.
type RMSPropConfig struct {
	LR        float64 `yaml:"lr" json:"lr"`                 // Step size (required, > 0)
	Alpha     float64 `yaml:"alpha" json:"alpha"`           // Moving average decay, range [0, 1)
	StartIter int     `yaml:"start_iter" json:"start_iter"` // Flat steps run while iteration < StartIter
	Eps       float64 `yaml:"eps" json:"eps"`               // Stability term (default: 1e-5)
}

// NewRMSProp creates a new RMSProp optimizer with a zero accumulator.
func NewRMSProp(f *field.Field, config RMSPropConfig) (*RMSProp, error) {
	if err := checkField(f); err != nil {
		return nil, err
	}
	if config.Eps == 0 {
		config.Eps = DefaultRMSPropEps
	}
	if err := validateLR(config.LR); err != nil {
		return nil, err
	}
	if err := validateDecay("alpha", config.Alpha); err != nil {
		return nil, err
	}
	if err := validateEps(config.Eps); err != nil {
		return nil, err
	}
	if err := validateStartIter(config.StartIter); err != nil {
		return nil, err
	}

	return &RMSProp{
		field:     f,
		lr:        config.LR,
		alpha:     config.Alpha,
		eps:       config.Eps,
		startIter: config.StartIter,
		g:         make([]float64, f.Len()),
	}, nil
}

// Step performs a single RMSProp step.
func (o *RMSProp) Step(grad []float64) error {
	values := o.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	scaled := o.iter >= o.startIter
	for i, g := range grad {
		o.g[i] = o.alpha*o.g[i] + (1-o.alpha)*g*g
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

// Accumulator returns a copy of the moving-average accumulator G.
func (o *RMSProp) Accumulator() []float64 {
	return cloneBuf(o.g)
}

// Iteration returns the number of completed steps.
func (o *RMSProp) Iteration() int {
	return o.iter
}

// GetLR returns the current step size.
func (o *RMSProp) GetLR() float64 {
	return o.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (o *RMSProp) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	o.lr = lr
	return nil
}

// State exports the accumulator.
func (o *RMSProp) State() State {
	return State{
		Kind:      KindRMSProp,
		Iteration: o.iter,
		LR:        o.lr,
		Buffers:   map[string][]float64{BufG: cloneBuf(o.g)},
	}
}

// LoadState restores the accumulator.
func (o *RMSProp) LoadState(s State) error {
	if err := loadState(s, KindRMSProp, bufSpec{BufG, o.g}); err != nil {
		return err
	}
	o.iter = s.Iteration
	o.lr = s.LR
	return nil
}

func (o *RMSProp) String() string {
	return fmt.Sprintf("RMSP_lr=%.0e_a=%.0e", o.lr, o.alpha)
}
