package optim

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tomo/internal/field"
)

// Momentum implements a decayed-velocity step over the active mask.
//
// Update rule (active cells only):
//
//	velocity = alpha * velocity - (1-alpha) * lr * gradient
//	values   = values + velocity
//
// Projection then runs over the whole field. Alpha in [0, 1) controls
// memory: higher alpha means slower, smoother descent.
type Momentum struct {
	field    *field.Field
	idx      []int // Active cells, snapshot at construction
	lr       float64
	alpha    float64
	bounds   field.Bounds
	velocity []float64 // One entry per active cell
	masked   []float64 // Scratch for the masked gradient
	iter     int
}

// MomentumConfig holds configuration for Momentum optimizer.
type MomentumConfig struct {
	LR     float64       `yaml:"lr" json:"lr"`         // Step size (required, > 0)
	Alpha  float64       `yaml:"alpha" json:"alpha"`   // Velocity decay, range [0, 1)
	Bounds *field.Bounds `yaml:"bounds" json:"bounds"` // Overrides the field's bounds when set
}

// NewMomentum creates a new Momentum optimizer with zero velocity.
func NewMomentum(f *field.Field, config MomentumConfig) (*Momentum, error) {
	if err := checkField(f); err != nil {
		return nil, err
	}
	if err := validateLR(config.LR); err != nil {
		return nil, err
	}
	if err := validateDecay("alpha", config.Alpha); err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(f, config.Bounds)
	if err != nil {
		return nil, err
	}

	idx := f.ActiveIndices()
	return &Momentum{
		field:    f,
		idx:      idx,
		lr:       config.LR,
		alpha:    config.Alpha,
		bounds:   bounds,
		velocity: make([]float64, len(idx)),
		masked:   make([]float64, len(idx)),
	}, nil
}

// Step performs a single momentum step.
func (o *Momentum) Step(grad []float64) error {
	values := o.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	field.Gather(o.masked, grad, o.idx)
	floats.Scale(o.alpha, o.velocity)
	floats.AddScaled(o.velocity, -(1-o.alpha)*o.lr, o.masked)
	field.AddAt(values, o.velocity, o.idx)
	field.Project(values, o.bounds)

	err := checkDegeneracy(o, o.iter, values, 0)
	o.iter++
	return err
}

// Velocity returns a copy of the velocity buffer (one entry per active cell).
func (o *Momentum) Velocity() []float64 {
	return cloneBuf(o.velocity)
}

// Iteration returns the number of completed steps.
func (o *Momentum) Iteration() int {
	return o.iter
}

// GetLR returns the current step size.
func (o *Momentum) GetLR() float64 {
	return o.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (o *Momentum) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	o.lr = lr
	return nil
}

// State exports the velocity buffer.
func (o *Momentum) State() State {
	return State{
		Kind:      KindMomentum,
		Iteration: o.iter,
		LR:        o.lr,
		Buffers:   map[string][]float64{BufVelocity: cloneBuf(o.velocity)},
	}
}

// LoadState restores the velocity buffer.
func (o *Momentum) LoadState(s State) error {
	if err := loadState(s, KindMomentum, bufSpec{BufVelocity, o.velocity}); err != nil {
		return err
	}
	o.iter = s.Iteration
	o.lr = s.LR
	return nil
}

func (o *Momentum) String() string {
	return fmt.Sprintf("MSGD: alpha=%.0e", o.alpha)
}
