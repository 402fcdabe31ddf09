package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tomo/internal/field"
)

// AdaptiveStd implements an Adam-like step whose scaling comes from an
// externally maintained per-cell standard deviation field.
//
// Update rule (active cells only, t = iteration + 1):
//
//	m_t    = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t    = beta2 * v_{t-1} + (1-beta2) * std²
//	scale  = log10(1 / (std + eps))
//	scale  = scale / mean(scale + eps)
//	values = values - lr * gradient * scale
//
// Cells with a zero gradient or a zero std get no update at all.
//
// The bias-corrected moments m_hat and v_hat are computed every step and
// exposed through BiasCorrected, but the update does not use them.
//
// Projection then runs over the whole field, as in Adam.
type AdaptiveStd struct {
	field   *field.Field
	idx     []int // Active cells, snapshot at construction
	lr      float64
	beta1   float64
	beta2   float64
	eps     float64
	bounds  field.Bounds
	m       []float64 // One per active cell
	v       []float64 // One per active cell
	mHat    []float64
	vHat    []float64
	scale   []float64
	std     []float64 // One per field cell, all ones at start
	history []ScaleStats
	iter    int
}

// AdaptiveStdConfig holds configuration for AdaptiveStd optimizer.
type AdaptiveStdConfig struct {
	LR     float64       `yaml:"lr" json:"lr"`         // Step size (required, > 0)
	Betas  [2]float64    `yaml:"betas" json:"betas"`   // Moment decay rates, each in [0, 1)
	Eps    float64       `yaml:"eps" json:"eps"`       // Stability term (default: 1e-18)
	Bounds *field.Bounds `yaml:"bounds" json:"bounds"` // Overrides the field's bounds when set
}

// ScaleStats summarizes the scale factors of one step.
type ScaleStats struct {
	Iteration int
	Norm      float64 // mean(scale + eps) before normalization
	Min       float64 // Smallest normalized scale factor
	Max       float64 // Largest normalized scale factor
	NonFinite int     // NaN or Inf scale factors
}

// NewAdaptiveStd creates a new AdaptiveStd optimizer with zero moments
// and an all-ones std field.
func NewAdaptiveStd(f *field.Field, config AdaptiveStdConfig) (*AdaptiveStd, error) {
	if err := checkField(f); err != nil {
		return nil, err
	}
	if config.Eps == 0 {
		config.Eps = DefaultAdamEps
	}
	if err := validateLR(config.LR); err != nil {
		return nil, err
	}
	if err := validateDecay("beta1", config.Betas[0]); err != nil {
		return nil, err
	}
	if err := validateDecay("beta2", config.Betas[1]); err != nil {
		return nil, err
	}
	if err := validateEps(config.Eps); err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(f, config.Bounds)
	if err != nil {
		return nil, err
	}

	idx := f.ActiveIndices()
	a := &AdaptiveStd{
		field:  f,
		idx:    idx,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		bounds: bounds,
		m:      make([]float64, len(idx)),
		v:      make([]float64, len(idx)),
		mHat:   make([]float64, len(idx)),
		vHat:   make([]float64, len(idx)),
		scale:  make([]float64, len(idx)),
		std:    make([]float64, f.Len()),
	}
	fillOnes(a.std)
	return a, nil
}

// SetStd replaces the std field. std must have one entry per field cell.
func (a *AdaptiveStd) SetStd(std []float64) error {
	if err := field.CheckLen("std", len(std), len(a.std)); err != nil {
		return err
	}
	copy(a.std, std)
	return nil
}

// Std returns a copy of the std field.
func (a *AdaptiveStd) Std() []float64 {
	return cloneBuf(a.std)
}

// Step performs a single std-scaled step.
func (a *AdaptiveStd) Step(grad []float64) error {
	values := a.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	t := float64(a.iter + 1)
	biasCorrection1 := 1 - math.Pow(a.beta1, t)
	biasCorrection2 := 1 - math.Pow(a.beta2, t)

	for k, i := range a.idx {
		s := a.std[i]
		a.m[k] = a.beta1*a.m[k] + (1-a.beta1)*grad[i]
		a.v[k] = a.beta2*a.v[k] + (1-a.beta2)*s*s
		a.mHat[k] = a.m[k] / biasCorrection1
		a.vHat[k] = a.v[k] / biasCorrection2
		a.scale[k] = math.Log10(1 / (s + a.eps))
	}

	stats := a.normalizeScale()
	a.history = append(a.history, stats)

	for k, i := range a.idx {
		g := grad[i]
		if g == 0 || a.std[i] == 0 {
			continue
		}
		values[i] -= a.lr * g * a.scale[k]
	}
	field.Project(values, a.bounds)

	err := checkDegeneracy(a, a.iter, values, stats.NonFinite)
	a.iter++
	return err
}

// normalizeScale divides the scale factors by mean(scale + eps).
func (a *AdaptiveStd) normalizeScale() ScaleStats {
	stats := ScaleStats{Iteration: a.iter}
	n := len(a.scale)
	if n == 0 {
		return stats
	}

	stats.Norm = floats.Sum(a.scale)/float64(n) + a.eps
	for k := range a.scale {
		a.scale[k] /= stats.Norm
	}
	stats.Min = floats.Min(a.scale)
	stats.Max = floats.Max(a.scale)
	stats.NonFinite = field.CountNonFinite(a.scale)
	return stats
}

// ScaleHistory returns the per-step scale statistics since the last restart.
func (a *AdaptiveStd) ScaleHistory() []ScaleStats {
	h := make([]ScaleStats, len(a.history))
	copy(h, a.history)
	return h
}

// BiasCorrected returns copies of the bias-corrected moments of the last step.
func (a *AdaptiveStd) BiasCorrected() (mHat, vHat []float64) {
	return cloneBuf(a.mHat), cloneBuf(a.vHat)
}

// Moments returns copies of the raw moment buffers.
func (a *AdaptiveStd) Moments() (m, v []float64) {
	return cloneBuf(a.m), cloneBuf(a.v)
}

// Restart zeroes the moments and iteration, resets std to ones and clears
// the scale history.
func (a *AdaptiveStd) Restart() {
	clear(a.m)
	clear(a.v)
	clear(a.mHat)
	clear(a.vHat)
	fillOnes(a.std)
	a.history = nil
	a.iter = 0
}

// Iteration returns the current timestep.
func (a *AdaptiveStd) Iteration() int {
	return a.iter
}

// GetLR returns the current step size.
func (a *AdaptiveStd) GetLR() float64 {
	return a.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (a *AdaptiveStd) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	a.lr = lr
	return nil
}

// State exports the moments and the std field.
func (a *AdaptiveStd) State() State {
	return State{
		Kind:      KindAdaptiveStd,
		Iteration: a.iter,
		LR:        a.lr,
		Buffers: map[string][]float64{
			BufM:   cloneBuf(a.m),
			BufV:   cloneBuf(a.v),
			BufStd: cloneBuf(a.std),
		},
	}
}

// LoadState restores the moments and the std field.
//
// The scale history is cleared.
func (a *AdaptiveStd) LoadState(s State) error {
	err := loadState(s, KindAdaptiveStd,
		bufSpec{BufM, a.m}, bufSpec{BufV, a.v}, bufSpec{BufStd, a.std})
	if err != nil {
		return err
	}
	a.iter = s.Iteration
	a.lr = s.LR
	a.history = nil
	return nil
}

func (a *AdaptiveStd) String() string {
	return fmt.Sprintf("ADAPTIVE_STD: lr=%v, b1=%v, b2=%v", a.lr, a.beta1, a.beta2)
}

func fillOnes(b []float64) {
	for i := range b {
		b[i] = 1
	}
}
