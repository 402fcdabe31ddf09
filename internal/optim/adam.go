package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/tomo/internal/field"
)

// DefaultAdamEps is the Adam stability term used when AdamConfig.Eps is 0.
const DefaultAdamEps = 1e-18

// Adam implements the bias-corrected adaptive moment step over the active mask.
//
// Update rule (active cells only, t = iteration + 1):
//
//	m_t   = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t   = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                          // Bias correction
//	values -= lr * m_hat                                 // iteration <  startIter
//	v_hat = v_t / (1 - beta2^t)                          // Bias correction
//	values -= lr * m_hat / sqrt(v_hat + eps)             // iteration >= startIter
//
// The warm-up form skips the denominator while v is still near zero.
// Projection then runs over the whole field: clamp at 0, reset cells above
// Upper to Reset.
//
// Example:
//
//	optimizer, err := optim.NewAdam(f, optim.AdamConfig{
//	    LR:        0.1,
//	    Betas:     [2]float64{0.9, 0.999},
//	    StartIter: 3,
//	})
type Adam struct {
	field     *field.Field
	idx       []int // Active cells, snapshot at construction
	lr        float64
	beta1     float64
	beta2     float64
	eps       float64
	startIter int
	bounds    field.Bounds
	m         []float64 // First moment estimates, one per active cell
	v         []float64 // Second moment estimates, one per active cell
	iter      int       // Drives bias correction and warm-up
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR        float64       `yaml:"lr" json:"lr"`                 // Step size (required, > 0)
	Betas     [2]float64    `yaml:"betas" json:"betas"`           // Moment decay rates, each in [0, 1)
	StartIter int           `yaml:"start_iter" json:"start_iter"` // Warm-up steps without the denominator
	Eps       float64       `yaml:"eps" json:"eps"`               // Stability term (default: 1e-18)
	Bounds    *field.Bounds `yaml:"bounds" json:"bounds"`         // Overrides the field's bounds when set
}

// NewAdam creates a new Adam optimizer with zero moments.
func NewAdam(f *field.Field, config AdamConfig) (*Adam, error) {
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
	if err := validateStartIter(config.StartIter); err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(f, config.Bounds)
	if err != nil {
		return nil, err
	}

	idx := f.ActiveIndices()
	return &Adam{
		field:     f,
		idx:       idx,
		lr:        config.LR,
		beta1:     config.Betas[0],
		beta2:     config.Betas[1],
		eps:       config.Eps,
		startIter: config.StartIter,
		bounds:    bounds,
		m:         make([]float64, len(idx)),
		v:         make([]float64, len(idx)),
	}, nil
}

// Step performs a single optimization step using Adam algorithm.
//
//  1. Update biased first and second moment estimates
//  2. Compute bias-corrected moment estimates
//  3. Update active cells
//  4. Project the whole field
func (a *Adam) Step(grad []float64) error {
	values := a.field.Values()
	if err := field.CheckLen("gradient", len(grad), len(values)); err != nil {
		return err
	}

	t := float64(a.iter + 1)
	biasCorrection1 := 1 - math.Pow(a.beta1, t)
	biasCorrection2 := 1 - math.Pow(a.beta2, t)
	adaptive := a.iter >= a.startIter

	for k, i := range a.idx {
		g := grad[i]
		a.m[k] = a.beta1*a.m[k] + (1-a.beta1)*g
		a.v[k] = a.beta2*a.v[k] + (1-a.beta2)*g*g

		mHat := a.m[k] / biasCorrection1
		if adaptive {
			vHat := a.v[k] / biasCorrection2
			values[i] -= a.lr * mHat / math.Sqrt(vHat+a.eps)
		} else {
			values[i] -= a.lr * mHat
		}
	}
	field.Project(values, a.bounds)

	err := checkDegeneracy(a, a.iter, values, 0)
	a.iter++
	return err
}

// Restart zeroes both moments and the iteration counter.
//
// Hyperparameters and the field are left untouched.
func (a *Adam) Restart() {
	clear(a.m)
	clear(a.v)
	a.iter = 0
}

// Moments returns copies of the first and second moment buffers.
func (a *Adam) Moments() (m, v []float64) {
	return cloneBuf(a.m), cloneBuf(a.v)
}

// Iteration returns the current timestep.
func (a *Adam) Iteration() int {
	return a.iter
}

// GetLR returns the current step size.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the step size. An invalid value leaves it unchanged.
func (a *Adam) SetLR(lr float64) error {
	if err := validateLR(lr); err != nil {
		return err
	}
	a.lr = lr
	return nil
}

// State exports both moment buffers.
func (a *Adam) State() State {
	return State{
		Kind:      KindAdam,
		Iteration: a.iter,
		LR:        a.lr,
		Buffers: map[string][]float64{
			BufM: cloneBuf(a.m),
			BufV: cloneBuf(a.v),
		},
	}
}

// LoadState restores both moment buffers.
func (a *Adam) LoadState(s State) error {
	if err := loadState(s, KindAdam, bufSpec{BufM, a.m}, bufSpec{BufV, a.v}); err != nil {
		return err
	}
	a.iter = s.Iteration
	a.lr = s.LR
	return nil
}

func (a *Adam) String() string {
	return fmt.Sprintf("ADAM: b1=%v, b2=%v, start_iter=%d", a.beta1, a.beta2, a.startIter)
}
