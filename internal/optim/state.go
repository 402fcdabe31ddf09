package optim

import (
	"sort"

	"github.com/pkg/errors"
)

// Optimizer kinds, used in State and Spec.
const (
	KindSGD         = "sgd"
	KindMomentum    = "momentum"
	KindAdaGrad     = "adagrad"
	KindRMSProp     = "rmsprop"
	KindAdam        = "adam"
	KindAdaptiveStd = "adaptive"
)

// Buffer names used in State.Buffers.
const (
	BufVelocity = "velocity"
	BufG        = "G"
	BufM        = "m"
	BufV        = "v"
	BufStd      = "std"
)

// State is a snapshot of an optimizer's mutable state.
//
// Buffers are copies; mutating them does not affect the optimizer.
type State struct {
	Kind      string
	Iteration int
	LR        float64
	Buffers   map[string][]float64
}

// BufferNames returns the buffer names in sorted order.
func (s State) BufferNames() []string {
	names := make([]string, 0, len(s.Buffers))
	for name := range s.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneBuf(b []float64) []float64 {
	c := make([]float64, len(b))
	copy(c, b)
	return c
}

// bufSpec describes one buffer an optimizer expects on load.
type bufSpec struct {
	name string
	dst  []float64
}

// loadState validates s against kind and buffer specs and copies the
// buffers into place. Nothing is written unless every check passes.
func loadState(s State, kind string, bufs ...bufSpec) error {
	if s.Kind != kind {
		return errors.Wrapf(ErrStateMismatch, "state kind %q, optimizer kind %q", s.Kind, kind)
	}
	if s.Iteration < 0 {
		return errors.Wrapf(ErrStateMismatch, "negative iteration %d", s.Iteration)
	}
	if err := validateLR(s.LR); err != nil {
		return errors.Wrap(ErrStateMismatch, err.Error())
	}
	if len(s.Buffers) != len(bufs) {
		return errors.Wrapf(ErrStateMismatch, "%s state has %d buffers, want %d", kind, len(s.Buffers), len(bufs))
	}
	for _, b := range bufs {
		src, ok := s.Buffers[b.name]
		if !ok {
			return errors.Wrapf(ErrStateMismatch, "%s state is missing buffer %q", kind, b.name)
		}
		if len(src) != len(b.dst) {
			return errors.Wrapf(ErrStateMismatch, "buffer %q has %d elements, want %d", b.name, len(src), len(b.dst))
		}
	}
	for _, b := range bufs {
		copy(b.dst, s.Buffers[b.name])
	}
	return nil
}
