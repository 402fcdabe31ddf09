package optim

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/tomo/internal/checkpoint"
)

// Checkpoint metadata keys.
const (
	MetaKind      = "kind"
	MetaIteration = "iteration"
	MetaLR        = "lr"
	MetaName      = "optimizer"
)

// SaveCheckpoint writes the optimizer's state to path in SafeTensors format.
//
// Each buffer becomes a 1-D F64 tensor; kind, iteration and step size go
// into the metadata.
func SaveCheckpoint(path string, o Optimizer) error {
	s := o.State()
	tensors := make(map[string]checkpoint.Tensor, len(s.Buffers))
	for name, buf := range s.Buffers {
		tensors[name] = checkpoint.Tensor{Shape: []int{len(buf)}, F64: buf}
	}
	metadata := map[string]string{
		MetaKind:      s.Kind,
		MetaIteration: strconv.Itoa(s.Iteration),
		MetaLR:        strconv.FormatFloat(s.LR, 'g', -1, 64),
		MetaName:      o.String(),
	}
	return checkpoint.WriteFile(path, tensors, metadata)
}

// ReadCheckpoint reads optimizer state written by SaveCheckpoint.
func ReadCheckpoint(path string) (State, error) {
	tensors, metadata, err := checkpoint.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	kind, ok := metadata[MetaKind]
	if !ok {
		return State{}, errors.Wrapf(checkpoint.ErrMissingMetadata, "%q", MetaKind)
	}
	iter, err := strconv.Atoi(metadata[MetaIteration])
	if err != nil {
		return State{}, errors.Wrapf(checkpoint.ErrMissingMetadata, "%q: %v", MetaIteration, err)
	}
	lr, err := strconv.ParseFloat(metadata[MetaLR], 64)
	if err != nil {
		return State{}, errors.Wrapf(checkpoint.ErrMissingMetadata, "%q: %v", MetaLR, err)
	}

	s := State{
		Kind:      kind,
		Iteration: iter,
		LR:        lr,
		Buffers:   make(map[string][]float64, len(tensors)),
	}
	for name, t := range tensors {
		if t.DType() != checkpoint.DTypeF64 {
			return State{}, errors.Wrapf(ErrStateMismatch, "buffer %q has dtype %s", name, t.DType())
		}
		s.Buffers[name] = t.F64
	}
	return s, nil
}

// LoadCheckpoint restores o from a file written by SaveCheckpoint.
//
// o is left untouched if the file does not match its kind or buffer sizes.
func LoadCheckpoint(path string, o Optimizer) error {
	s, err := ReadCheckpoint(path)
	if err != nil {
		return err
	}
	return o.LoadState(s)
}
