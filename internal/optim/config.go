package optim

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tomo/internal/field"
)

// Spec selects an optimizer variant and its configuration.
//
// Kind picks the variant; only the matching config block is read.
// Specs decode from YAML or JSON:
//
//	kind: adam
//	adam:
//	  lr: 0.1
//	  betas: [0.9, 0.999]
//	  start_iter: 3
//	  bounds: {upper: 10, reset: 1}
type Spec struct {
	Kind        string             `yaml:"kind" json:"kind"`
	SGD         *SGDConfig         `yaml:"sgd,omitempty" json:"sgd,omitempty"`
	Momentum    *MomentumConfig    `yaml:"momentum,omitempty" json:"momentum,omitempty"`
	AdaGrad     *AdaGradConfig     `yaml:"adagrad,omitempty" json:"adagrad,omitempty"`
	RMSProp     *RMSPropConfig     `yaml:"rmsprop,omitempty" json:"rmsprop,omitempty"`
	Adam        *AdamConfig        `yaml:"adam,omitempty" json:"adam,omitempty"`
	AdaptiveStd *AdaptiveStdConfig `yaml:"adaptive,omitempty" json:"adaptive,omitempty"`
}

// ParseSpec decodes a Spec from YAML or JSON. Unknown keys are rejected.
func ParseSpec(r io.Reader) (Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return Spec{}, errors.New("empty optimizer spec")
		}
		return Spec{}, errors.Wrap(err, "failed to decode optimizer spec")
	}
	return spec, nil
}

// LoadSpec reads a Spec from a YAML or JSON file.
func LoadSpec(path string) (Spec, error) {
	//nolint:gosec // G304: path is supplied by the caller on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, errors.Wrap(err, "failed to read optimizer spec")
	}
	return ParseSpec(bytes.NewReader(data))
}

// New creates the optimizer described by spec over f.
func New(f *field.Field, spec Spec) (Optimizer, error) {
	switch spec.Kind {
	case KindSGD:
		if spec.SGD == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewSGD(f, *spec.SGD)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindMomentum:
		if spec.Momentum == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewMomentum(f, *spec.Momentum)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindAdaGrad:
		if spec.AdaGrad == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewAdaGrad(f, *spec.AdaGrad)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindRMSProp:
		if spec.RMSProp == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewRMSProp(f, *spec.RMSProp)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindAdam:
		if spec.Adam == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewAdam(f, *spec.Adam)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindAdaptiveStd:
		if spec.AdaptiveStd == nil {
			return nil, missingBlock(spec.Kind)
		}
		o, err := NewAdaptiveStd(f, *spec.AdaptiveStd)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, errors.Wrapf(ErrUnknownOptimizer, "%q", spec.Kind)
	}
}

func missingBlock(kind string) error {
	return errors.Wrapf(ErrInvalidHyperparameter, "spec kind %q has no %q config block", kind, kind)
}
